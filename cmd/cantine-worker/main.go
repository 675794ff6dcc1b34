package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"cantine/internal/amqp"
	"cantine/internal/cli"
	"cantine/internal/log"
	"cantine/internal/records/memory"
	"cantine/internal/scheduler"
	"cantine/internal/services"
	"cantine/internal/sheets"
	gsheet "cantine/internal/sheets/google"
	"cantine/internal/storage"
	"cantine/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting cantine-worker", log.FieldOperation, log.OpStartup)

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var mirror sheets.Mirror
	if cfg.SheetsConfigured() {
		initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
		client, err := gsheet.New(initCtx, gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		initCancel()
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		// Keeps the sync bookkeeping running without a spreadsheet.
		mirror = memory.New(nil)
		logger.Warn("Google Sheets not configured, mirroring to memory only")
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer func() {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("AMQP_URL not set, relying on periodic sync only")
	}

	syncWorker := worker.NewSyncWorker(repo, mirror, logger)
	processor := worker.NewSyncProcessor(repo, mirror, worker.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
	}, logger)

	svc := services.NewRecordService(repo, services.WithLogger(logger))
	sched := scheduler.New(svc, cfg.SnapshotCron, cfg.Location(), logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	g, gctx := errgroup.WithContext(log.NewContext(ctx, logger))

	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.Consume(gctx, syncWorker.HandleEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		if err := processor.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		return processor.Stop(stopCtx)
	})

	g.Go(func() error {
		if err := sched.Start(); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		sched.Stop(stopCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
