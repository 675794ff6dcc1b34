package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cantine/internal/backend"
	"cantine/internal/cli"
	apphttp "cantine/internal/http"
	"cantine/internal/log"
	"cantine/internal/middleware/ratelimit"
	"cantine/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentApp)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	res, err := backend.NewFactory(logger).CreateBackend(initCtx, backendConfig)
	initCancel()
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	opts := []services.Option{
		services.WithRejectOutOfSchoolYear(cfg.RejectOutOfSchoolYear),
		services.WithLogger(logger),
	}
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}
	svc := services.NewRecordService(res.Store, opts...)

	limits := ratelimit.DefaultConfig()
	limits.Requests = cfg.RateLimit
	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Backend:        res.Type.String(),
		Ready:          res.Ready,
		CacheTTL:       cfg.CacheTTL,
		Location:       cfg.Location(),
		RateLimit:      limits,
		TrustedProxies: cfg.TrustedProxies,
		Logger:         logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting cantine server",
		"port", cfg.Port,
		log.FieldBackend, res.Type.String(),
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		_ = res.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
