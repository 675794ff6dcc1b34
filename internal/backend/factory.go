package backend

import (
	"context"
	"errors"
	"fmt"

	"cantine/internal/amqp"
	"cantine/internal/log"
	"cantine/internal/records/memory"
	gsheet "cantine/internal/sheets/google"
	"cantine/internal/storage"
)

type builder func(f *DefaultFactory, ctx context.Context, c Config) (*BackendResult, error)

var builders = map[BackendType]builder{
	SQLiteBackend: (*DefaultFactory).sqlite,
	SheetsBackend: (*DefaultFactory).sheets,
	MemoryBackend: (*DefaultFactory).memory,
}

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend validates c and builds the backend it selects.
func (f *DefaultFactory) CreateBackend(ctx context.Context, c Config) (*BackendResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	res, err := builders[c.Type](f, ctx, c)
	if err != nil {
		return nil, fmt.Errorf("init %s backend: %w", c.Type, err)
	}
	return res, nil
}

func (f *DefaultFactory) sqlite(_ context.Context, c Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(c.SQLite.Path)
	if err != nil {
		return nil, err
	}
	res := &BackendResult{
		Type:    SQLiteBackend,
		Store:   repo,
		Ready:   repo.Ping,
		Cleanup: repo.Close,
	}

	// Without a broker the worker's periodic sweep still mirrors changes.
	if q := c.SQLite.AMQP; q.URL != "" {
		client, err := amqp.NewClient(q.URL, q.Exchange, q.Queue)
		if err != nil {
			f.logger.Warn("AMQP unavailable, continuing without change events", log.FieldError, err)
		} else {
			res.Publisher = client
			res.Cleanup = func() error { return errors.Join(client.Close(), repo.Close()) }
		}
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", c.SQLite.Path,
		"amqp_enabled", res.Publisher != nil)
	return res, nil
}

func (f *DefaultFactory) sheets(ctx context.Context, c Config) (*BackendResult, error) {
	client, err := gsheet.New(ctx, c.Sheets, f.logger)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Initialized Google Sheets backend", "sheet", c.Sheets.SheetName)
	return &BackendResult{Type: SheetsBackend, Store: client}, nil
}

func (f *DefaultFactory) memory(_ context.Context, c Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(c.Memory.SeedFile)
	if err != nil {
		return nil, err
	}
	seed := c.Memory.SeedFile
	if seed == "" {
		seed = "bundled sample"
	}
	f.logger.Info("Initialized memory backend", "seed", seed)
	return &BackendResult{Type: MemoryBackend, Store: store}, nil
}
