package backend

import (
	"context"

	"cantine/internal/records"
	"cantine/internal/services"
	gsheet "cantine/internal/sheets/google"
)

// BackendType names where daily records are kept.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	_, ok := builders[bt]
	return ok
}

// Config selects a backend and carries the settings of each kind. Only the
// section matching Type is read.
type Config struct {
	Type BackendType

	SQLite SQLiteConfig
	Sheets gsheet.Options
	Memory MemoryConfig
}

type SQLiteConfig struct {
	Path string
	// AMQP is optional. With an empty URL no change events are published.
	AMQP AMQPConfig
}

type AMQPConfig struct {
	URL      string
	Exchange string
	Queue    string
}

type MemoryConfig struct {
	// SeedFile is a JSON list of records; empty means the bundled sample.
	SeedFile string
}

type CleanupFunc func() error

// BackendResult is a ready record store plus what goes with it.
type BackendResult struct {
	Type  BackendType
	Store records.Store
	// Publisher is nil unless the backend emits change events.
	Publisher services.Publisher
	// Ready probes the backend. Nil means always ready.
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
