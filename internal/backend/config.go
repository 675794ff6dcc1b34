package backend

import (
	"errors"
	"fmt"
	"strings"

	"cantine/internal/config"
	gsheet "cantine/internal/sheets/google"
)

// FromAppConfig picks the backend sections out of the application config.
func FromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errors.New("app config is nil")
	}
	bt := BackendType(cfg.DataBackend)
	if !bt.IsValid() {
		return Config{}, unknownType(bt)
	}

	return Config{
		Type: bt,
		SQLite: SQLiteConfig{
			Path: cfg.SQLiteDBPath,
			AMQP: AMQPConfig{URL: cfg.AMQPURL, Exchange: cfg.AMQPExchange, Queue: cfg.AMQPQueue},
		},
		Sheets: gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleServiceAccountFile,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
		},
		Memory: MemoryConfig{SeedFile: cfg.SeedFile},
	}, nil
}

// Validate checks the section the selected backend needs. Credentials for
// the sheets backend are checked when the client is built.
func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLite.Path == "" {
			return errors.New("sqlite backend: database path is required")
		}
	case SheetsBackend:
		if c.Sheets.SpreadsheetID == "" {
			return errors.New("sheets backend: spreadsheet ID is required")
		}
		if c.Sheets.SheetName == "" {
			return errors.New("sheets backend: sheet name is required")
		}
	case MemoryBackend:
	default:
		return unknownType(c.Type)
	}
	return nil
}

// BackendTypes lists the supported backends in a stable order.
func BackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, SheetsBackend, MemoryBackend}
}

func unknownType(bt BackendType) error {
	names := make([]string, 0, len(builders))
	for _, t := range BackendTypes() {
		names = append(names, t.String())
	}
	return fmt.Errorf("invalid backend type %q (want one of %s)", bt, strings.Join(names, ", "))
}
