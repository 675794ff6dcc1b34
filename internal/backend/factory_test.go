package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"cantine/internal/config"
	"cantine/internal/log"
	"cantine/internal/records"
	gsheet "cantine/internal/sheets/google"
)

func TestFromAppConfig(t *testing.T) {
	cfg := config.Load()
	cfg.DataBackend = "sqlite"
	cfg.SQLiteDBPath = "/tmp/x.db"
	bc, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bc.Type != SQLiteBackend || bc.SQLite.Path != "/tmp/x.db" || bc.Sheets.SheetName != cfg.GoogleSheetName {
		t.Fatalf("unexpected config: %+v", bc)
	}

	cfg.DataBackend = "postgres"
	if _, err := FromAppConfig(cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"sqlite", Config{Type: SQLiteBackend, SQLite: SQLiteConfig{Path: "a.db"}}, ""},
		{"sqlite without path", Config{Type: SQLiteBackend}, "database path is required"},
		{"sheets", Config{Type: SheetsBackend, Sheets: gsheet.Options{SpreadsheetID: "id", SheetName: "Saisie"}}, ""},
		{"sheets without id", Config{Type: SheetsBackend, Sheets: gsheet.Options{SheetName: "Saisie"}}, "spreadsheet ID"},
		{"sheets without name", Config{Type: SheetsBackend, Sheets: gsheet.Options{SpreadsheetID: "id"}}, "sheet name"},
		{"unknown", Config{Type: "csv"}, `invalid backend type "csv" (want one of sqlite, sheets, memory)`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(log.Discard()).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer res.Close()

	recs, err := res.Store.ListRecords(context.Background())
	if err != nil || len(recs) == 0 {
		t.Fatalf("memory backend should start with sample days: %d %v", len(recs), err)
	}
	if _, ok := res.Store.(records.Resetter); !ok {
		t.Fatal("memory backend should support reset")
	}
	if res.Publisher != nil || res.Ready != nil {
		t.Fatal("memory backend has no publisher or readiness probe")
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cantine.db")
	res, err := NewFactory(log.Discard()).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLite: SQLiteConfig{Path: dbPath}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer res.Close()

	if res.Publisher != nil {
		t.Fatal("no AMQP URL means no publisher")
	}
	if err := res.Ready(context.Background()); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if recs, err := res.Store.ListRecords(context.Background()); err != nil || len(recs) != 0 {
		t.Fatalf("fresh database should be empty: %v %v", recs, err)
	}
}

func TestCreateMemoryBackendBadSeed(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, Memory: MemoryConfig{SeedFile: filepath.Join(t.TempDir(), "nope.json")}})
	if err == nil {
		t.Fatal("expected error for missing seed file")
	}
}

func TestBackendTypesAllHaveBuilders(t *testing.T) {
	types := BackendTypes()
	if len(types) != len(builders) {
		t.Fatalf("%d types listed, %d builders", len(types), len(builders))
	}
	for _, bt := range types {
		if !bt.IsValid() {
			t.Fatalf("%s has no builder", bt)
		}
	}
}
