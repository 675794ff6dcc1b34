package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"cantine/internal/config"
)

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"})
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug level should be enabled")
	}
	logger = SetupLogger(nil)
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("default level should be info")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CANTINE_TEST_VALUE=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("ENV_FILE", "")
	t.Setenv("CANTINE_TEST_VALUE", "")
	os.Unsetenv("CANTINE_TEST_VALUE")

	LoadEnvFile()
	if got := os.Getenv("CANTINE_TEST_VALUE"); got != "from-dotenv" {
		t.Fatalf("CANTINE_TEST_VALUE = %q", got)
	}
}

func TestLoadEnvFileFromENVFILE(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.env")
	if err := os.WriteFile(path, []byte("CANTINE_TEST_OTHER=explicit\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", path)
	t.Setenv("CANTINE_TEST_OTHER", "")
	os.Unsetenv("CANTINE_TEST_OTHER")

	LoadEnvFile()
	if got := os.Getenv("CANTINE_TEST_OTHER"); got != "explicit" {
		t.Fatalf("CANTINE_TEST_OTHER = %q", got)
	}

	// A missing explicit file only warns.
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	LoadEnvFile()
}
