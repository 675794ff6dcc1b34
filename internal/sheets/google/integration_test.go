//go:build integration

package google

import (
	"context"
	"errors"
	"os"
	"testing"

	"cantine/internal/core"
	"cantine/internal/log"
)

// Integration tests require a real spreadsheet and service account.
// Run with: go test -tags=integration ./internal/sheets/google

func integrationClient(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	opts := Options{
		SpreadsheetID:   os.Getenv("GOOGLE_SPREADSHEET_ID"),
		SheetName:       os.Getenv("GOOGLE_SHEET_NAME"),
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if opts.SpreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	if opts.CredentialsJSON == "" && opts.CredentialsFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		t.Skip("service account not configured, skipping integration test")
	}
	c, err := New(context.Background(), opts, log.Discard())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

func TestIntegration_RecordRoundTrip(t *testing.T) {
	c := integrationClient(t)
	ctx := context.Background()

	// A Sunday in August never collides with real entries.
	date := "01/08/2100"
	rec := core.DailyRecord{Date: date, ChildrenCanteen: core.Float(3), CostOrganic: core.Float(4.5)}
	if err := c.Upsert(ctx, rec); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	t.Cleanup(func() { _ = c.Delete(context.Background(), date) })

	got, err := c.Get(ctx, date)
	if err != nil {
		t.Fatalf("Failed to read back: %v", err)
	}
	if got.ChildrenCanteen == nil || *got.ChildrenCanteen != 3 || *got.CostOrganic != 4.5 {
		t.Errorf("unexpected record: %+v", got)
	}

	if err := c.Delete(ctx, date); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := c.Get(ctx, date); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestIntegration_ListRecords(t *testing.T) {
	c := integrationClient(t)
	recs, err := c.ListRecords(context.Background())
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	t.Logf("Found %d records", len(recs))
	seen := make(map[string]bool)
	for _, r := range recs {
		if seen[r.Date] {
			t.Errorf("Duplicate date found: %s", r.Date)
		}
		seen[r.Date] = true
	}
}
