package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"cantine/internal/core"
	"cantine/internal/log"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const testSpreadsheet = "sheet-123"

// fakeSheets emulates the handful of Sheets API calls the client makes on a
// single sheet named "Saisie".
type fakeSheets struct {
	mu    sync.Mutex
	rows  [][]interface{}
	calls []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/"+testSpreadsheet)
	f.calls = append(f.calls, r.Method+" "+path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && path == "":
		json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId": testSpreadsheet,
			"sheets":        []any{map[string]any{"properties": map[string]any{"sheetId": 42, "title": "Saisie"}}},
		})
	case r.Method == http.MethodPost && path == ":batchUpdate":
		var req gsheet.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, rq := range req.Requests {
			d := rq.DeleteDimension
			if d == nil || d.Range.SheetId != 42 {
				http.Error(w, "unsupported request", http.StatusBadRequest)
				return
			}
			f.rows = append(f.rows[:d.Range.StartIndex], f.rows[d.Range.EndIndex:]...)
		}
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": testSpreadsheet})
	case strings.HasPrefix(path, "/values/"):
		rng := strings.TrimPrefix(path, "/values/")
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(gsheet.ValueRange{Range: rng, MajorDimension: "ROWS", Values: f.rows})
		case http.MethodPost, http.MethodPut:
			var vr gsheet.ValueRange
			if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if r.Method == http.MethodPost {
				f.rows = append(f.rows, vr.Values...)
			} else {
				row := rowOf(rng)
				for len(f.rows) < row {
					f.rows = append(f.rows, []interface{}{})
				}
				f.rows[row-1] = vr.Values[0]
			}
			json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": testSpreadsheet})
		}
	default:
		http.NotFound(w, r)
	}
}

// rowOf extracts N from "Saisie!AN:ADN".
func rowOf(rng string) int {
	_, cell, _ := strings.Cut(rng, "!A")
	digits, _, _ := strings.Cut(cell, ":")
	n, _ := strconv.Atoi(digits)
	return n
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return NewWithService(svc, testSpreadsheet, "", log.Discard())
}

func TestClientRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	a := core.DailyRecord{Date: "02/09/2025", ChildrenCanteen: core.Float(80), CostOrganic: core.Float(120)}
	b := core.DailyRecord{Date: "01/09/2025", ChildrenAfterCare: core.Float(15)}
	if err := c.Upsert(ctx, a); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if err := c.Upsert(ctx, b); err != nil {
		t.Fatalf("upsert b: %v", err)
	}
	if len(fake.rows) != 3 || fake.rows[0][0] != core.DateHeader {
		t.Fatalf("expected header plus two rows, got %v", fake.rows)
	}

	a.ChildrenCanteen = core.Float(90)
	if err := c.Upsert(ctx, a); err != nil {
		t.Fatalf("update a: %v", err)
	}
	if len(fake.rows) != 3 {
		t.Fatalf("update should rewrite in place, got %d rows", len(fake.rows))
	}

	recs, err := c.ListRecords(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 || recs[0].Date != "01/09/2025" || *recs[1].ChildrenCanteen != 90 {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if recs[1].FoodCostPerChild == nil || *recs[1].FoodCostPerChild != 1.33 {
		t.Fatalf("derived fields missing: %+v", recs[1])
	}

	if _, err := c.Get(ctx, "05/09/2025"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	renamed := a
	renamed.Date = "03/09/2025"
	if err := c.Rename(ctx, "02/09/2025", renamed); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := c.Rename(ctx, "03/09/2025", core.DailyRecord{Date: "01/09/2025"}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := c.Rename(ctx, "02/09/2025", renamed); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got, err := c.Get(ctx, "03/09/2025"); err != nil || *got.ChildrenCanteen != 90 {
		t.Fatalf("renamed record: %+v %v", got, err)
	}

	if err := c.Delete(ctx, "01/09/2025"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := c.Delete(ctx, "01/09/2025"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(fake.rows) != 2 {
		t.Fatalf("expected header plus one row, got %v", fake.rows)
	}
}

func TestClientSkipsUnreadableRows(t *testing.T) {
	fake := &fakeSheets{rows: [][]interface{}{
		headerValues(),
		{"02/09/2025", "n/a"},
		{"03/09/2025", 10.0},
	}}
	c := newTestClient(t, fake)
	recs, err := c.ListRecords(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 || recs[0].Date != "03/09/2025" {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestClientCachesSheetID(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSheets{rows: [][]interface{}{headerValues(), {"01/09/2025"}, {"02/09/2025"}}}
	c := newTestClient(t, fake)
	for _, d := range []string{"01/09/2025", "02/09/2025"} {
		if err := c.Delete(ctx, d); err != nil {
			t.Fatalf("delete %s: %v", d, err)
		}
	}
	metadata := 0
	for _, call := range fake.calls {
		if call == "GET " {
			metadata++
		}
	}
	if metadata != 1 {
		t.Fatalf("spreadsheet metadata fetched %d times", metadata)
	}
}

func TestNewMissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{}, log.Discard())
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewMissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Options{SpreadsheetID: "id"}, log.Discard())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewUnreadableCredentialsFile(t *testing.T) {
	opts := Options{SpreadsheetID: "id", CredentialsFile: filepath.Join(t.TempDir(), "missing.json")}
	_, err := New(context.Background(), opts, log.Discard())
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientWithoutService(t *testing.T) {
	c := NewWithService(nil, "id", "", log.Discard())
	if _, err := c.ListRecords(context.Background()); err == nil {
		t.Fatal("expected error without a service")
	}
}
