package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"cantine/internal/core"
	"cantine/internal/log"
	"cantine/internal/records"
	"cantine/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client stores daily records as rows of one sheet: a header row followed by
// one row per date, columns in core.Headers order.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger

	// Serialises find-then-write sequences.
	mu      sync.Mutex
	sheetID *int64
}

// Ensure interface conformance
var (
	_ records.Store = (*Client)(nil)
	_ sheets.Mirror = (*Client)(nil)
)

// Options selects the spreadsheet and the service account used to reach it.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, opts.SpreadsheetID, opts.SheetName, logger), nil
}

// NewWithService wraps an existing service. An empty sheet name means "Saisie".
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string, logger *log.Logger) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Saisie"
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		sheetName:     strings.TrimSpace(sheetName),
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Inline JSON wins over a file; GOOGLE_APPLICATION_CREDENTIALS is the last resort.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(opts.CredentialsJSON))
	file := strings.TrimSpace(opts.CredentialsFile)
	if len(credentialsJSON) == 0 && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case len(credentialsJSON) > 0:
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) fullRange() string {
	return fmt.Sprintf("%s!A:%s", c.sheetName, columnName(len(core.Fields)+1))
}

func (c *Client) rowRange(row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", c.sheetName, row, columnName(len(core.Fields)+1), row)
}

func (c *Client) readValues(ctx context.Context) ([][]interface{}, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := c.fullRange()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// ListRecords reads every row below the header. Rows that do not parse are
// logged and skipped; a repeated date keeps its first row.
func (c *Client) ListRecords(ctx context.Context) ([]core.DailyRecord, error) {
	values, err := c.readValues(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := parseRecords(values)
	if err != nil {
		var rowErrs rowErrors
		if !errors.As(err, &rowErrs) {
			return nil, err
		}
		for _, re := range rowErrs {
			c.logger.WarnContext(ctx, "Skipping unreadable sheet row",
				"line", re.Line,
				log.FieldDate, re.Date,
				log.FieldError, re.Err)
		}
	}
	core.SortByDate(recs)
	return recs, nil
}

func (c *Client) Get(ctx context.Context, date string) (core.DailyRecord, error) {
	recs, err := c.ListRecords(ctx)
	if err != nil {
		return core.DailyRecord{}, err
	}
	for _, r := range recs {
		if r.Date == date {
			return r, nil
		}
	}
	return core.DailyRecord{}, fmt.Errorf("record %s: %w", date, core.ErrNotFound)
}

// Upsert rewrites the row holding rec.Date or appends one. The header row is
// written first when the sheet is empty.
func (c *Client) Upsert(ctx context.Context, rec core.DailyRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	values, err := c.readValues(ctx)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		if err := c.writeRow(ctx, 1, headerValues()); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if row := findRow(values, rec.Date); row > 0 {
		return c.writeRow(ctx, row, recordValues(&rec))
	}
	return c.appendRow(ctx, recordValues(&rec))
}

// Delete removes the row holding date.
func (c *Client) Delete(ctx context.Context, date string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	values, err := c.readValues(ctx)
	if err != nil {
		return err
	}
	row := findRow(values, date)
	if row == 0 {
		return fmt.Errorf("row %s: %w", date, core.ErrNotFound)
	}
	return c.deleteRow(ctx, row)
}

// Rename rewrites the row of oldDate in place with rec.
func (c *Client) Rename(ctx context.Context, oldDate string, rec core.DailyRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	values, err := c.readValues(ctx)
	if err != nil {
		return err
	}
	row := findRow(values, oldDate)
	if row == 0 {
		return fmt.Errorf("record %s: %w", oldDate, core.ErrNotFound)
	}
	if rec.Date != oldDate && findRow(values, rec.Date) > 0 {
		return fmt.Errorf("record %s: %w", rec.Date, core.ErrConflict)
	}
	return c.writeRow(ctx, row, recordValues(&rec))
}

func (c *Client) writeRow(ctx context.Context, row int, cells []interface{}) error {
	rng := c.rowRange(row)
	vr := &gsheet.ValueRange{Values: [][]interface{}{cells}}
	// RAW keeps "02/09/2025" a string instead of a locale-dependent date.
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) appendRow(ctx context.Context, cells []interface{}) error {
	rng := c.fullRange()
	vr := &gsheet.ValueRange{Values: [][]interface{}{cells}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", c.sheetName, err)
	}
	return nil
}

func (c *Client) deleteRow(ctx context.Context, row int) error {
	id, err := c.lookupSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    id,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete row %d of %s: %w", row, c.sheetName, err)
	}
	return nil
}

// lookupSheetID resolves the numeric id of the sheet, needed by structural
// requests. The result is cached for the life of the client.
func (c *Client) lookupSheetID(ctx context.Context) (int64, error) {
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			id := sh.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}
