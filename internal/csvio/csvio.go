// Package csvio reads and writes daily records as semicolon separated text
// with one column per field of core.Fields.
package csvio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cantine/internal/core"
)

const bom = "\ufeff"

// Comma is the field separator of exported files.
const Comma = ';'

var ErrMissingDateColumn = errors.New("csv: no Date column in header")

// RowError describes a line that could not be turned into a record.
type RowError struct {
	Line int    `json:"line"`
	Date string `json:"date,omitempty"`
	Err  string `json:"error"`
}

func (e RowError) Error() string {
	if e.Date != "" {
		return fmt.Sprintf("line %d (%s): %s", e.Line, e.Date, e.Err)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

// Result is the outcome of parsing a file. Rows that failed are reported in
// Errors; the others are in Records in file order.
type Result struct {
	Records []core.DailyRecord `json:"-"`
	Lines   []int              `json:"-"`
	Errors  []RowError         `json:"errors"`
}

// Write emits a UTF-8 BOM, the header row and one row per record. Missing
// values are written as empty cells.
func Write(w io.Writer, records []core.DailyRecord) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(bom); err != nil {
		return err
	}
	cw := csv.NewWriter(bw)
	cw.Comma = Comma
	if err := cw.Write(core.Headers()); err != nil {
		return err
	}
	for i := range records {
		if err := cw.Write(Row(&records[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

// Row renders one record in header order.
func Row(r *core.DailyRecord) []string {
	row := make([]string, 0, len(core.Fields)+1)
	row = append(row, r.Date)
	for _, f := range core.Fields {
		row = append(row, FormatNumber(f.Get(r)))
	}
	return row
}

// FormatNumber renders v with a dot separator and no trailing zeros.
func FormatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// ParseNumber accepts both "12.5" and "12,5". Blank cells are nil.
func ParseNumber(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "").Replace(s)
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	return &v, nil
}

// Read parses a semicolon or comma separated file. The separator is guessed
// from the header line and a leading BOM is ignored.
func Read(r io.Reader) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte(bom))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffComma(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("parse csv: %w", err)
	}
	return ParseRows(rows)
}

func sniffComma(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte{';'}) >= bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

// ParseRows maps a header row plus data rows to records. Columns are found
// by header text or JSON key, so order does not matter and unknown columns
// are ignored.
func ParseRows(rows [][]string) (Result, error) {
	var res Result
	if len(rows) == 0 {
		return res, ErrMissingDateColumn
	}

	dateCol := -1
	type column struct {
		idx   int
		field core.Field
	}
	var cols []column
	for i, h := range rows[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, bom))
		if strings.EqualFold(h, core.DateHeader) || strings.EqualFold(h, "date") {
			dateCol = i
			continue
		}
		if f, ok := lookup(h); ok {
			cols = append(cols, column{i, f})
		}
	}
	if dateCol < 0 {
		return res, ErrMissingDateColumn
	}

	for n, row := range rows[1:] {
		line := n + 2
		if blank(row) {
			continue
		}
		rec := core.DailyRecord{}
		if dateCol < len(row) {
			rec.Date = strings.TrimSpace(row[dateCol])
		}
		var rowErr error
		for _, c := range cols {
			if c.idx >= len(row) {
				continue
			}
			v, err := ParseNumber(row[c.idx])
			if err != nil {
				rowErr = fmt.Errorf("%s: %w", c.field.Header, err)
				break
			}
			c.field.Set(&rec, v)
		}
		if rowErr != nil {
			res.Errors = append(res.Errors, RowError{Line: line, Date: rec.Date, Err: rowErr.Error()})
			continue
		}
		res.Records = append(res.Records, rec)
		res.Lines = append(res.Lines, line)
	}
	return res, nil
}

var headerIndex = func() map[string]core.Field {
	m := make(map[string]core.Field, 2*len(core.Fields))
	for _, f := range core.Fields {
		m[strings.ToLower(f.Header)] = f
		m[strings.ToLower(f.Key)] = f
	}
	return m
}()

func lookup(h string) (core.Field, bool) {
	f, ok := headerIndex[strings.ToLower(h)]
	return f, ok
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
