package google

import (
	"errors"
	"testing"

	"cantine/internal/core"
)

func header() []interface{} { return headerValues() }

func TestParseRecords(t *testing.T) {
	values := [][]interface{}{
		header(),
		{"02/09/2025", 80.0, "20", "", "100,5"},
		{"03/09/2025", "abc"},
		{},
		{"02/09/2025", 1.0},
	}
	recs, err := parseRecords(values)
	var rowErrs rowErrors
	if !errors.As(err, &rowErrs) || len(rowErrs) != 1 || rowErrs[0].Line != 3 {
		t.Fatalf("expected one row error on line 3, got %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected the first 02/09/2025 row only, got %d records", len(recs))
	}
	r := recs[0]
	if *r.ChildrenCanteen != 80 || *r.ChildrenAfterCare != 20 || r.CostConventional != nil || *r.CostOrganic != 100.5 {
		t.Fatalf("unexpected record: %+v", r)
	}
	if r.TotalFoodCost == nil || *r.TotalFoodCost != 100.5 {
		t.Fatalf("derived fields should be computed on read")
	}
}

func TestParseRecordsEmptyAndBadHeader(t *testing.T) {
	recs, err := parseRecords(nil)
	if err != nil || recs == nil || len(recs) != 0 {
		t.Fatalf("empty sheet: %v %v", recs, err)
	}
	if _, err := parseRecords([][]interface{}{{"Jour", "Total"}}); err == nil {
		t.Fatal("expected error without a Date column")
	}
}

func TestFindRow(t *testing.T) {
	values := [][]interface{}{
		header(),
		{"01/09/2025"},
		{},
		{" 02/09/2025 ", 4.0},
	}
	cases := map[string]int{"01/09/2025": 2, "02/09/2025": 4, "03/09/2025": 0, "Date": 0}
	for date, want := range cases {
		if got := findRow(values, date); got != want {
			t.Errorf("findRow(%q) = %d, want %d", date, got, want)
		}
	}
}

func TestColumnName(t *testing.T) {
	cases := map[int]string{1: "A", 26: "Z", 27: "AA", 30: "AD", 52: "AZ", 703: "AAA"}
	for n, want := range cases {
		if got := columnName(n); got != want {
			t.Errorf("columnName(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestRecordValues(t *testing.T) {
	rec := core.DailyRecord{Date: "02/09/2025", ChildrenCanteen: core.Float(12)}
	row := recordValues(&rec)
	if len(row) != len(core.Fields)+1 {
		t.Fatalf("row has %d cells", len(row))
	}
	if row[0] != "02/09/2025" || row[1] != 12.0 || row[2] != "" {
		t.Fatalf("unexpected row start: %v", row[:3])
	}
}
