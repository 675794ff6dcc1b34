package core

import (
	"math"
	"testing"
	"time"
)

func TestComputeSummaryEmpty(t *testing.T) {
	if got := ComputeSummary(nil); got != (Summary{}) {
		t.Fatalf("expected zero summary, got %+v", got)
	}
	// Days without any attendance count are ignored.
	got := ComputeSummary([]DailyRecord{{Date: "01/10/2025", CostOrganic: Float(40)}})
	if got != (Summary{}) {
		t.Fatalf("expected zero summary, got %+v", got)
	}
}

func TestComputeSummary(t *testing.T) {
	records := []DailyRecord{
		{
			Date:                 "01/10/2025",
			ChildrenCanteen:      Float(80),
			ChildrenAfterCare:    Float(20),
			CostOrganic:          Float(100),
			CostConventional:     Float(50),
			CostCertifiedQuality: Float(50),
			WastePrimaryWeightKg: Float(3),
		},
		{
			Date:                      "02/10/2025",
			ChildrenAfterCare:         Float(0),
			CostOrganic:               Float(50),
			WasteKindergartenWeightKg: Float(2),
		},
	}
	got := ComputeSummary(records)
	if got.DayCount != 2 || got.TotalChildren != 100 || got.TotalCost != 250 || got.TotalWaste != 5 {
		t.Fatalf("unexpected totals: %+v", got)
	}
	if got.AvgCostPerChild != 2.5 || got.AvgWastePerChild != 0.05 {
		t.Fatalf("unexpected averages: %+v", got)
	}
	if got.PercentOrganic != 60 {
		t.Fatalf("PercentOrganic = %v", got.PercentOrganic)
	}
}

func TestComputeSummaryZeroChildren(t *testing.T) {
	got := ComputeSummary([]DailyRecord{{Date: "01/10/2025", ChildrenCanteen: Float(0), CostOrganic: Float(10)}})
	if got.AvgCostPerChild != 0 || got.AvgWastePerChild != 0 {
		t.Fatalf("averages should be 0 without children: %+v", got)
	}
	if got.PercentOrganic != 100 || math.IsNaN(got.PercentOrganic) {
		t.Fatalf("PercentOrganic = %v", got.PercentOrganic)
	}
}

func TestSortByDate(t *testing.T) {
	records := []DailyRecord{
		{Date: "zz"},
		{Date: "02/01/2026"},
		{Date: "15/12/2025"},
		{Date: "aa"},
		{Date: "01/01/2026"},
	}
	SortByDate(records)
	want := []string{"15/12/2025", "01/01/2026", "02/01/2026", "aa", "zz"}
	for i, w := range want {
		if records[i].Date != w {
			t.Fatalf("position %d = %s, want %s", i, records[i].Date, w)
		}
	}
}

func TestBuildDashboard(t *testing.T) {
	records := []DailyRecord{
		{Date: "20/01/2026", ChildrenCanteen: Float(10), CostOrganic: Float(30)},
		{Date: "05/01/2026", ChildrenCanteen: Float(30), CostOrganic: Float(10)},
		{Date: "05/02/2026", ChildrenCanteen: Float(60), CostConventional: Float(60)},
		{Date: "14/07/2026", ChildrenCanteen: Float(5)},
		{Date: "bad", ChildrenCanteen: Float(5)},
	}
	d := BuildDashboard(records, MonthKey{Year: 2026, Month: time.January})

	if d.SelectedMonth != "2026-01" || d.SchoolYear != 2025 {
		t.Fatalf("unexpected header: %s %d", d.SelectedMonth, d.SchoolYear)
	}
	if len(d.MonthRecords) != 2 || d.MonthRecords[0].Date != "05/01/2026" {
		t.Fatalf("month records not filtered or sorted: %+v", d.MonthRecords)
	}
	if d.MonthSummary.TotalChildren != 40 || d.MonthSummary.TotalCost != 40 {
		t.Fatalf("month summary: %+v", d.MonthSummary)
	}
	if d.Summary.DayCount != 5 {
		t.Fatalf("overall summary should cover every record: %+v", d.Summary)
	}
	if d.Months[4].TotalCanteenChildren != 40 || d.Months[5].TotalCanteenChildren != 60 {
		t.Fatalf("monthly buckets: %+v", d.Months)
	}
	if d.Skipped.InvalidDate != 1 || d.Skipped.OutOfSchoolYear != 1 || d.Skipped.Total() != 2 {
		t.Fatalf("skip counts: %+v", d.Skipped)
	}

	*d.MonthRecords[0].ChildrenCanteen = 999
	if *records[1].ChildrenCanteen != 30 {
		t.Fatalf("dashboard must not alias input records")
	}
}

func TestBuildDashboardEmptyMonth(t *testing.T) {
	d := BuildDashboard(nil, MonthKey{Year: 2026, Month: time.August})
	if d.MonthRecords == nil || len(d.MonthRecords) != 0 {
		t.Fatalf("expected empty, non-nil month records")
	}
	if d.SchoolYear != 0 {
		t.Fatalf("August is outside any school year")
	}
}
