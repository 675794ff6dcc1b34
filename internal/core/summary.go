package core

import (
	"sort"
	"time"
)

// Summary holds the headline figures of a set of days. Values are unrounded.
type Summary struct {
	TotalChildren    float64 `json:"totalChildren"`
	TotalCost        float64 `json:"totalCost"`
	AvgCostPerChild  float64 `json:"avgCostPerChild"`
	PercentOrganic   float64 `json:"percentOrganic"`
	TotalWaste       float64 `json:"totalWaste"`
	AvgWastePerChild float64 `json:"avgWastePerChild"`
	DayCount         int     `json:"dayCount"`
}

// ComputeSummary reduces records to headline totals. Only days with a canteen
// or after-care count are considered; ratios fall back to 0 on an empty base.
func ComputeSummary(records []DailyRecord) Summary {
	var s Summary
	var organic float64
	for i := range records {
		r := &records[i]
		if r.ChildrenCanteen == nil && r.ChildrenAfterCare == nil {
			continue
		}
		s.DayCount++
		s.TotalChildren += r.TotalChildren()
		organic += val(r.CostOrganic)
		s.TotalCost += val(r.CostOrganic) + val(r.CostConventional) + val(r.CostCertifiedQuality)
		s.TotalWaste += val(r.WastePrimaryWeightKg) + val(r.WasteKindergartenWeightKg)
	}
	if s.TotalChildren > 0 {
		s.AvgCostPerChild = s.TotalCost / s.TotalChildren
		s.AvgWastePerChild = s.TotalWaste / s.TotalChildren
	}
	if s.TotalCost > 0 {
		s.PercentOrganic = 100 * organic / s.TotalCost
	}
	return s
}

// Time returns the calendar date of the record, false when the key is not a
// real date.
func (r DailyRecord) Time() (time.Time, bool) {
	return parseCalendarDate(r.Date)
}

// SortByDate orders records chronologically in place. Records with an
// unusable date go last, ordered by key.
func SortByDate(records []DailyRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, oki := records[i].Time()
		tj, okj := records[j].Time()
		switch {
		case oki && okj:
			return ti.Before(tj)
		case oki != okj:
			return oki
		default:
			return records[i].Date < records[j].Date
		}
	})
}

// Dashboard is everything the dashboard view needs for one selected month.
type Dashboard struct {
	SelectedMonth string                     `json:"selectedMonth"`
	SchoolYear    int                        `json:"schoolYear,omitempty"`
	Months        [BucketCount]MonthlyBucket `json:"months"`
	Summary       Summary                    `json:"summary"`
	MonthSummary  Summary                    `json:"monthSummary"`
	MonthRecords  []DailyRecord              `json:"monthRecords"`
	Skipped       SkipCounts                 `json:"skipped"`
}

// SkipCounts reports records left out of the monthly buckets.
type SkipCounts struct {
	InvalidDate     int `json:"invalidDate"`
	OutOfSchoolYear int `json:"outOfSchoolYear"`
}

// Total is the number of records left out of every bucket.
func (c SkipCounts) Total() int {
	return c.InvalidDate + c.OutOfSchoolYear
}

// BuildDashboard assembles the dashboard for the given month from a snapshot
// of records. The input slice is not modified.
func BuildDashboard(records []DailyRecord, selected MonthKey) Dashboard {
	rep := AggregateReport(records)

	var month []DailyRecord
	for i := range records {
		t, ok := records[i].Time()
		if ok && selected.Contains(t) {
			month = append(month, records[i].Clone())
		}
	}
	SortByDate(month)
	if month == nil {
		month = []DailyRecord{}
	}

	d := Dashboard{
		SelectedMonth: selected.String(),
		Months:        rep.Buckets,
		Summary:       ComputeSummary(records),
		MonthSummary:  ComputeSummary(month),
		MonthRecords:  month,
		Skipped: SkipCounts{
			InvalidDate:     rep.SkippedInvalidDate,
			OutOfSchoolYear: rep.SkippedOutOfYear,
		},
	}
	first := time.Date(selected.Year, selected.Month, 1, 0, 0, 0, 0, time.UTC)
	if y, ok := SchoolYearOf(first); ok {
		d.SchoolYear = y
	}
	return d
}
