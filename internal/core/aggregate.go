package core

// MonthlyBucket holds the sums of one school-year month.
type MonthlyBucket struct {
	Label      string `json:"month"`
	MonthIndex int    `json:"monthIndex"`

	TotalOrganicCost          float64 `json:"totalOrganicCost"`
	TotalConventionalCost     float64 `json:"totalConventionalCost"`
	TotalCertifiedQualityCost float64 `json:"totalCertifiedQualityCost"`

	TotalCanteenChildren   float64 `json:"totalCanteenChildren"`
	TotalAfterCareChildren float64 `json:"totalAfterCareChildren"`
	TotalWednesdayChildren float64 `json:"totalWednesdayChildren"`
	TotalPrimary           float64 `json:"totalPrimary"`
	TotalKindergarten      float64 `json:"totalKindergarten"`

	TotalPrimaryWaste      float64 `json:"totalPrimaryWaste"`
	TotalKindergartenWaste float64 `json:"totalKindergartenWaste"`

	TotalStaffHours   float64 `json:"totalStaffHours"`
	TotalStaffExpense float64 `json:"totalStaffExpense"`

	StaffHoursCanteen     float64 `json:"staffHoursCanteen"`
	StaffHoursAfterCare   float64 `json:"staffHoursAfterCare"`
	StaffHoursWednesday   float64 `json:"staffHoursWednesday"`
	StaffExpenseCanteen   float64 `json:"staffExpenseCanteen"`
	StaffExpenseAfterCare float64 `json:"staffExpenseAfterCare"`
	StaffExpenseWednesday float64 `json:"staffExpenseWednesday"`
}

// AggregationReport is the result of AggregateReport: the buckets plus the
// number of records that could not be placed in any of them.
type AggregationReport struct {
	Buckets            [BucketCount]MonthlyBucket `json:"buckets"`
	Aggregated         int                        `json:"aggregated"`
	SkippedInvalidDate int                        `json:"skippedInvalidDate"`
	SkippedOutOfYear   int                        `json:"skippedOutOfSchoolYear"`
}

// AggregateByMonth sums records into the ten school-year buckets, September
// first. Records with an unusable date or dated July/August are ignored.
func AggregateByMonth(records []DailyRecord) [BucketCount]MonthlyBucket {
	return AggregateReport(records).Buckets
}

// AggregateReport is AggregateByMonth with skip counters.
func AggregateReport(records []DailyRecord) AggregationReport {
	var rep AggregationReport
	for i := range rep.Buckets {
		rep.Buckets[i] = MonthlyBucket{Label: BucketLabels[i], MonthIndex: i}
	}

	for i := range records {
		r := &records[i]
		t, ok := parseCalendarDate(r.Date)
		if !ok {
			rep.SkippedInvalidDate++
			continue
		}
		idx, ok := BucketIndexOf(t)
		if !ok {
			rep.SkippedOutOfYear++
			continue
		}
		rep.Buckets[idx].add(r)
		rep.Aggregated++
	}
	return rep
}

func (b *MonthlyBucket) add(r *DailyRecord) {
	b.TotalOrganicCost += val(r.CostOrganic)
	b.TotalConventionalCost += val(r.CostConventional)
	b.TotalCertifiedQualityCost += val(r.CostCertifiedQuality)

	b.TotalCanteenChildren += val(r.ChildrenCanteen)
	b.TotalAfterCareChildren += val(r.ChildrenAfterCare)
	b.TotalWednesdayChildren += val(r.WednesdayMeals)
	b.TotalPrimary += val(r.PrimarySchoolActual)
	b.TotalKindergarten += val(r.KindergartenActual)

	b.TotalPrimaryWaste += val(r.WastePrimaryWeightKg)
	b.TotalKindergartenWaste += val(r.WasteKindergartenWeightKg)

	hours := val(r.StaffHoursWorked)
	expense := val(r.StaffPersonalExpense)
	b.TotalStaffHours += hours
	b.TotalStaffExpense += expense

	// Presence, not positivity: a recorded zero still marks the service as open.
	if r.ChildrenCanteen != nil {
		b.StaffHoursCanteen += hours
		b.StaffExpenseCanteen += expense
	}
	if r.ChildrenAfterCare != nil {
		b.StaffHoursAfterCare += hours
		b.StaffExpenseAfterCare += expense
	}
	if r.WednesdayMeals != nil && *r.WednesdayMeals > 0 {
		b.StaffHoursWednesday += hours
		b.StaffExpenseWednesday += expense
	}
}
