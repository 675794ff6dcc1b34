package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrNegativeValue   = errors.New("value must not be negative")
	ErrNonFiniteValue  = errors.New("value must be a finite number")
	ErrOutOfSchoolYear = errors.New("date is outside the school year (July/August)")
	ErrNotFound        = errors.New("record not found")
	ErrConflict        = errors.New("a record already exists for this date")
)

// DailyRecord is one day of canteen and after-care figures, keyed by Date
// (DD/MM/YYYY). A nil field means the value was not recorded.
type DailyRecord struct {
	Date string `json:"date"`

	ChildrenCanteen        *float64 `json:"childrenCanteen"`
	ChildrenAfterCare      *float64 `json:"childrenAfterCare"`
	PrimarySchoolActual    *float64 `json:"primarySchoolActual"`
	PrimarySchoolAt7h      *float64 `json:"primarySchoolAt7h"`
	KindergartenActual     *float64 `json:"kindergartenActual"`
	KindergartenAt7h       *float64 `json:"kindergartenAt7h"`
	AdultMeals             *float64 `json:"adultMeals"`
	WednesdayMeals         *float64 `json:"wednesdayMeals"`
	SpecialProgramChildren *float64 `json:"specialProgramChildren"`
	SpecialProgramAdults   *float64 `json:"specialProgramAdults"`

	CostOrganic          *float64 `json:"costOrganic"`
	CostConventional     *float64 `json:"costConventional"`
	CostCertifiedQuality *float64 `json:"costCertifiedQuality"`
	TotalFoodCost        *float64 `json:"totalFoodCost"`

	AverageCostPerChild           *float64 `json:"averageCostPerChild"`
	FoodCostPerChild              *float64 `json:"foodCostPerChild"`
	WaterCostPerChild             *float64 `json:"waterCostPerChild"`
	OrganicBreadCostPerChild      *float64 `json:"organicBreadCostPerChild"`
	ConventionalBreadCostPerChild *float64 `json:"conventionalBreadCostPerChild"`
	MaterialCostPerChild          *float64 `json:"materialCostPerChild"`
	StaffCostPerChild             *float64 `json:"staffCostPerChild"`

	StaffHoursWorked     *float64 `json:"staffHoursWorked"`
	StaffPersonalExpense *float64 `json:"staffPersonalExpense"`

	WastePrimaryChildCount      *float64 `json:"wastePrimaryChildCount"`
	WastePrimaryWeightKg        *float64 `json:"wastePrimaryWeightKg"`
	WastePrimaryPerChild        *float64 `json:"wastePrimaryPerChild"`
	WasteKindergartenChildCount *float64 `json:"wasteKindergartenChildCount"`
	WasteKindergartenWeightKg   *float64 `json:"wasteKindergartenWeightKg"`
	WasteKindergartenPerChild   *float64 `json:"wasteKindergartenPerChild"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// val treats nil as zero.
func val(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Round rounds v half away from zero to places decimals.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// TotalChildren is canteen plus after-care attendance, nil counted as zero.
func (r DailyRecord) TotalChildren() float64 {
	return val(r.ChildrenCanteen) + val(r.ChildrenAfterCare)
}

// Validate checks the date key and the sign and finiteness of every field.
func (r DailyRecord) Validate() error {
	if !IsValidDate(r.Date) {
		return fmt.Errorf("%w: %q (expected DD/MM/YYYY)", ErrInvalidDate, r.Date)
	}
	for _, f := range Fields {
		p := f.Get(&r)
		if p == nil {
			continue
		}
		if math.IsNaN(*p) || math.IsInf(*p, 0) {
			return fmt.Errorf("%s: %w", f.Key, ErrNonFiniteValue)
		}
		if f.Kind.NonNegative() && *p < 0 {
			return fmt.Errorf("%s: %w", f.Key, ErrNegativeValue)
		}
	}
	return nil
}

// Derive recomputes the derived fields. It is applied on every save.
func (r *DailyRecord) Derive() {
	children := r.TotalChildren()

	sum := val(r.CostOrganic) + val(r.CostConventional) + val(r.CostCertifiedQuality)
	total := Round(sum, 2)
	if sum == 0 {
		r.TotalFoodCost = nil
	} else {
		r.TotalFoodCost = Float(total)
	}

	// averageCostPerChild and foodCostPerChild share one formula.
	perChild := costPerChild(total, children)
	r.FoodCostPerChild = perChild
	r.AverageCostPerChild = copyFloat(perChild)

	if children > 0 && r.StaffPersonalExpense != nil {
		r.StaffCostPerChild = Float(Round(*r.StaffPersonalExpense/children, 2))
	} else {
		r.StaffCostPerChild = nil
	}

	r.WastePrimaryPerChild = wastePerChild(r.WastePrimaryWeightKg, r.WastePrimaryChildCount)
	r.WasteKindergartenPerChild = wastePerChild(r.WasteKindergartenWeightKg, r.WasteKindergartenChildCount)
}

func costPerChild(total, children float64) *float64 {
	if children <= 0 {
		return nil
	}
	return Float(Round(total/children, 2))
}

func wastePerChild(weight, count *float64) *float64 {
	if weight == nil || count == nil || *count <= 0 {
		return nil
	}
	return Float(Round(*weight / *count, 3))
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return Float(*p)
}

// Clone returns a deep copy of r.
func (r DailyRecord) Clone() DailyRecord {
	out := DailyRecord{Date: r.Date}
	for _, f := range Fields {
		f.Set(&out, copyFloat(f.Get(&r)))
	}
	return out
}
