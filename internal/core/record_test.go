package core

import (
	"errors"
	"math"
	"testing"
)

func eqPtr(p *float64, want float64) bool {
	return p != nil && *p == want
}

func TestDeriveComputesTotalsAndRatios(t *testing.T) {
	r := DailyRecord{
		Date:                   "15/01/2026",
		ChildrenCanteen:        Float(100),
		ChildrenAfterCare:      Float(20),
		CostOrganic:            Float(200),
		CostConventional:       Float(100.004),
		StaffPersonalExpense:   Float(100),
		WastePrimaryChildCount: Float(3),
		WastePrimaryWeightKg:   Float(1),
	}
	r.Derive()

	if !eqPtr(r.TotalFoodCost, 300) {
		t.Fatalf("TotalFoodCost = %v", r.TotalFoodCost)
	}
	if !eqPtr(r.FoodCostPerChild, 2.5) || !eqPtr(r.AverageCostPerChild, 2.5) {
		t.Fatalf("per child cost = %v / %v", r.FoodCostPerChild, r.AverageCostPerChild)
	}
	if r.FoodCostPerChild == r.AverageCostPerChild {
		t.Fatalf("derived fields must not share storage")
	}
	if !eqPtr(r.StaffCostPerChild, 0.83) {
		t.Fatalf("StaffCostPerChild = %v", *r.StaffCostPerChild)
	}
	if !eqPtr(r.WastePrimaryPerChild, 0.333) {
		t.Fatalf("WastePrimaryPerChild = %v", r.WastePrimaryPerChild)
	}
	if r.WasteKindergartenPerChild != nil {
		t.Fatalf("kindergarten waste per child should be nil")
	}
}

func TestDeriveNullsWithoutData(t *testing.T) {
	r := DailyRecord{
		Date:                      "15/01/2026",
		CostOrganic:               Float(0),
		StaffPersonalExpense:      Float(50),
		WasteKindergartenWeightKg: Float(2),
		TotalFoodCost:             Float(99),
		FoodCostPerChild:          Float(99),
	}
	r.Derive()
	if r.TotalFoodCost != nil {
		t.Fatalf("TotalFoodCost should be nil when all costs are zero")
	}
	if r.FoodCostPerChild != nil || r.AverageCostPerChild != nil {
		t.Fatalf("per child cost should be nil with no children")
	}
	if r.StaffCostPerChild != nil {
		t.Fatalf("staff cost per child should be nil with no children")
	}
	if r.WasteKindergartenPerChild != nil {
		t.Fatalf("waste per child needs both count and weight")
	}
}

func TestDeriveZeroCostWithChildren(t *testing.T) {
	r := DailyRecord{Date: "15/01/2026", ChildrenCanteen: Float(10)}
	r.Derive()
	if r.TotalFoodCost != nil {
		t.Fatalf("TotalFoodCost should be nil")
	}
	if !eqPtr(r.FoodCostPerChild, 0) {
		t.Fatalf("FoodCostPerChild = %v, want 0", r.FoodCostPerChild)
	}
}

func TestDeriveTinyCostRoundsToZero(t *testing.T) {
	r := DailyRecord{Date: "15/01/2026", CostOrganic: Float(0.001)}
	r.Derive()
	if !eqPtr(r.TotalFoodCost, 0) {
		t.Fatalf("TotalFoodCost = %v, want 0", r.TotalFoodCost)
	}
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in     float64
		places int32
		want   float64
	}{
		{2.345, 2, 2.35},
		{-2.345, 2, -2.35},
		{0.0005, 3, 0.001},
		{1.005, 2, 1.01},
		{10, 2, 10},
	}
	for _, tc := range cases {
		if got := Round(tc.in, tc.places); got != tc.want {
			t.Fatalf("Round(%v, %d) = %v, want %v", tc.in, tc.places, got, tc.want)
		}
	}
	if got := Round(math.Inf(1), 2); !math.IsInf(got, 1) {
		t.Fatalf("Round(+Inf) = %v", got)
	}
}

func TestValidate(t *testing.T) {
	good := DailyRecord{Date: "01/09/2025", ChildrenCanteen: Float(0), WaterCostPerChild: Float(-0.1)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		r    DailyRecord
		want error
	}{
		{DailyRecord{Date: "31/02/2026"}, ErrInvalidDate},
		{DailyRecord{Date: "2026-02-01"}, ErrInvalidDate},
		{DailyRecord{Date: "01/02/2026", ChildrenCanteen: Float(-1)}, ErrNegativeValue},
		{DailyRecord{Date: "01/02/2026", CostOrganic: Float(-5)}, ErrNegativeValue},
		{DailyRecord{Date: "01/02/2026", StaffHoursWorked: Float(math.NaN())}, ErrNonFiniteValue},
		{DailyRecord{Date: "01/02/2026", FoodCostPerChild: Float(math.Inf(-1))}, ErrNonFiniteValue},
	}
	for i, tc := range cases {
		err := tc.r.Validate()
		if !errors.Is(err, tc.want) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := DailyRecord{Date: "01/10/2025", ChildrenCanteen: Float(5)}
	c := r.Clone()
	*c.ChildrenCanteen = 9
	if *r.ChildrenCanteen != 5 {
		t.Fatalf("clone shares pointers with original")
	}
}

func TestFieldTable(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range Fields {
		if seen[f.Key] {
			t.Fatalf("duplicate key %s", f.Key)
		}
		seen[f.Key] = true

		var r DailyRecord
		f.Set(&r, Float(1.5))
		if got := f.Get(&r); !eqPtr(got, 1.5) {
			t.Fatalf("field %s: getter does not read what setter wrote", f.Key)
		}
	}
	if h := Headers(); h[0] != DateHeader || len(h) != len(Fields)+1 {
		t.Fatalf("unexpected headers: %v", h)
	}
}
