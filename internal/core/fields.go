package core

// FieldKind classifies a numeric field for validation and formatting.
type FieldKind int

const (
	KindCount FieldKind = iota
	KindWeight
	KindHours
	KindCost
	KindPerChild
)

// NonNegative reports whether values of this kind must be >= 0.
func (k FieldKind) NonNegative() bool {
	return k != KindPerChild
}

// Field maps one DailyRecord numeric field to its external column.
type Field struct {
	Key     string // JSON key and SQL column suffix
	Column  string // SQL column
	Header  string // CSV / spreadsheet header
	Kind    FieldKind
	Derived bool // recomputed by Derive, never trusted from input
	Get     func(*DailyRecord) *float64
	Set     func(*DailyRecord, *float64)
}

// DateHeader is the header of the key column in every tabular format.
const DateHeader = "Date"

// Fields lists every numeric field in canonical column order. CSV, XLSX,
// Google Sheets and SQLite mappings all follow this order.
var Fields = []Field{
	{Key: "childrenCanteen", Column: "children_canteen", Header: "Nb enfants cantine", Kind: KindCount,
		Get: func(r *DailyRecord) *float64 { return r.ChildrenCanteen }, Set: func(r *DailyRecord, v *float64) { r.ChildrenCanteen = v }},
	{Key: "childrenAfterCare", Column: "children_after_care", Header: "Nb enfants ALSH", Kind: KindCount,
		Get: func(r *DailyRecord) *float64 { return r.ChildrenAfterCare }, Set: func(r *DailyRecord, v *float64) { r.ChildrenAfterCare = v }},
	{Key: "costConventional", Column: "cost_conventional", Header: "Coût conventionnel", Kind: KindCost,
		Get: func(r *DailyRecord) *float64 { return r.CostConventional }, Set: func(r *DailyRecord, v *float64) { r.CostConventional = v }},
	{Key: "costOrganic", Column: "cost_organic", Header: "Coût bio", Kind: KindCost,
		Get: func(r *DailyRecord) *float64 { return r.CostOrganic }, Set: func(r *DailyRecord, v *float64) { r.CostOrganic = v }},
	{Key: "costCertifiedQuality", Column: "cost_certified_quality", Header: "Coût SIQO", Kind: KindCost,
		Get: func(r *DailyRecord) *float64 { return r.CostCertifiedQuality }, Set: func(r *DailyRecord, v *float64) { r.CostCertifiedQuality = v }},
	{Key: "totalFoodCost", Column: "total_food_cost", Header: "Total food cost", Kind: KindCost, Derived: true,
		Get: func(r *DailyRecord) *float64 { return r.TotalFoodCost }, Set: func(r *DailyRecord, v *float64) { r.TotalFoodCost = v }},
	{Key: "averageCostPerChild", Column: "average_cost_per_child", Header: "Prix de revient moyen", Kind: KindPerChild, Derived: true,
		Get: func(r *DailyRecord) *float64 { return r.AverageCostPerChild }, Set: func(r *DailyRecord, v *float64) { r.AverageCostPerChild = v }},
	{Key: "foodCostPerChild", Column: "food_cost_per_child", Header: "Coût denrées par enfant", Kind: KindPerChild, Derived: true,
		Get: func(r *DailyRecord) *float64 { return r.FoodCostPerChild }, Set: func(r *DailyRecord, v *float64) { r.FoodCostPerChild = v }},
	{Key: "waterCostPerChild", Column: "water_cost_per_child", Header: "Coût eau par enfant", Kind: KindPerChild,
		Get: func(r *DailyRecord) *float64 { return r.WaterCostPerChild }, Set: func(r *DailyRecord, v *float64) { r.WaterCostPerChild = v }},
	{Key: "organicBreadCostPerChild", Column: "organic_bread_cost_per_child", Header: "Coût pain bio par enfant", Kind: KindPerChild,
		Get: func(r *DailyRecord) *float64 { return r.OrganicBreadCostPerChild }, Set: func(r *DailyRecord, v *float64) { r.OrganicBreadCostPerChild = v }},
	{Key: "conventionalBreadCostPerChild", Column: "conventional_bread_cost_per_child", Header: "Coût pain conventionnel par enfant", Kind: KindPerChild,
		Get: func(r *DailyRecord) *float64 { return r.ConventionalBreadCostPerChild }, Set: func(r *DailyRecord, v *float64) { r.ConventionalBreadCostPerChild = v }},
	{Key: "materialCostPerChild", Column: "material_cost_per_child", Header: "Coût matériel par enfant", Kind: KindPerChild,
		Get: func(r *DailyRecord) *float64 { return r.MaterialCostPerChild }, Set: func(r *DailyRecord, v *float64) { r.MaterialCostPerChild = v }},
	{Key: "staffHoursWorked", Column: "staff_hours_worked", Header: "Heures de travail agent", Kind: KindHours,
		Get: func(r *DailyRecord) *float64 { return r.StaffHoursWorked }, Set: func(r *DailyRecord, v *float64) { r.StaffHoursWorked = v }},
	{Key: "staffPersonalExpense", Column: "staff_personal_expense", Header: "Frais de personnel agent", Kind: KindCost,
		Get: func(r *DailyRecord) *float64 { return r.StaffPersonalExpense }, Set: func(r *DailyRecord, v *float64) { r.StaffPersonalExpense = v }},
	{Key: "staffCostPerChild", Column: "staff_cost_per_child", Header: "Coût personnel par enfant", Kind: KindPerChild, Derived: true,
		Get: func(r *DailyRecord) *float64 { return r.StaffCostPerChild }, Set: func(r *DailyRecord, v *float64) { r.StaffCostPerChild = v }},
	{Key: "primarySchoolActual", Column: "primary_school_actual", Header: "Primaires réel", Kind: KindCount,
		Get: func(r *DailyRecord) *float64 { return r.PrimarySchoolActual }, Set: func(r *DailyRecord, v *float64) { r.PrimarySchoolActual = v }},
	{Key: "primarySchoolAt7h", Column: "primary_school_at_7h", Header: "Primaires à 7h", Kind: KindCount,
		Get: func(r *DailyRecord) *float64 { return r.PrimarySchoolAt7h }, Set: func(r *DailyRecord, v *float64) { r.PrimarySchoolAt7h = v }},
	{Key: "kindergartenActual", Column: "kindergarten_actual", Header: "Maternelles réel", Kind: KindCount,
		Get: func(r *DailyRecord) *float64 { return r.KindergartenActual }, Set: func(r *DailyRecord, v *float64) { r.KindergartenActual = v }},
	{Key: "kindergartenAt7h", Column: "kindergarten_at_7h", Header: "Maternelles à 7h", Kind: KindCount,
		Get: func(r *DailyRecord) *float64 { return r.KindergartenAt7h }, Set: func(r *DailyRecord, v *float64) { r.KindergartenAt7h = v }},
	{Key: "adultMeals", Column: "adult_meals", Header: "Repas adultes", Kind: KindCount,
		Get: func(r *DailyRecord) *float64 { return r.AdultMeals }, Set: func(r *DailyRecord, v *float64) { r.AdultMeals = v }},
	{Key: "wednesdayMeals", Column: "wednesday_meals", Header: "Mercredi", Kind: KindCount,
		Get: func(r *DailyRecord) *float64 { return r.WednesdayMeals }, Set: func(r *DailyRecord, v *float64) { r.WednesdayMeals = v }},
	{Key: "specialProgramChildren", Column: "special_program_children", Header: "O Merveilles ALSH", Kind: KindCount,
		Get: func(r *DailyRecord) *float64 { return r.SpecialProgramChildren }, Set: func(r *DailyRecord, v *float64) { r.SpecialProgramChildren = v }},
	{Key: "specialProgramAdults", Column: "special_program_adults", Header: "Adultes O Merveilles ALSH", Kind: KindCount,
		Get: func(r *DailyRecord) *float64 { return r.SpecialProgramAdults }, Set: func(r *DailyRecord, v *float64) { r.SpecialProgramAdults = v }},
	{Key: "wastePrimaryChildCount", Column: "waste_primary_child_count", Header: "Waste primaires nb enfants", Kind: KindCount,
		Get: func(r *DailyRecord) *float64 { return r.WastePrimaryChildCount }, Set: func(r *DailyRecord, v *float64) { r.WastePrimaryChildCount = v }},
	{Key: "wastePrimaryWeightKg", Column: "waste_primary_weight_kg", Header: "Waste primaires poids (kg)", Kind: KindWeight,
		Get: func(r *DailyRecord) *float64 { return r.WastePrimaryWeightKg }, Set: func(r *DailyRecord, v *float64) { r.WastePrimaryWeightKg = v }},
	{Key: "wastePrimaryPerChild", Column: "waste_primary_per_child", Header: "Waste primaires par enfant (kg)", Kind: KindWeight, Derived: true,
		Get: func(r *DailyRecord) *float64 { return r.WastePrimaryPerChild }, Set: func(r *DailyRecord, v *float64) { r.WastePrimaryPerChild = v }},
	{Key: "wasteKindergartenChildCount", Column: "waste_kindergarten_child_count", Header: "Waste maternelles nb enfants", Kind: KindCount,
		Get: func(r *DailyRecord) *float64 { return r.WasteKindergartenChildCount }, Set: func(r *DailyRecord, v *float64) { r.WasteKindergartenChildCount = v }},
	{Key: "wasteKindergartenWeightKg", Column: "waste_kindergarten_weight_kg", Header: "Waste maternelles poids (kg)", Kind: KindWeight,
		Get: func(r *DailyRecord) *float64 { return r.WasteKindergartenWeightKg }, Set: func(r *DailyRecord, v *float64) { r.WasteKindergartenWeightKg = v }},
	{Key: "wasteKindergartenPerChild", Column: "waste_kindergarten_per_child", Header: "Waste maternelles par enfant (kg)", Kind: KindWeight, Derived: true,
		Get: func(r *DailyRecord) *float64 { return r.WasteKindergartenPerChild }, Set: func(r *DailyRecord, v *float64) { r.WasteKindergartenPerChild = v }},
}

// Headers returns the full tabular header row, date column first.
func Headers() []string {
	out := make([]string, 0, len(Fields)+1)
	out = append(out, DateHeader)
	for _, f := range Fields {
		out = append(out, f.Header)
	}
	return out
}
