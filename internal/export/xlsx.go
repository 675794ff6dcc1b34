// Package export renders records and monthly buckets as an Excel workbook
// and reads uploaded workbooks back into rows.
package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"cantine/internal/core"
)

const (
	SheetDays   = "Jours"
	SheetMonths = "Mois"
)

// MonthHeaders are the column titles of the Mois sheet.
var MonthHeaders = []string{
	"Mois",
	"Coût bio", "Coût conventionnel", "Coût SIQO",
	"Enfants cantine", "Enfants ALSH", "Enfants mercredi",
	"Élémentaire", "Maternelle",
	"Gaspillage élémentaire (kg)", "Gaspillage maternelle (kg)",
	"Heures agent", "Frais agent",
	"Heures cantine", "Heures ALSH", "Heures mercredi",
	"Frais cantine", "Frais ALSH", "Frais mercredi",
}

func monthRow(b core.MonthlyBucket) []any {
	return []any{
		b.Label,
		b.TotalOrganicCost, b.TotalConventionalCost, b.TotalCertifiedQualityCost,
		b.TotalCanteenChildren, b.TotalAfterCareChildren, b.TotalWednesdayChildren,
		b.TotalPrimary, b.TotalKindergarten,
		b.TotalPrimaryWaste, b.TotalKindergartenWaste,
		b.TotalStaffHours, b.TotalStaffExpense,
		b.StaffHoursCanteen, b.StaffHoursAfterCare, b.StaffHoursWednesday,
		b.StaffExpenseCanteen, b.StaffExpenseAfterCare, b.StaffExpenseWednesday,
	}
}

// WriteWorkbook writes a workbook with one row per record on the Jours sheet
// and the ten school-year buckets on the Mois sheet.
func WriteWorkbook(w io.Writer, records []core.DailyRecord, months [core.BucketCount]core.MonthlyBucket) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetDays); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetMonths); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := writeRow(f, SheetDays, 1, toAny(core.Headers())); err != nil {
		return err
	}
	for i := range records {
		if err := writeRow(f, SheetDays, i+2, dayRow(&records[i])); err != nil {
			return err
		}
	}

	if err := writeRow(f, SheetMonths, 1, toAny(MonthHeaders)); err != nil {
		return err
	}
	for i, b := range months {
		if err := writeRow(f, SheetMonths, i+2, monthRow(b)); err != nil {
			return err
		}
	}

	_ = f.SetPanes(SheetDays, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func dayRow(r *core.DailyRecord) []any {
	row := make([]any, 0, len(core.Fields)+1)
	row = append(row, r.Date)
	for _, fld := range core.Fields {
		if v := fld.Get(r); v != nil {
			row = append(row, *v)
		} else {
			row = append(row, nil)
		}
	}
	return row
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// ReadRows returns the cell text of the Jours sheet of an uploaded workbook,
// or of its first sheet when there is no Jours sheet.
func ReadRows(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := SheetDays
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("no worksheet found")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("worksheet is empty")
	}
	return rows, nil
}
