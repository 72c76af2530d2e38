// Package excel renders record rosters as XLSX workbooks.
package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"cardiotrack/internal/patient/models"
	reportmodels "cardiotrack/internal/report/models"
)

const (
	RosterSheet   = "Patient Predictions"
	HighRiskSheet = "High Risk Patients"

	maxColumnWidth = 50
)

var rosterHeaders = []string{
	"ID", "Patient ID", "Patient Name", "Age", "Gender", "Phone",
	"Chest Pain Type", "Blood Pressure", "Cholesterol", "Heart Rate",
	"Prediction", "Risk %", "Doctor Notes", "Date",
}

var highRiskHeaders = []string{
	"Patient ID", "Name", "Phone", "Age", "Gender",
	"Risk %", "BP", "Cholesterol", "Latest Checkup", "Doctor Notes",
}

const (
	rosterPredictionCol = 11
	highRiskPercentCol  = 6
)

// Risk tiers applied to the Risk % column of the high-risk roster.
const (
	CriticalRiskPercent = 80.0
	ElevatedRiskPercent = 60.0
)

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

func leftAligned() *excelize.Alignment {
	return &excelize.Alignment{Horizontal: "left", Vertical: "center"}
}

// Roster renders every record with its owner.
func Roster(rows []reportmodels.OwnedRecord) ([]byte, error) {
	b, err := newBook(RosterSheet, "4472C4", rosterHeaders)
	if err != nil {
		return nil, err
	}
	defer b.close()

	highStyle, err := b.style(&excelize.Style{
		Fill:      solid("FFC7CE"),
		Font:      &excelize.Font{Bold: true, Color: "9C0006"},
		Border:    thinBorder,
		Alignment: leftAligned(),
	})
	if err != nil {
		return nil, err
	}
	lowStyle, err := b.style(&excelize.Style{
		Fill:      solid("C6EFCE"),
		Font:      &excelize.Font{Bold: true, Color: "006100"},
		Border:    thinBorder,
		Alignment: leftAligned(),
	})
	if err != nil {
		return nil, err
	}

	for i, row := range rows {
		r, p := row.Record, owner(row)
		values := []any{
			r.ID,
			p.PatientID,
			p.Name,
			r.Age,
			models.SexText(r.Sex),
			p.Phone,
			models.ChestPainText(r.CP),
			r.Trestbps,
			r.Chol,
			r.Thalach,
			string(r.Verdict),
			percentText(r.Probability),
			notes(r.DoctorNotes),
			r.CreatedAt.UTC().Format("2006-01-02 15:04"),
		}
		rowNum := i + 2
		if err := b.writeRow(rowNum, values); err != nil {
			return nil, err
		}
		style := lowStyle
		if r.Verdict == models.VerdictHigh {
			style = highStyle
		}
		if err := b.styleCell(rosterPredictionCol, rowNum, style); err != nil {
			return nil, err
		}
	}
	return b.finish()
}

// HighRisk renders high-risk records. rows are expected in probability
// order, highest first.
func HighRisk(rows []reportmodels.OwnedRecord) ([]byte, error) {
	b, err := newBook(HighRiskSheet, "C00000", highRiskHeaders)
	if err != nil {
		return nil, err
	}
	defer b.close()

	critical, err := b.style(&excelize.Style{
		Fill:      solid("FF0000"),
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Border:    thinBorder,
		Alignment: leftAligned(),
	})
	if err != nil {
		return nil, err
	}
	elevated, err := b.style(&excelize.Style{
		Fill:      solid("FFC000"),
		Font:      &excelize.Font{Bold: true},
		Border:    thinBorder,
		Alignment: leftAligned(),
	})
	if err != nil {
		return nil, err
	}

	for i, row := range rows {
		r, p := row.Record, owner(row)
		values := []any{
			p.PatientID,
			p.Name,
			p.Phone,
			r.Age,
			models.SexText(r.Sex),
			percentText(r.Probability),
			r.Trestbps,
			r.Chol,
			r.CreatedAt.UTC().Format("2006-01-02"),
			notes(r.DoctorNotes),
		}
		rowNum := i + 2
		if err := b.writeRow(rowNum, values); err != nil {
			return nil, err
		}
		switch pct := models.Percent(r.Probability); {
		case pct > CriticalRiskPercent:
			err = b.styleCell(highRiskPercentCol, rowNum, critical)
		case pct > ElevatedRiskPercent:
			err = b.styleCell(highRiskPercentCol, rowNum, elevated)
		}
		if err != nil {
			return nil, err
		}
	}
	return b.finish()
}

// book tracks column widths while rows are written so they can be sized
// to their content at the end.
type book struct {
	f         *excelize.File
	sheet     string
	bodyStyle int
	widths    []int
}

func newBook(sheet, headerColor string, headers []string) (*book, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	b := &book{f: f, sheet: sheet, widths: make([]int, len(headers))}

	headerStyle, err := b.style(&excelize.Style{
		Fill:      solid(headerColor),
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 12},
		Border:    thinBorder,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if b.bodyStyle, err = b.style(&excelize.Style{Border: thinBorder, Alignment: leftAligned()}); err != nil {
		_ = f.Close()
		return nil, err
	}

	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := b.setRow(1, values); err != nil {
		_ = f.Close()
		return nil, err
	}
	first, _ := excelize.CoordinatesToCellName(1, 1)
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, first, last, headerStyle); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("style header: %w", err)
	}
	return b, nil
}

func (b *book) style(s *excelize.Style) (int, error) {
	id, err := b.f.NewStyle(s)
	if err != nil {
		return 0, fmt.Errorf("create style: %w", err)
	}
	return id, nil
}

func (b *book) setRow(row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := b.f.SetSheetRow(b.sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	for i, v := range values {
		if n := len(fmt.Sprint(v)); n > b.widths[i] {
			b.widths[i] = n
		}
	}
	return nil
}

func (b *book) writeRow(row int, values []any) error {
	if err := b.setRow(row, values); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(values), row)
	return b.f.SetCellStyle(b.sheet, first, last, b.bodyStyle)
}

func (b *book) styleCell(col, row, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return b.f.SetCellStyle(b.sheet, cell, cell, style)
}

func (b *book) finish() ([]byte, error) {
	for i, w := range b.widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := b.f.SetColWidth(b.sheet, name, name, float64(min(w+2, maxColumnWidth))); err != nil {
			return nil, fmt.Errorf("size column %s: %w", name, err)
		}
	}
	if err := b.f.SetPanes(b.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}
	buf, err := b.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *book) close() {
	_ = b.f.Close()
}

func solid(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
}

func percentText(p float64) string {
	return fmt.Sprintf("%.2f%%", models.Percent(p))
}

func notes(n *string) string {
	if n == nil {
		return ""
	}
	return *n
}

var unknownOwner = &models.Profile{PatientID: "Unknown", Name: "Unknown"}

func owner(row reportmodels.OwnedRecord) *models.Profile {
	if row.Owner == nil {
		return unknownOwner
	}
	return row.Owner
}
