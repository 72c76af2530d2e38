// Package pdf renders a single assessment as a printable report.
package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"cardiotrack/internal/patient/models"
	reportmodels "cardiotrack/internal/report/models"
)

const (
	fontFamily   = "Helvetica"
	labelWidth   = 60.0
	valueWidth   = 100.0
	paramWidth   = 55.0
	paramValue   = 50.0
	paramRange   = 55.0
	rowHeight    = 8.0
	disclaimer   = "DISCLAIMER: This prediction is generated by a machine learning model and should be used as a decision support tool only. It does not replace professional medical diagnosis or advice. Please consult with a qualified healthcare provider for proper medical evaluation and treatment. The accuracy of this prediction depends on the quality and completeness of input data."
	generatedFmt = "January 02, 2006 at 03:04 PM"
)

var highRiskAdvice = []string{
	"Consult with a cardiologist immediately for detailed evaluation",
	"Schedule comprehensive cardiac screening including ECG and stress test",
	"Monitor blood pressure and cholesterol levels regularly",
	"Adopt a heart-healthy diet low in saturated fats and sodium",
	"Engage in regular physical activity as recommended by your doctor",
	"Avoid smoking and limit alcohol consumption",
	"Manage stress through relaxation techniques",
	"Take prescribed medications as directed",
}

var lowRiskAdvice = []string{
	"Continue maintaining a healthy lifestyle",
	"Regular health check-ups annually",
	"Maintain balanced diet and regular exercise",
	"Monitor blood pressure and cholesterol periodically",
	"Avoid smoking and excessive alcohol consumption",
	"Manage stress levels effectively",
}

type rgb struct{ r, g, b int }

var (
	brandBlue = rgb{30, 64, 175}
	labelFill = rgb{224, 231, 255}
	beige     = rgb{245, 245, 220}
	riskRed   = rgb{220, 38, 38}
	riskGreen = rgb{22, 163, 74}
	grey      = rgb{107, 114, 128}
	paleGrey  = rgb{249, 250, 251}
)

// Renderer produces A4 PDF reports.
type Renderer struct {
	now func() time.Time
}

func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

// Render builds the report document for d.
func (r *Renderer) Render(d reportmodels.ReportData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(25, 25, 25)
	pdf.SetAutoPageBreak(true, 10)
	pdf.SetTitle("Heart Disease Prediction Report", false)
	pdf.AddPage()

	setText(pdf, brandBlue)
	pdf.SetFont(fontFamily, "B", 22)
	pdf.CellFormat(0, 14, "Heart Disease Prediction Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(fontFamily, "B", 11)
	pdf.CellFormat(40, 6, "Report Generated:", "", 0, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 11)
	pdf.CellFormat(0, 6, r.now().Format(generatedFmt), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	heading(pdf, "Patient Information")
	labelRows(pdf, [][2]string{
		{"Patient Name:", d.Name},
		{"Patient ID:", d.PatientID},
		{"Age:", fmt.Sprintf("%d years", d.Age)},
		{"Gender:", d.Sex},
		{"Date of Assessment:", d.CreatedAt.UTC().Format("2006-01-02 15:04:05")},
	}, 11, nil)
	pdf.Ln(6)

	heading(pdf, "Medical Parameters")
	parameterTable(pdf, d)
	pdf.Ln(6)

	heading(pdf, "Prediction Result")
	verdictColor := riskGreen
	if d.Verdict == models.VerdictHigh {
		verdictColor = riskRed
	}
	labelRows(pdf, [][2]string{
		{"Prediction:", string(d.Verdict)},
		{"Risk Probability:", fmt.Sprintf("%.2f%%", d.ProbabilityPercent)},
	}, 12, &verdictColor)
	if d.Notes != "" {
		pdf.Ln(2)
		pdf.SetFont(fontFamily, "B", 11)
		pdf.CellFormat(0, 6, "Doctor Notes:", "", 1, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 11)
		pdf.MultiCell(0, 6, d.Notes, "", "L", false)
	}
	pdf.Ln(6)

	heading(pdf, "Recommendations")
	pdf.SetFont(fontFamily, "", 11)
	advice := lowRiskAdvice
	if d.Verdict == models.VerdictHigh {
		advice = highRiskAdvice
	}
	for i, line := range advice {
		pdf.MultiCell(0, 6, fmt.Sprintf("%d. %s", i+1, line), "", "L", false)
	}
	pdf.Ln(6)

	setText(pdf, grey)
	setFill(pdf, paleGrey)
	pdf.SetFont(fontFamily, "", 9)
	pdf.MultiCell(0, 5, disclaimer, "1", "J", true)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func heading(pdf *gofpdf.Fpdf, text string) {
	setText(pdf, brandBlue)
	pdf.SetFont(fontFamily, "B", 15)
	pdf.CellFormat(0, 10, text, "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

// labelRows draws a two-column table with a shaded label column. When
// valueColor is set the first value is drawn in it.
func labelRows(pdf *gofpdf.Fpdf, rows [][2]string, size float64, valueColor *rgb) {
	for i, row := range rows {
		setFill(pdf, labelFill)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont(fontFamily, "B", size)
		pdf.CellFormat(labelWidth, rowHeight, row[0], "1", 0, "L", true, 0, "")

		style := ""
		if valueColor != nil {
			style = "B"
			if i == 0 {
				setText(pdf, *valueColor)
			}
		}
		pdf.SetFont(fontFamily, style, size)
		pdf.CellFormat(valueWidth, rowHeight, row[1], "1", 1, "L", false, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
}

func parameterTable(pdf *gofpdf.Fpdf, d reportmodels.ReportData) {
	setFill(pdf, brandBlue)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont(fontFamily, "B", 11)
	for _, h := range []struct {
		text string
		w    float64
	}{{"Parameter", paramWidth}, {"Value", paramValue}, {"Reference Range", paramRange}} {
		pdf.CellFormat(h.w, 9, h.text, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	rows := [][3]string{
		{"Chest Pain Type (CP)", fmt.Sprintf("%d (%s)", d.ChestPain, d.ChestPainText), "0-3 (Type indicator)"},
		{"Resting Blood Pressure", fmt.Sprintf("%d mm Hg", d.RestingBP), "90-140 mm Hg"},
		{"Cholesterol", fmt.Sprintf("%d mg/dl", d.Cholesterol), "< 200 mg/dl"},
		{"Fasting Blood Sugar", d.FastingSugar, "> 120 mg/dl"},
		{"Resting ECG", fmt.Sprintf("%d (%s)", d.RestingECG, d.RestingECGText), "0-2 (Normal range)"},
		{"Max Heart Rate", fmt.Sprintf("%d bpm", d.MaxHeartRate), "60-100 bpm"},
		{"Exercise Induced Angina", d.ExerciseAngina, "No (Ideal)"},
		{"ST Depression (Oldpeak)", fmt.Sprintf("%.1f", d.STDepression), "< 2.0"},
		{"ST Slope", fmt.Sprintf("%d (%s)", d.STSlope, d.STSlopeText), "0-2"},
		{"Major Vessels (CA)", fmt.Sprintf("%d", d.Vessels), "0-3"},
		{"Thalassemia", fmt.Sprintf("%d (%s)", d.Thalassemia, d.ThalassemiaText), "0-3"},
	}
	setFill(pdf, beige)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(fontFamily, "", 10)
	for _, row := range rows {
		pdf.CellFormat(paramWidth, 7, row[0], "1", 0, "L", true, 0, "")
		pdf.CellFormat(paramValue, 7, row[1], "1", 0, "L", true, 0, "")
		pdf.CellFormat(paramRange, 7, row[2], "1", 1, "L", true, 0, "")
	}
}

func setText(pdf *gofpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }
func setFill(pdf *gofpdf.Fpdf, c rgb) { pdf.SetFillColor(c.r, c.g, c.b) }
