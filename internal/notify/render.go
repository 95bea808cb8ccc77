package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/mileagekit/mileage/internal/deduction"
	"github.com/mileagekit/mileage/internal/mileagelog"
)

var funcs = template.FuncMap{
	"money":   deduction.FormatCurrency,
	"miles":   deduction.FormatMiles,
	"rate":    deduction.FormatRate,
	"percent": deduction.FormatPercent,
}

var calculationTmpl = template.Must(template.New("calculation").Funcs(funcs).Parse(
	`Your IRS mileage deduction calculation for {{.TaxYear}}
{{range .Lines}}
{{.Purpose.Label}}: {{miles .Miles}} miles @ ${{rate .RateApplied}}/mile = ${{money .Gross}}
{{- if not .Reimbursement.IsZero}} (less ${{money .Reimbursement}} reimbursed = ${{money .Net}}){{end}}
{{- end}}

Total deduction: ${{money .Net}}
{{- if .Savings}}

Estimated tax savings:
{{- range .Savings}}
  {{percent .MarginalRate}} bracket: ${{money .Amount}}
{{- end}}
{{- end}}

This calculation is for informational purposes only.
Please consult with a tax professional for specific tax advice.
`))

var logTmpl = template.Must(template.New("log").Funcs(funcs).Parse(
	`Your mileage log for {{.TaxYear}}{{if .Owner}} ({{.Owner}}){{end}}
{{range .Entries}}
{{.Date.Format "2006-01-02"}}  {{.StartLocation}} -> {{.EndLocation}}  {{miles .TotalMiles}} mi  {{.BusinessPurpose}}
{{- end}}

Trips: {{len .Entries}}
Total miles: {{miles .TotalMiles}}
Total deduction: ${{money .TotalDeduction}} ({{.Purpose.Label}} @ ${{rate .Rate}}/mile)
`))

// RenderCalculation fills the calculation email template.
func RenderCalculation(s deduction.Summary) (string, error) {
	var buf bytes.Buffer
	if err := calculationTmpl.Execute(&buf, s); err != nil {
		return "", fmt.Errorf("rendering calculation email: %w", err)
	}
	return buf.String(), nil
}

// RenderLog fills the log email template.
func RenderLog(s mileagelog.Snapshot) (string, error) {
	if err := s.Check(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := logTmpl.Execute(&buf, s); err != nil {
		return "", fmt.Errorf("rendering log email: %w", err)
	}
	return buf.String(), nil
}
