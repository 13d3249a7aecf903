/*
Package report builds the payroll artifacts of a run.

PURPOSE:
  Splits the results by eligibility and writes the two-sheet workbook
  payroll imports: the payable sheet named after the competence period and
  a validation sheet listing everyone left out with the reason.

OUTPUT MODES:
  cost_split: one row per payable employee with the employer / employee
              split of the total (EmployerShare of the policy).
  plain:      totals only; the validation sheet also carries the legal basis.

USAGE:
  rep, err := report.Build(results, period, policy)
  os.WriteFile(rep.FileName, rep.Workbook, 0o644)
  fmt.Println(report.Summary(rep))

SEE ALSO:
  - summary.go: Markdown summary and error report
*/
package report

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/vr-engine/benefit"
	"github.com/warp/vr-engine/generic"
)

const (
	validationSheetCostSplit = "Validações (Não Elegíveis)"
	validationSheetPlain     = "Validações"

	noLegalBasis = "N/A"
)

type Report struct {
	FileName        string
	PayableSheet    string
	ValidationSheet string
	Workbook        []byte

	Period generic.Period
	Mode   generic.OutputMode

	Payable    []benefit.Result
	Ineligible []benefit.Result

	Total        generic.Money
	PayableCount int
}

// PayableSheetName is "VR MENSAL MM.YYYY".
func PayableSheetName(period generic.Period) string {
	return "VR MENSAL " + period.Label()
}

// Build splits results and renders the workbook for the policy's output mode.
func Build(results []benefit.Result, period generic.Period, policy generic.Policy) (*Report, error) {
	mode := policy.OutputMode
	if mode == "" {
		mode = generic.OutputCostSplit
	}

	rep := &Report{
		PayableSheet: PayableSheetName(period),
		Period:       period,
		Mode:         mode,
	}
	rep.FileName = rep.PayableSheet + ".xlsx"

	var totals []generic.Money
	for _, r := range results {
		if r.Eligible {
			rep.Payable = append(rep.Payable, r)
			totals = append(totals, r.Total)
		} else {
			rep.Ineligible = append(rep.Ineligible, r)
		}
	}
	rep.Total = generic.SumMoney(totals...)
	rep.PayableCount = len(rep.Payable)

	var layout sheetLayout
	switch mode {
	case generic.OutputCostSplit:
		layout = costSplitLayout(period, policy.EmployerShare)
		rep.ValidationSheet = validationSheetCostSplit
	case generic.OutputPlain:
		layout = plainLayout(period)
		rep.ValidationSheet = validationSheetPlain
	default:
		return nil, fmt.Errorf("report: unknown output mode %q", mode)
	}

	data, err := render(rep, layout)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	rep.Workbook = data
	return rep, nil
}

// =============================================================================
// LAYOUTS
// =============================================================================

type sheetLayout struct {
	payableHeader    []interface{}
	payableRow       func(benefit.Result) []interface{}
	validationHeader []interface{}
	validationRow    func(benefit.Result) []interface{}
}

func costSplitLayout(period generic.Period, share decimal.Decimal) sheetLayout {
	if share.IsZero() {
		share = decimal.NewFromFloat(0.8)
	}
	employerPct := share.Mul(decimal.NewFromInt(100)).Round(0)
	employeePct := decimal.NewFromInt(100).Sub(employerPct)
	competence := fmt.Sprintf("%02d/%d", int(period.Month()), period.Year())

	return sheetLayout{
		payableHeader: []interface{}{
			"Matrícula",
			"Admissão",
			"Sindicato do Colaborador",
			"Competência",
			"Dias",
			"Valor Diário em Reais do VR",
			"Total pago para cada matrícula",
			fmt.Sprintf("Custo para a empresa (%s%%)", employerPct),
			fmt.Sprintf("Desconto aplicado para o profissional (%s%%)", employeePct),
			"Observações gerais",
		},
		payableRow: func(r benefit.Result) []interface{} {
			employer, employee := SplitCost(r.Total, share)
			return []interface{}{
				int64(r.EmployeeID),
				formatDate(r.HireDate),
				r.UnionLabel,
				competence,
				r.Days,
				r.DailyRate.Float64(),
				r.Total.Float64(),
				employer.Float64(),
				employee.Float64(),
				r.Reason,
			}
		},
		validationHeader: []interface{}{"Matrícula", "Motivo"},
		validationRow: func(r benefit.Result) []interface{} {
			return []interface{}{int64(r.EmployeeID), r.Reason}
		},
	}
}

func plainLayout(period generic.Period) sheetLayout {
	competence := fmt.Sprintf("01/%02d/%d", int(period.Month()), period.Year())

	return sheetLayout{
		payableHeader: []interface{}{"Matricula", "Competência", "Dias", "VALOR DIÁRIO VR", "TOTAL", "OBS GERAL"},
		payableRow: func(r benefit.Result) []interface{} {
			return []interface{}{
				int64(r.EmployeeID),
				competence,
				r.Days,
				r.DailyRate.Float64(),
				r.Total.Float64(),
				r.Reason,
			}
		},
		validationHeader: []interface{}{"Matricula", "Motivo", "Base legal"},
		validationRow: func(r benefit.Result) []interface{} {
			basis := r.LegalBasis
			if basis == "" {
				basis = noLegalBasis
			}
			return []interface{}{int64(r.EmployeeID), r.Reason, basis}
		},
	}
}

// SplitCost divides a total into the employer part (rounded to cents) and
// the employee remainder, so both always add up to the total.
func SplitCost(total generic.Money, employerShare decimal.Decimal) (employer, employee generic.Money) {
	employer = total.Mul(employerShare).Round()
	employee = generic.NewMoneyFromDecimal(total.Value.Sub(employer.Value))
	return employer, employee
}

func formatDate(tp generic.TimePoint) string {
	if tp.IsZero() {
		return ""
	}
	return tp.Time.Format("02/01/2006")
}

// =============================================================================
// RENDERING
// =============================================================================

func render(rep *Report, layout sheetLayout) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), rep.PayableSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(rep.ValidationSheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	payable := make([][]interface{}, 0, len(rep.Payable))
	for _, r := range rep.Payable {
		payable = append(payable, layout.payableRow(r))
	}
	if err := writeSheet(f, rep.PayableSheet, layout.payableHeader, payable, bold); err != nil {
		return nil, err
	}

	validation := make([][]interface{}, 0, len(rep.Ineligible))
	for _, r := range rep.Ineligible {
		validation = append(validation, layout.validationRow(r))
	}
	if err := writeSheet(f, rep.ValidationSheet, layout.validationHeader, validation, bold); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
