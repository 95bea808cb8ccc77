package deduction

import (
	"github.com/shopspring/decimal"

	"github.com/mileagekit/mileage/internal/model"
)

// Summary is a complete calculation: per-category lines, the combined gross
// deduction, the net after a business reimbursement, and estimated savings.
type Summary struct {
	TaxYear       int
	Lines         []model.DeductionResult
	Gross         decimal.Decimal
	Reimbursement decimal.Decimal
	Net           decimal.Decimal
	Savings       []Saving
}

// Summarize prices every category and offsets the reimbursement against the
// business line only. Savings are estimated on the net total.
func Summarize(lookup RateLookup, taxYear int, entries []CategoryMiles, reimbursement decimal.Decimal, marginalRates []decimal.Decimal) (Summary, error) {
	totals, err := MultiCategoryTotal(lookup, taxYear, entries)
	if err != nil {
		return Summary{}, err
	}
	if !reimbursement.IsZero() {
		if _, ok := totals.PerCategory[model.PurposeBusiness]; !ok {
			return Summary{}, model.ValidationErrors{{Field: "reimbursement", Message: "only applies to business miles"}}
		}
	}

	s := Summary{
		TaxYear:       taxYear,
		Lines:         totals.Lines(),
		Gross:         totals.Total,
		Reimbursement: reimbursement,
		Net:           decimal.Zero,
	}
	for i, line := range s.Lines {
		if line.Purpose == model.PurposeBusiness {
			net, err := Net(line.Gross, reimbursement)
			if err != nil {
				return Summary{}, err
			}
			s.Lines[i].Reimbursement = reimbursement
			s.Lines[i].Net = net
		}
		s.Net = s.Net.Add(s.Lines[i].Net)
	}

	s.Savings, err = SavingsTable(s.Net, marginalRates)
	if err != nil {
		return Summary{}, err
	}
	return s, nil
}
