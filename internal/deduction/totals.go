package deduction

import (
	"github.com/shopspring/decimal"

	"github.com/mileagekit/mileage/internal/model"
)

// CategoryMiles is the mileage driven for one purpose.
type CategoryMiles struct {
	Purpose model.Purpose
	Miles   decimal.Decimal
}

// Totals is the result of MultiCategoryTotal.
type Totals struct {
	TaxYear     int
	PerCategory map[model.Purpose]decimal.Decimal
	Rates       map[model.Purpose]decimal.Decimal
	Miles       map[model.Purpose]decimal.Decimal
	Total       decimal.Decimal
}

// Lines returns per-category figures in display order, skipping purposes
// that were not part of the input.
func (t Totals) Lines() []model.DeductionResult {
	var lines []model.DeductionResult
	for _, p := range model.Purposes {
		amount, ok := t.PerCategory[p]
		if !ok {
			continue
		}
		lines = append(lines, model.DeductionResult{
			Purpose:     p,
			RateApplied: t.Rates[p],
			Miles:       t.Miles[p],
			Gross:       amount,
			Net:         amount,
		})
	}
	return lines
}

// MultiCategoryTotal resolves a rate for each entry's purpose and sums the
// deductions. Entries sharing a purpose are combined. A purpose with zero
// miles still appears in PerCategory with a zero amount.
func MultiCategoryTotal(lookup RateLookup, taxYear int, entries []CategoryMiles) (Totals, error) {
	totals := Totals{
		TaxYear:     taxYear,
		PerCategory: make(map[model.Purpose]decimal.Decimal),
		Rates:       make(map[model.Purpose]decimal.Decimal),
		Miles:       make(map[model.Purpose]decimal.Decimal),
		Total:       decimal.Zero,
	}

	for _, e := range entries {
		if err := (model.MileageInput{Purpose: e.Purpose, Miles: e.Miles}).Validate(); err != nil {
			return Totals{}, err
		}

		rate, ok := totals.Rates[e.Purpose]
		if !ok {
			r, err := lookup.Rate(taxYear, e.Purpose)
			if err != nil {
				return Totals{}, err
			}
			rate = r
			totals.Rates[e.Purpose] = r
		}

		amount, err := Gross(e.Miles, rate)
		if err != nil {
			return Totals{}, err
		}

		totals.PerCategory[e.Purpose] = totals.PerCategory[e.Purpose].Add(amount)
		totals.Miles[e.Purpose] = totals.Miles[e.Purpose].Add(e.Miles)
		totals.Total = totals.Total.Add(amount)
	}
	return totals, nil
}
