package rates

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mileagekit/mileage/internal/model"
)

// RateNotFoundError is returned when no rate is published for a year and purpose.
type RateNotFoundError struct {
	TaxYear int
	Purpose model.Purpose
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("no %s mileage rate published for tax year %d", e.Purpose, e.TaxYear)
}

type key struct {
	year    int
	purpose model.Purpose
}

// Table provides in-memory lookup over published rates. It is immutable
// after construction.
type Table struct {
	rates []model.Rate
	byKey map[key]decimal.Decimal
	years []int // descending
}

// NewTable builds a Table. At most one rate may exist per (year, purpose).
func NewTable(rates []model.Rate) (*Table, error) {
	byKey := make(map[key]decimal.Decimal, len(rates))
	seenYear := make(map[int]bool)
	var years []int
	for _, r := range rates {
		if !r.Purpose.Valid() {
			return nil, fmt.Errorf("tax year %d: unknown purpose %q", r.TaxYear, r.Purpose)
		}
		if r.PerMile.IsNegative() {
			return nil, fmt.Errorf("tax year %d %s: negative rate %s", r.TaxYear, r.Purpose, r.PerMile)
		}
		k := key{r.TaxYear, r.Purpose}
		if _, dup := byKey[k]; dup {
			return nil, fmt.Errorf("tax year %d: duplicate %s rate", r.TaxYear, r.Purpose)
		}
		byKey[k] = r.PerMile
		if !seenYear[r.TaxYear] {
			seenYear[r.TaxYear] = true
			years = append(years, r.TaxYear)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	sorted := make([]model.Rate, len(rates))
	copy(sorted, rates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TaxYear != sorted[j].TaxYear {
			return sorted[i].TaxYear > sorted[j].TaxYear
		}
		return purposeOrder(sorted[i].Purpose) < purposeOrder(sorted[j].Purpose)
	})

	return &Table{rates: sorted, byKey: byKey, years: years}, nil
}

func purposeOrder(p model.Purpose) int {
	for i, q := range model.Purposes {
		if p == q {
			return i
		}
	}
	return len(model.Purposes)
}

// Rate returns the published rate for a tax year and purpose. It never falls
// back to a different year.
func (t *Table) Rate(taxYear int, purpose model.Purpose) (decimal.Decimal, error) {
	r, ok := t.byKey[key{taxYear, purpose}]
	if !ok {
		return decimal.Zero, &RateNotFoundError{TaxYear: taxYear, Purpose: purpose}
	}
	return r, nil
}

// LatestYear returns the most recent tax year in the table, or 0 when empty.
func (t *Table) LatestYear() int {
	if len(t.years) == 0 {
		return 0
	}
	return t.years[0]
}

// ResolveYear maps 0 to the latest year and passes any other year through.
func (t *Table) ResolveYear(taxYear int) int {
	if taxYear == 0 {
		return t.LatestYear()
	}
	return taxYear
}

// Years returns the tax years present, newest first.
func (t *Table) Years() []int {
	out := make([]int, len(t.years))
	copy(out, t.years)
	return out
}

// All returns every rate, newest year first.
func (t *Table) All() []model.Rate {
	out := make([]model.Rate, len(t.rates))
	copy(out, t.rates)
	return out
}

// ForYear returns the rates published for one year.
func (t *Table) ForYear(taxYear int) []model.Rate {
	var result []model.Rate
	for _, r := range t.rates {
		if r.TaxYear == taxYear {
			result = append(result, r)
		}
	}
	return result
}

// YearOverYear returns the percent change of the business rate from the
// previous tax year, e.g. 4.5 for a 4.5% increase.
func (t *Table) YearOverYear(taxYear int) (decimal.Decimal, error) {
	cur, err := t.Rate(taxYear, model.PurposeBusiness)
	if err != nil {
		return decimal.Zero, err
	}
	prev, err := t.Rate(taxYear-1, model.PurposeBusiness)
	if err != nil {
		return decimal.Zero, err
	}
	if prev.IsZero() {
		return decimal.Zero, fmt.Errorf("tax year %d: previous business rate is zero", taxYear)
	}
	return cur.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)), nil
}
