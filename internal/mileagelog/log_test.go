package mileagelog

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mileagekit/mileage/internal/deduction"
	"github.com/mileagekit/mileage/internal/model"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

// seqIDs makes entry IDs predictable in tests.
func seqIDs(l *Log) {
	n := 0
	l.newID = func() string {
		n++
		return fmt.Sprintf("e%03d", n)
	}
}

func milesDraft(miles string) Draft {
	return Draft{
		Date:            date(2025, 3, 4),
		StartLocation:   "Office",
		EndLocation:     "Client",
		BusinessPurpose: "Site visit",
		Miles:           nd(miles),
	}
}

func TestAdd_OdometerMiles(t *testing.T) {
	l := New()
	e, err := l.Add(Draft{
		Date:            date(2025, 1, 15),
		StartLocation:   "Office",
		EndLocation:     "Client Site",
		BusinessPurpose: "Meeting",
		StartOdometer:   nd("1000"),
		EndOdometer:     nd("1250"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.True(t, e.TotalMiles.Equal(dec("250")))
	assert.Equal(t, model.DefaultCountry, e.Country)
	assert.Equal(t, 1, l.Len())
	assert.True(t, l.TotalMiles().Equal(dec("250")))
}

func TestAdd_OdometerWinsOverMiles(t *testing.T) {
	l := New()
	d := milesDraft("40")
	d.StartOdometer = nd("500.5")
	d.EndOdometer = nd("512.0")
	e, err := l.Add(d)
	require.NoError(t, err)
	assert.True(t, e.TotalMiles.Equal(dec("11.5")))
}

func TestAdd_OdometerBackwardsIsZero(t *testing.T) {
	l := New()
	d := milesDraft("40")
	d.StartOdometer = nd("900")
	d.EndOdometer = nd("850")
	e, err := l.Add(d)
	require.NoError(t, err)
	assert.True(t, e.TotalMiles.IsZero())
}

func TestAdd_SingleOdometerFallsBackToMiles(t *testing.T) {
	l := New()
	d := milesDraft("42.5")
	d.StartOdometer = nd("100")
	e, err := l.Add(d)
	require.NoError(t, err)
	assert.True(t, e.TotalMiles.Equal(dec("42.5")))
	assert.True(t, e.StartOdometer.Valid)
	assert.False(t, e.HasOdometer())
}

func TestAdd_OdometerIgnoresExplicitMiles(t *testing.T) {
	l := New()
	d := milesDraft("12.34")
	d.StartOdometer = nd("1000")
	d.EndOdometer = nd("1250")

	e, err := l.Add(d)
	require.NoError(t, err)
	assert.Equal(t, "250", e.TotalMiles.String())
}

func TestAdd_TrimsAndKeepsCountry(t *testing.T) {
	l := New()
	d := milesDraft("10")
	d.StartLocation = "  Home "
	d.Country = " CA "
	e, err := l.Add(d)
	require.NoError(t, err)
	assert.Equal(t, "Home", e.StartLocation)
	assert.Equal(t, "CA", e.Country)
}

func TestAdd_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Draft)
		field  string
	}{
		{"missing date", func(d *Draft) { d.Date = time.Time{} }, "date"},
		{"blank start", func(d *Draft) { d.StartLocation = "  " }, "start_location"},
		{"blank end", func(d *Draft) { d.EndLocation = "" }, "end_location"},
		{"blank purpose", func(d *Draft) { d.BusinessPurpose = "" }, "business_purpose"},
		{"negative miles", func(d *Draft) { d.Miles = nd("-1") }, "miles"},
		{"too many miles", func(d *Draft) { d.Miles = nd("100000.1") }, "miles"},
		{"hundredths", func(d *Draft) { d.Miles = nd("1.25") }, "miles"},
		{"no distance", func(d *Draft) { d.Miles = decimal.NullDecimal{} }, "miles"},
		{"negative odometer", func(d *Draft) { d.StartOdometer = nd("-5") }, "start_odometer"},
		{"trip too long", func(d *Draft) {
			d.StartOdometer = nd("0")
			d.EndOdometer = nd("100001")
		}, "end_odometer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			d := milesDraft("10")
			tt.mutate(&d)

			_, err := l.Add(d)
			require.Error(t, err)

			var verrs model.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.True(t, verrs.Has(tt.field), "fields: %v", verrs.Fields())
			assert.Equal(t, 0, l.Len())
		})
	}
}

func TestAdd_MaxMilesAccepted(t *testing.T) {
	l := New()
	_, err := l.Add(milesDraft("100000"))
	require.NoError(t, err)
}

func TestAddRemove_Totals(t *testing.T) {
	l := New()
	seqIDs(l)

	_, err := l.Add(milesDraft("100"))
	require.NoError(t, err)
	second, err := l.Add(milesDraft("50"))
	require.NoError(t, err)
	_, err = l.Add(milesDraft("25"))
	require.NoError(t, err)

	assert.True(t, l.TotalMiles().Equal(dec("175")))

	assert.True(t, l.Remove(second.ID))
	assert.True(t, l.TotalMiles().Equal(dec("125")))
	assert.Equal(t, 2, l.Len())

	// Second removal is a no-op.
	assert.False(t, l.Remove(second.ID))
	assert.True(t, l.TotalMiles().Equal(dec("125")))

	ids := []string{}
	for _, e := range l.Entries() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"e001", "e003"}, ids)
}

func TestRemove_Unknown(t *testing.T) {
	l := New()
	_, err := l.Add(milesDraft("12"))
	require.NoError(t, err)

	assert.False(t, l.Remove("nope"))
	assert.Equal(t, 1, l.Len())
}

func TestTotalDeduction(t *testing.T) {
	l := New()
	_, err := l.Add(milesDraft("100"))
	require.NoError(t, err)
	_, err = l.Add(milesDraft("75"))
	require.NoError(t, err)

	got, err := l.TotalDeduction(model.PurposeBusiness, dec("0.70"))
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("122.5")), "got %s", got)

	_, err = l.TotalDeduction(model.Purpose("commuting"), dec("0.70"))
	var verr model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "purpose", verr.Field)
	assert.Equal(t, `purpose: unknown purpose "commuting"`, err.Error())

	_, err = l.TotalDeduction(model.PurposeBusiness, dec("-0.70"))
	var inv *deduction.InvalidInputError
	assert.True(t, errors.As(err, &inv))
}

func TestTotals_EmptyLog(t *testing.T) {
	l := New()
	assert.True(t, l.TotalMiles().IsZero())
	got, err := l.TotalDeduction(model.PurposeMedical, dec("0.21"))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestEntries_ReturnsCopy(t *testing.T) {
	l := New()
	_, err := l.Add(milesDraft("10"))
	require.NoError(t, err)

	entries := l.Entries()
	entries[0].TotalMiles = dec("9999")
	assert.True(t, l.TotalMiles().Equal(dec("10")))
}

func TestMonthMiles(t *testing.T) {
	l := New()
	d := milesDraft("10")
	d.Date = date(2025, 2, 28)
	_, err := l.Add(d)
	require.NoError(t, err)
	d = milesDraft("5")
	d.Date = date(2025, 3, 1)
	_, err = l.Add(d)
	require.NoError(t, err)

	assert.True(t, l.MonthMiles(2025, 2).Equal(dec("10")))
	assert.True(t, l.MonthMiles(2025, 3).Equal(dec("5")))
	assert.True(t, l.MonthMiles(2024, 3).IsZero())
}

// TestTotalMiles_MatchesSum drives random add/remove sequences and checks
// the total always equals the sum of the remaining entries.
func TestTotalMiles_MatchesSum(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	l := New()

	for i := 0; i < 500; i++ {
		if l.Len() > 0 && rng.Intn(3) == 0 {
			entries := l.Entries()
			l.Remove(entries[rng.Intn(len(entries))].ID)
		} else {
			miles := decimal.New(rng.Int63n(1000000), -1)
			_, err := l.Add(milesDraft(miles.String()))
			require.NoError(t, err)
		}

		want := decimal.Zero
		for _, e := range l.Entries() {
			want = want.Add(e.TotalMiles)
		}
		require.True(t, l.TotalMiles().Equal(want), "step %d", i)
	}
}

func TestSnapshot_Check(t *testing.T) {
	l := New()
	seqIDs(l)
	_, err := l.Add(milesDraft("30"))
	require.NoError(t, err)

	s := l.Snapshot("me@example.com", 2025, model.PurposeBusiness, dec("0.70"), date(2025, 6, 1))
	require.NoError(t, s.Check())
	assert.True(t, s.TotalMiles().Equal(dec("30")))
	assert.True(t, s.TotalDeduction().Equal(dec("21")))

	s.Entries = append(s.Entries, s.Entries[0])
	assert.ErrorContains(t, s.Check(), "duplicate ID")

	s.Entries = s.Entries[:1]
	s.Entries[0].StartOdometer = nd("10")
	s.Entries[0].EndOdometer = nd("20")
	assert.ErrorContains(t, s.Check(), "does not match")

	bad := l.Snapshot("", 2025, model.Purpose("x"), dec("0.70"), date(2025, 6, 1))
	assert.Error(t, bad.Check())
}
