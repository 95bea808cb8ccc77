package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mileagekit/mileage/internal/deduction"
	"github.com/mileagekit/mileage/internal/model"
	"github.com/mileagekit/mileage/internal/rates"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testEntry() Entry {
	s, err := deduction.Summarize(rates.Default(), 2025, []deduction.CategoryMiles{
		{Purpose: model.PurposeBusiness, Miles: dec("1000")},
		{Purpose: model.PurposeMedical, Miles: dec("12.5")},
	}, dec("50"), nil)
	if err != nil {
		panic(err)
	}
	return FromSummary(s, testTime)
}

func TestFromSummary(t *testing.T) {
	e := testEntry()
	assert.Equal(t, 2025, e.TaxYear)
	assert.True(t, e.BusinessAmount.Equal(dec("700")))
	// 12.5 x 0.21 = 2.625, stored as 2.63.
	assert.True(t, e.MedicalAmount.Equal(dec("2.63")), "got %s", e.MedicalAmount)
	assert.True(t, e.CharitableMiles.IsZero())
	assert.True(t, e.TotalDeduction.Equal(dec("652.63")), "got %s", e.TotalDeduction)
}

func TestSave_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "calculations.csv")
	require.NoError(t, Save(path, testEntry(), 0))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	if diff := cmp.Diff(testEntry(), entries[0]); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSave_NewestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calculations.csv")

	first := testEntry()
	second := testEntry()
	second.TaxYear = 2024
	second.Timestamp = testTime.Add(time.Hour)

	require.NoError(t, Save(path, first, 0))
	require.NoError(t, Save(path, second, 0))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 2024, entries[0].TaxYear)
	assert.Equal(t, 2025, entries[1].TaxYear)
}

func TestSave_KeepsLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calculations.csv")

	for i := 0; i < DefaultKeep+3; i++ {
		e := testEntry()
		e.Timestamp = testTime.Add(time.Duration(i) * time.Minute)
		require.NoError(t, Save(path, e, 0))
	}

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, DefaultKeep)
	assert.True(t, entries[0].Timestamp.Equal(testTime.Add(time.Duration(DefaultKeep+2)*time.Minute)))

	require.NoError(t, Save(path, testEntry(), 3))
	entries, err = Read(path)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRead_Missing(t *testing.T) {
	entries, err := Read(filepath.Join(t.TempDir(), "nope.csv"))
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_BadRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calculations.csv")
	content := Header + "\n2025-01-15T10:30:00Z,2025,x,0,0,0,0,0,0,0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2: parsing business_miles")
}
