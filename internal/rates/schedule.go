package rates

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mileagekit/mileage/internal/model"
)

//go:embed schedule.yaml
var defaultSchedule []byte

type scheduleFile struct {
	Years []scheduleYear `yaml:"years"`
}

type scheduleYear struct {
	Year       int    `yaml:"year"`
	Business   string `yaml:"business"`
	Medical    string `yaml:"medical"`
	Charitable string `yaml:"charitable"`
}

// Default returns the table built from the schedule shipped with the binary.
func Default() *Table {
	rates, err := ParseSchedule(defaultSchedule)
	if err != nil {
		panic("embedded rate schedule: " + err.Error())
	}
	t, err := NewTable(rates)
	if err != nil {
		panic("embedded rate schedule: " + err.Error())
	}
	return t
}

// LoadSchedule reads a schedule YAML file and builds a Table from it.
func LoadSchedule(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rate schedule: %w", err)
	}
	rates, err := ParseSchedule(data)
	if err != nil {
		return nil, fmt.Errorf("parsing rate schedule %s: %w", path, err)
	}
	return NewTable(rates)
}

// ParseSchedule decodes a year -> purpose -> rate schedule. A purpose left
// blank for a year has no published rate.
func ParseSchedule(data []byte) ([]model.Rate, error) {
	var f scheduleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding schedule: %w", err)
	}

	var rates []model.Rate
	for i, y := range f.Years {
		if y.Year <= 0 {
			return nil, fmt.Errorf("entry %d: missing year", i+1)
		}
		perPurpose := []struct {
			purpose model.Purpose
			value   string
		}{
			{model.PurposeBusiness, y.Business},
			{model.PurposeMedical, y.Medical},
			{model.PurposeCharitable, y.Charitable},
		}
		for _, pp := range perPurpose {
			if pp.value == "" {
				continue
			}
			d, err := decimal.NewFromString(pp.value)
			if err != nil {
				return nil, fmt.Errorf("year %d %s rate %q: %w", y.Year, pp.purpose, pp.value, err)
			}
			rates = append(rates, model.Rate{TaxYear: y.Year, Purpose: pp.purpose, PerMile: d})
		}
	}
	return rates, nil
}
