package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mileagekit/mileage/internal/deduction"
	"github.com/mileagekit/mileage/internal/model"
	"github.com/mileagekit/mileage/internal/rates"
)

func newRatesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Show published IRS mileage rates",
	}
	cmd.AddCommand(newRatesListCommand(a), newRatesGetCommand(a))
	return cmd
}

func newRatesListCommand(a *app) *cobra.Command {
	var year int
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rates by year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all := a.rates.All()
			if year != 0 {
				all = a.rates.ForYear(year)
				if len(all) == 0 {
					return fmt.Errorf("no rates published for tax year %d", year)
				}
			}
			if asCSV {
				return rates.WriteRates(cmd.OutOrStdout(), all)
			}
			return printRates(a, cmd, all)
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "only show one tax year")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")
	return cmd
}

func printRates(a *app, cmd *cobra.Command, all []model.Rate) error {
	byYear := make(map[int]map[model.Purpose]string)
	var years []int
	for _, r := range all {
		if byYear[r.TaxYear] == nil {
			byYear[r.TaxYear] = make(map[model.Purpose]string)
			years = append(years, r.TaxYear)
		}
		byYear[r.TaxYear][r.Purpose] = "$" + deduction.FormatRate(r.PerMile)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\tBUSINESS\tMEDICAL/MOVING\tCHARITABLE\tBUSINESS CHANGE")
	for _, y := range years {
		// No prior year in the table leaves the change blank.
		change := "-"
		if pct, err := a.rates.YearOverYear(y); err == nil {
			change = pct.StringFixed(1) + "%"
			if pct.IsPositive() {
				change = "+" + change
			}
		}
		row := byYear[y]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", y,
			orDash(row[model.PurposeBusiness]), orDash(row[model.PurposeMedical]),
			orDash(row[model.PurposeCharitable]), change)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newRatesGetCommand(a *app) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "get <purpose>",
		Short: "Print the rate for a purpose (business, medical, charitable)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			purpose, err := model.ParsePurpose(args[0])
			if err != nil {
				return err
			}
			y := a.taxYear(year)
			rate, err := a.rates.Rate(y, purpose)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s: $%s/mile\n", y, purpose.Label(), deduction.FormatRate(rate))
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "tax year (default: configured or latest)")
	return cmd
}
