package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mileagekit/mileage/internal/deduction"
	"github.com/mileagekit/mileage/internal/history"
)

func newHistoryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show recent saved calculations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := history.Read(a.path(a.cfg.History.Path))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No saved calculations.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SAVED\tYEAR\tBUSINESS\tMEDICAL/MOVING\tCHARITABLE\tREIMBURSED\tDEDUCTION")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Local().Format("2006-01-02 15:04"), e.TaxYear,
					deduction.FormatMiles(e.BusinessMiles),
					deduction.FormatMiles(e.MedicalMiles),
					deduction.FormatMiles(e.CharitableMiles),
					"$"+deduction.FormatCurrency(e.Reimbursement),
					"$"+deduction.FormatCurrency(e.TotalDeduction))
			}
			return tw.Flush()
		},
	}
}
