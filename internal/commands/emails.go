package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mileagekit/mileage/internal/model"
)

func newEmailsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "emails",
		Short: "Show the outgoing email log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.Emails(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No emails sent.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SENT\tTO\tKIND\tSTATUS\tSUBJECT")
			for _, r := range records {
				status := string(r.Status)
				if r.Status == model.EmailFailed && r.Error != "" {
					status += ": " + r.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					r.SentAt.Local().Format(time.DateTime), r.Recipient, r.Kind, status, r.Subject)
			}
			return tw.Flush()
		},
	}
}
