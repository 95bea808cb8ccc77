package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mileagekit/mileage/internal/deduction"
	"github.com/mileagekit/mileage/internal/export"
	"github.com/mileagekit/mileage/internal/history"
	"github.com/mileagekit/mileage/internal/model"
	"github.com/mileagekit/mileage/internal/notify"
)

type calcOptions struct {
	business      string
	medical       string
	charitable    string
	reimbursement string
	year          int
	save          bool
	format        string
	output        string
	email         string
}

func newCalcCommand(a *app) *cobra.Command {
	var opts calcOptions

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate the mileage deduction for one or more purposes",
		Example: `  mileage calc --business 1000
  mileage calc --business 1200 --medical 80 --reimbursement 300 --year 2024
  mileage calc --business 500 --format pdf --output deduction.pdf --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalc(a, cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.business, "business", "", "business miles")
	cmd.Flags().StringVar(&opts.medical, "medical", "", "medical or moving miles")
	cmd.Flags().StringVar(&opts.charitable, "charitable", "", "charitable miles")
	cmd.Flags().StringVar(&opts.reimbursement, "reimbursement", "0", "employer reimbursement for business miles, in dollars")
	cmd.Flags().IntVar(&opts.year, "year", 0, "tax year (default: configured or latest)")
	cmd.Flags().BoolVar(&opts.save, "save", false, "save to recent calculations")
	cmd.Flags().StringVar(&opts.format, "format", "print", "output format: print, csv or pdf")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().StringVar(&opts.email, "email", "", "email the summary to this address")

	return cmd
}

func runCalc(a *app, cmd *cobra.Command, opts calcOptions) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	now := a.now()

	var entries []deduction.CategoryMiles
	for _, f := range []struct {
		flag    string
		value   string
		purpose model.Purpose
	}{
		{"business", opts.business, model.PurposeBusiness},
		{"medical", opts.medical, model.PurposeMedical},
		{"charitable", opts.charitable, model.PurposeCharitable},
	} {
		if !cmd.Flags().Changed(f.flag) {
			continue
		}
		miles, err := parseDecimalFlag(f.flag, f.value)
		if err != nil {
			return err
		}
		entries = append(entries, deduction.CategoryMiles{Purpose: f.purpose, Miles: miles})
	}
	if len(entries) == 0 {
		return errors.New("no miles given: use --business, --medical or --charitable")
	}

	reimbursement, err := parseDecimalFlag("reimbursement", opts.reimbursement)
	if err != nil {
		return err
	}
	marginal, err := a.cfg.ParsedMarginalRates()
	if err != nil {
		return err
	}

	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	summary, err := deduction.Summarize(a.rates, a.taxYear(opts.year), entries, reimbursement, marginal)
	if err != nil {
		return err
	}

	if err := writeOutput(out, opts.output, format, func(w io.Writer) error {
		return export.Calculation(w, summary, format, now)
	}); err != nil {
		return err
	}

	if opts.save {
		path := a.path(a.cfg.History.Path)
		if err := history.Save(path, history.FromSummary(summary, now), a.cfg.History.Keep); err != nil {
			return err
		}
		fmt.Fprintln(out, "Calculation saved to your recent calculations.")
	}

	if opts.email != "" {
		body, err := notify.RenderCalculation(summary)
		if err != nil {
			return err
		}
		st, err := a.openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		subject := fmt.Sprintf("Your %d IRS mileage deduction", summary.TaxYear)
		rec, err := a.notifier(st).Send(ctx, opts.email, model.EmailCalculation, subject, body)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Emailed summary to %s.\n", rec.Recipient)
	}
	return nil
}

// parseDecimalFlag parses a numeric flag, allowing a leading "$" and
// thousands separators.
func parseDecimalFlag(name, value string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(value), "$"), ",", "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, model.ValidationError{Field: name, Message: fmt.Sprintf("%q is not a number", value)}
	}
	return d, nil
}

// writeOutput sends rendered output to path, or to out when path is empty.
// PDF is binary, so it always needs a path.
func writeOutput(out io.Writer, path string, format export.Format, render func(io.Writer) error) error {
	if path == "" {
		if format == export.FormatPDF {
			return errors.New("pdf output needs --output")
		}
		return render(out)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}
