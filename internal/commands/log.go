package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mileagekit/mileage/internal/deduction"
	"github.com/mileagekit/mileage/internal/export"
	"github.com/mileagekit/mileage/internal/gitops"
	"github.com/mileagekit/mileage/internal/id"
	"github.com/mileagekit/mileage/internal/importer"
	"github.com/mileagekit/mileage/internal/mileagelog"
	"github.com/mileagekit/mileage/internal/model"
	"github.com/mileagekit/mileage/internal/notify"
)

func newLogCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record trips and export a mileage log",
	}
	cmd.AddCommand(
		newLogAddCommand(a),
		newLogListCommand(a),
		newLogRmCommand(a),
		newLogClearCommand(a),
		newLogExportCommand(a),
		newLogImportCommand(a),
		newLogEmailCommand(a),
	)
	return cmd
}

type addOptions struct {
	date          string
	from          string
	to            string
	purpose       string
	startOdometer string
	endOdometer   string
	miles         string
	country       string
}

func newLogAddCommand(a *app) *cobra.Command {
	var opts addOptions

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a trip to the log",
		Example: `  mileage log add --date 2024-03-04 --from Office --to "Client HQ" --purpose "Quarterly review" --start-odometer 1000 --end-odometer 1250
  mileage log add --date 2024-03-05 --from Home --to Airport --purpose "Conference travel" --miles 42.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := opts.draft(a.cfg.Country)
			if err != nil {
				return err
			}

			svc, st, err := a.loadLog(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			entry, err := svc.Add(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s -> %s, %s miles\n",
				id.Short(entry.ID), entry.StartLocation, entry.EndLocation, deduction.FormatMiles(entry.TotalMiles))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.date, "date", "", "trip date, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&opts.from, "from", "", "start location")
	cmd.Flags().StringVar(&opts.to, "to", "", "end location")
	cmd.Flags().StringVar(&opts.purpose, "purpose", "", "business purpose of the trip")
	cmd.Flags().StringVar(&opts.startOdometer, "start-odometer", "", "odometer reading at the start")
	cmd.Flags().StringVar(&opts.endOdometer, "end-odometer", "", "odometer reading at the end")
	cmd.Flags().StringVar(&opts.miles, "miles", "", "miles driven, when odometer readings are not given")
	cmd.Flags().StringVar(&opts.country, "country", "", "country of the trip (default: configured)")

	// today is resolved at run time from the app clock
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if opts.date == "" {
			opts.date = a.now().Format(mileagelog.DateFormat)
		}
		return nil
	}
	return cmd
}

func (o addOptions) draft(defaultCountry string) (mileagelog.Draft, error) {
	var errs model.ValidationErrors

	date, err := time.Parse(mileagelog.DateFormat, strings.TrimSpace(o.date))
	if err != nil {
		errs = append(errs, model.ValidationError{Field: "date", Message: fmt.Sprintf("%q is not a YYYY-MM-DD date", o.date)})
	}

	d := mileagelog.Draft{
		Date:            date,
		StartLocation:   o.from,
		EndLocation:     o.to,
		BusinessPurpose: o.purpose,
		Country:         o.country,
	}
	if d.Country == "" {
		d.Country = defaultCountry
	}

	for _, f := range []struct {
		field string
		value string
		dst   *decimal.NullDecimal
	}{
		{"start_odometer", o.startOdometer, &d.StartOdometer},
		{"end_odometer", o.endOdometer, &d.EndOdometer},
		{"miles", o.miles, &d.Miles},
	} {
		v, err := mileagelog.ParseOptional(f.value)
		if err != nil {
			errs = append(errs, model.ValidationError{Field: f.field, Message: fmt.Sprintf("%q is not a number", f.value)})
			continue
		}
		*f.dst = v
	}

	if len(errs) > 0 {
		return mileagelog.Draft{}, errs
	}
	return d, nil
}

func newLogListCommand(a *app) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List logged trips in the order they were added",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, st, err := a.loadLog(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			entries := svc.Log().Entries()
			if month != "" {
				m, err := time.Parse("2006-01", month)
				if err != nil {
					return fmt.Errorf("invalid --month %q: want YYYY-MM", month)
				}
				var filtered []model.LogEntry
				for _, e := range entries {
					if e.Date.Year() == m.Year() && e.Date.Month() == m.Month() {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No trips logged.")
				return nil
			}
			if err := printEntries(out, entries); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d trips, %s miles\n", len(entries), deduction.FormatMiles(mileagelog.SumMiles(entries)))
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "only show trips in this month, YYYY-MM")
	return cmd
}

func printEntries(w io.Writer, entries []model.LogEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tFROM\tTO\tPURPOSE\tODOMETER\tMILES")
	for _, e := range entries {
		odo := "-"
		if e.HasOdometer() {
			odo = e.StartOdometer.Decimal.String() + "-" + e.EndOdometer.Decimal.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			id.Short(e.ID), e.Date.Format(mileagelog.DateFormat),
			e.StartLocation, e.EndLocation, e.BusinessPurpose,
			odo, deduction.FormatMiles(e.TotalMiles))
	}
	return tw.Flush()
}

func newLogRmCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove"},
		Short:   "Remove trips by ID or unique ID prefix",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, st, err := a.loadLog(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			for _, arg := range args {
				entryID, err := resolveEntryID(svc.Log(), arg)
				if err != nil {
					return err
				}
				if err := svc.Remove(cmd.Context(), entryID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id.Short(entryID))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total: %s miles\n", deduction.FormatMiles(svc.Log().TotalMiles()))
			return nil
		},
	}
}

// resolveEntryID matches ref against the full IDs in l, accepting any
// unambiguous prefix.
func resolveEntryID(l *mileagelog.Log, ref string) (string, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return "", fmt.Errorf("empty entry ID")
	}
	var matches []string
	for _, e := range l.Entries() {
		if e.ID == ref {
			return e.ID, nil
		}
		if strings.HasPrefix(e.ID, ref) {
			matches = append(matches, e.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no trip with ID %q", ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ID prefix %q matches %d trips", ref, len(matches))
	}
}

func newLogClearCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every trip from the log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the log without --yes")
			}
			svc, st, err := a.loadLog(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			n := svc.Log().Len()
			if err := svc.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d trips.\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing the log")
	return cmd
}

type snapshotOptions struct {
	purpose string
	year    int
}

func (o *snapshotOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.purpose, "purpose", string(model.PurposeBusiness), "rate purpose for the deduction total")
	cmd.Flags().IntVar(&o.year, "year", 0, "tax year for the rate (default: configured or latest)")
}

func (a *app) snapshot(l *mileagelog.Log, o snapshotOptions) (mileagelog.Snapshot, error) {
	purpose, err := model.ParsePurpose(o.purpose)
	if err != nil {
		return mileagelog.Snapshot{}, err
	}
	year := a.taxYear(o.year)
	rate, err := a.rates.Rate(year, purpose)
	if err != nil {
		return mileagelog.Snapshot{}, err
	}
	return l.Snapshot(a.cfg.Owner, year, purpose, rate, a.now()), nil
}

func newLogExportCommand(a *app) *cobra.Command {
	var (
		opts   snapshotOptions
		format string
		output string
		commit bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the log as CSV, PDF or printable text",
		Example: `  mileage log export --format csv --output trips.csv
  mileage log export --format pdf --output trips.pdf --year 2024
  mileage log export`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			svc, st, err := a.loadLog(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := a.snapshot(svc.Log(), opts)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), output, f, func(w io.Writer) error {
				return export.Log(w, snap, f)
			}); err != nil {
				return err
			}
			if commit {
				return commitExport(cmd, a, output, snap)
			}
			return nil
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&format, "format", "print", "output format: print, csv or pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&commit, "commit", false, "commit the exported file to the project's git repository")
	return cmd
}

// commitExport records an exported file in the project repository.
func commitExport(cmd *cobra.Command, a *app, output string, snap mileagelog.Snapshot) error {
	if output == "" {
		return fmt.Errorf("--commit needs --output")
	}
	dir, err := filepath.Abs(filepath.Dir(a.configPath))
	if err != nil {
		return err
	}
	if !gitops.IsRepo(dir) {
		return fmt.Errorf("%s is not a git repository (run init --git)", dir)
	}
	rel, err := projectRelative(dir, output)
	if err != nil {
		return err
	}

	repo := &gitops.Repo{Dir: dir, AuthorName: a.cfg.Owner, AuthorEmail: a.cfg.Email.From}
	msg := fmt.Sprintf("log: export %d trips for %d", len(snap.Entries), snap.TaxYear)
	hash, err := repo.Commit(cmd.Context(), msg, rel)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Committed %s\n", hash)
	return nil
}

// projectRelative returns path relative to dir, failing when path lies
// outside it.
func projectRelative(dir, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the project directory %s", path, dir)
	}
	return rel, nil
}

func newLogImportCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file|dir>",
		Short: "Import trips from a CSV file, or every CSV in a directory",
		Long: `Import trips from CSV. The format is detected from the header unless
--format is given. When a directory is given, each CSV inside it is imported
and then moved to a processed/ subdirectory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, st, err := a.loadLog(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			reg := importer.DefaultRegistry()
			out := cmd.OutOrStdout()

			info, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("import source: %w", err)
			}

			var files []importer.FileInfo
			if info.IsDir() {
				if files, err = importer.Scan(args[0]); err != nil {
					return err
				}
				if len(files) == 0 {
					fmt.Fprintln(out, "No CSV files to import.")
					return nil
				}
			} else {
				files = []importer.FileInfo{{Name: filepath.Base(args[0]), Path: args[0], Size: info.Size()}}
			}

			parsed, err := reg.ParseFiles(cmd.Context(), files, format)
			if err != nil {
				return err
			}
			for _, p := range parsed {
				if err := importParsed(cmd, a, svc, p); err != nil {
					return err
				}
				if info.IsDir() {
					if err := importer.MarkProcessed(args[0], p.File.Name); err != nil {
						return err
					}
				}
			}
			fmt.Fprintf(out, "Total: %d trips, %s miles\n", svc.Log().Len(), deduction.FormatMiles(svc.Log().TotalMiles()))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "input format: native or web (default: detect)")
	return cmd
}

// importParsed adds each trip from one file. Rows without a country take the
// configured one. Trips before a failing row stay in the log.
func importParsed(cmd *cobra.Command, a *app, svc *mileagelog.Service, p importer.Parsed) error {
	for i, d := range p.Drafts {
		if strings.TrimSpace(d.Country) == "" {
			d.Country = a.cfg.Country
		}
		if _, err := svc.Add(cmd.Context(), d); err != nil {
			return fmt.Errorf("%s row %d: %w", p.File.Path, i+1, err)
		}
	}
	a.logger.Info("imported trips",
		zap.String("file", p.File.Path),
		zap.String("format", p.Format),
		zap.Int("count", len(p.Drafts)))
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d trips from %s (%s)\n", len(p.Drafts), p.File.Name, p.Format)
	return nil
}

func newLogEmailCommand(a *app) *cobra.Command {
	var opts snapshotOptions

	cmd := &cobra.Command{
		Use:   "email <address>",
		Short: "Email the mileage log summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, st, err := a.loadLog(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := a.snapshot(svc.Log(), opts)
			if err != nil {
				return err
			}
			if err := snap.Check(); err != nil {
				return err
			}
			body, err := notify.RenderLog(snap)
			if err != nil {
				return err
			}

			subject := fmt.Sprintf("Your %d mileage log", snap.TaxYear)
			rec, err := a.notifier(st).Send(cmd.Context(), args[0], model.EmailLog, subject, body)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Emailed log to %s.\n", rec.Recipient)
			return nil
		},
	}

	opts.register(cmd)
	return cmd
}
