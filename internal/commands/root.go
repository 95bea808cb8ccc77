package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mileagekit/mileage/internal/buildinfo"
	"github.com/mileagekit/mileage/internal/config"
	"github.com/mileagekit/mileage/internal/logging"
	"github.com/mileagekit/mileage/internal/mileagelog"
	"github.com/mileagekit/mileage/internal/notify"
	"github.com/mileagekit/mileage/internal/rates"
	"github.com/mileagekit/mileage/internal/store"
)

// app is the state shared by every subcommand. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
	rates  *rates.Table
	now    func() time.Time
	sender notify.Sender
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{now: time.Now})
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "mileage",
		Short:   "IRS mileage deduction calculator and trip log",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", config.FileName, "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newInitCommand(a),
		newRatesCommand(a),
		newCalcCommand(a),
		newLogCommand(a),
		newHistoryCommand(a),
		newEmailsCommand(a),
	)

	return rootCmd
}

// setup loads configuration, environment overrides, the logger and the rate
// table.
func (a *app) setup() error {
	cfg, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return err
	}
	env, err := config.ReadEnv(filepath.Join(filepath.Dir(a.configPath), ".env"))
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", a.configPath, err)
	}
	a.cfg = cfg

	if a.logger == nil {
		if a.logger, err = logging.New(cfg.Logging.Level, a.verbose); err != nil {
			return err
		}
	}

	if cfg.Rates.Schedule != "" {
		if a.rates, err = rates.LoadSchedule(a.path(cfg.Rates.Schedule)); err != nil {
			return err
		}
	} else {
		a.rates = rates.Default()
	}

	a.logger.Debug("configured",
		zap.String("config", a.configPath),
		zap.String("owner", cfg.Owner),
		zap.Int("latest_rate_year", a.rates.LatestYear()))
	return nil
}

// path resolves p relative to the config file's directory.
func (a *app) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(a.configPath), p)
}

// taxYear returns override if set, else the configured year, else the
// latest year in the rate table.
func (a *app) taxYear(override int) int {
	if override != 0 {
		return override
	}
	return a.rates.ResolveYear(a.cfg.TaxYear)
}

func (a *app) openStore() (*store.Store, error) {
	return store.Open(a.path(a.cfg.Store.Path), a.logger)
}

// loadLog opens the store and reads the owner's log. The caller closes the
// returned store.
func (a *app) loadLog(ctx context.Context) (*mileagelog.Service, *store.Store, error) {
	st, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	svc := mileagelog.NewService(st, a.cfg.Owner)
	if err := svc.Load(ctx); err != nil {
		st.Close()
		return nil, nil, err
	}
	return svc, st, nil
}

func (a *app) notifier(rec notify.Recorder) *notify.Notifier {
	sender := a.sender
	if sender == nil {
		switch a.cfg.Email.Transport {
		case "smtp":
			sender = notify.NewSMTPSender(a.cfg.Email.SMTPHost, a.cfg.Email.SMTPPort, a.cfg.Email.Username, a.cfg.Email.Password)
		default:
			sender = notify.LogSender{Logger: a.logger}
		}
	}
	return notify.NewNotifier(sender, rec, a.cfg.Email.From, a.logger)
}
