package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mileagekit/mileage/internal/config"
	"github.com/mileagekit/mileage/internal/gitops"
	"github.com/mileagekit/mileage/internal/model"
	"github.com/mileagekit/mileage/internal/store"
)

func newInitCommand(a *app) *cobra.Command {
	var owner string
	var taxYear int
	var force bool
	var useGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new mileage project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(a, cmd.OutOrStdout(), absDir, owner, taxYear, force); err != nil {
				return err
			}
			if useGit {
				return initGit(cmd, a, absDir)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner name stored with each trip (default \"local\")")
	cmd.Flags().IntVar(&taxYear, "year", 0, "default tax year (0 = latest published)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	cmd.Flags().BoolVar(&useGit, "git", false, "keep the project in a git repository")

	return cmd
}

func runInit(a *app, out io.Writer, dir, owner string, taxYear int, force bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	}

	if taxYear != 0 {
		if _, err := a.rates.Rate(taxYear, model.PurposeBusiness); err != nil {
			return err
		}
	}

	// Write mileage.yaml.
	cfg := config.Default(owner)
	cfg.TaxYear = taxYear
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Create the database so later commands start from a valid schema.
	st, err := store.Open(filepath.Join(dir, cfg.Store.Path), a.logger)
	if err != nil {
		return err
	}
	if err := st.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}

	// Write .gitignore.
	gitignore := cfg.Store.Path + "\n.env\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	fmt.Fprintf(out, "Initialized mileage project at %s (owner %s)\n", dir, cfg.Owner)
	return nil
}

// initGit commits the new project files so exported logs can be tracked
// alongside the config.
func initGit(cmd *cobra.Command, a *app, dir string) error {
	if !gitops.Available() {
		return gitops.ErrGitNotFound
	}
	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		return err
	}
	repo, err := gitops.Init(cmd.Context(), dir, cfg.Owner, cfg.Email.From)
	if err != nil {
		return err
	}
	hash, err := repo.Commit(cmd.Context(), "init: mileage project for "+cfg.Owner, config.FileName, ".gitignore")
	if err != nil {
		return err
	}
	a.logger.Debug("committed project", zap.String("dir", dir), zap.String("commit", hash))
	fmt.Fprintf(cmd.OutOrStdout(), "Committed %s\n", hash)
	return nil
}
