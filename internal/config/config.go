package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mileagekit/mileage/internal/model"
)

// FileName is the config file looked up in the working directory.
const FileName = "mileage.yaml"

// Config represents the top-level mileage.yaml configuration.
type Config struct {
	Owner         string        `yaml:"owner"`
	TaxYear       int           `yaml:"tax_year"` // 0 means the latest published year
	Country       string        `yaml:"country"`
	Rates         RatesConfig   `yaml:"rates"`
	Store         StoreConfig   `yaml:"store"`
	History       HistoryConfig `yaml:"history"`
	Email         EmailConfig   `yaml:"email"`
	MarginalRates []string      `yaml:"marginal_rates"`
	Logging       LoggingConfig `yaml:"logging"`
}

// RatesConfig points at an optional replacement rate schedule.
type RatesConfig struct {
	Schedule string `yaml:"schedule,omitempty"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// HistoryConfig controls saved calculations.
type HistoryConfig struct {
	Path string `yaml:"path"`
	Keep int    `yaml:"keep"`
}

// EmailConfig selects how summaries are delivered.
type EmailConfig struct {
	Transport string `yaml:"transport"` // "log" or "smtp"
	From      string `yaml:"from"`
	SMTPHost  string `yaml:"smtp_host,omitempty"`
	SMTPPort  int    `yaml:"smtp_port,omitempty"`
	Username  string `yaml:"username,omitempty"`
	Password  string `yaml:"password,omitempty"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads a mileage.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault reads path, or returns Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(""), nil
	}
	return cfg, err
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(owner string) *Config {
	if owner == "" {
		owner = "local"
	}
	return &Config{
		Owner:   owner,
		Country: model.DefaultCountry,
		Store: StoreConfig{
			Path: "mileage.db",
		},
		History: HistoryConfig{
			Path: "calculations.csv",
			Keep: 10,
		},
		Email: EmailConfig{
			Transport: "log",
			From:      "noreply@mileage.local",
			SMTPPort:  587,
		},
		MarginalRates: []string{"0.22", "0.24", "0.32"},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs model.ValidationErrors
	if c.Owner == "" {
		errs = append(errs, model.ValidationError{Field: "owner", Message: "required"})
	}
	if c.TaxYear < 0 {
		errs = append(errs, model.ValidationError{Field: "tax_year", Message: "must not be negative"})
	}
	if c.History.Keep < 0 {
		errs = append(errs, model.ValidationError{Field: "history.keep", Message: "must not be negative"})
	}
	switch c.Email.Transport {
	case "log":
	case "smtp":
		if c.Email.SMTPHost == "" {
			errs = append(errs, model.ValidationError{Field: "email.smtp_host", Message: "required for smtp transport"})
		}
	default:
		errs = append(errs, model.ValidationError{Field: "email.transport", Message: fmt.Sprintf("unknown transport %q", c.Email.Transport)})
	}
	if _, err := c.ParsedMarginalRates(); err != nil {
		errs = append(errs, model.ValidationError{Field: "marginal_rates", Message: err.Error()})
	}
	return errs.AsError()
}

// ParsedMarginalRates returns MarginalRates as decimals in [0, 1].
func (c *Config) ParsedMarginalRates() ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, 0, len(c.MarginalRates))
	for _, s := range c.MarginalRates {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", s, err)
		}
		if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("%s is not between 0 and 1", s)
		}
		out = append(out, d)
	}
	return out, nil
}

// Environment variables that override file settings.
const (
	EnvOwner        = "MILEAGE_OWNER"
	EnvDBPath       = "MILEAGE_DB_PATH"
	EnvSMTPHost     = "MILEAGE_SMTP_HOST"
	EnvSMTPPassword = "MILEAGE_SMTP_PASSWORD"
	EnvTaxYear      = "MILEAGE_TAX_YEAR"
)

var envKeys = []string{EnvOwner, EnvDBPath, EnvSMTPHost, EnvSMTPPassword, EnvTaxYear}

// ReadEnv collects overrides from the dotenv file at path and the process
// environment. Process variables win, as with godotenv.Load. A missing
// dotenv file is not an error.
func ReadEnv(path string) (map[string]string, error) {
	env := map[string]string{}
	if path != "" {
		fileEnv, err := godotenv.Read(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}
	for _, k := range envKeys {
		if v, ok := os.LookupEnv(k); ok {
			env[k] = v
		}
	}
	return env, nil
}

// ApplyEnv overrides fields named by the MILEAGE_* variables in env.
func (c *Config) ApplyEnv(env map[string]string) error {
	if v := env[EnvOwner]; v != "" {
		c.Owner = v
	}
	if v := env[EnvDBPath]; v != "" {
		c.Store.Path = v
	}
	if v := env[EnvSMTPHost]; v != "" {
		c.Email.SMTPHost = v
	}
	if v := env[EnvSMTPPassword]; v != "" {
		c.Email.Password = v
	}
	if v := env[EnvTaxYear]; v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTaxYear, err)
		}
		c.TaxYear = year
	}
	return nil
}
