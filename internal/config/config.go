package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mbox-addressbook/internal/models"

	"gopkg.in/yaml.v2"
)

// Defaults applied by Load when a field is left empty.
const (
	DefaultProgressEvery     = 5000
	DefaultMaxMessageBytes   = 32 << 20
	DefaultTrailingLines     = 15
	DefaultMaxPhones         = 3
	DefaultMaxTitles         = 2
	DefaultMaxCompanies      = 2
	DefaultMaxSubjects       = 20
	DefaultRequestsPerMinute = 20
	DefaultModel             = "claude-3-5-haiku-20241022"
	DefaultAPIKeyEnv         = "ANTHROPIC_API_KEY"
)

// Load reads the configuration from the specified YAML file and returns a Config struct
func Load(filepath string) (*models.Config, error) {
	configFile, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}

	return Parse(configFile)
}

// Parse decodes YAML configuration, applies defaults and validates the result.
func Parse(data []byte) (*models.Config, error) {
	var config models.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	ApplyDefaults(&config)
	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// ApplyDefaults fills every unset tunable with its default.
func ApplyDefaults(cfg *models.Config) {
	if cfg.Scan.ProgressEvery <= 0 {
		cfg.Scan.ProgressEvery = DefaultProgressEvery
	}
	if cfg.Scan.MaxMessageBytes <= 0 {
		cfg.Scan.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if cfg.Signature.TrailingLines <= 0 {
		cfg.Signature.TrailingLines = DefaultTrailingLines
	}
	if cfg.Resolver.MaxPhones <= 0 {
		cfg.Resolver.MaxPhones = DefaultMaxPhones
	}
	if cfg.Resolver.MaxTitles <= 0 {
		cfg.Resolver.MaxTitles = DefaultMaxTitles
	}
	if cfg.Resolver.MaxCompanies <= 0 {
		cfg.Resolver.MaxCompanies = DefaultMaxCompanies
	}
	if cfg.Resolver.MaxSubjects <= 0 {
		cfg.Resolver.MaxSubjects = DefaultMaxSubjects
	}
	if cfg.Enrichment.Model == "" {
		cfg.Enrichment.Model = DefaultModel
	}
	if cfg.Enrichment.APIKeyEnv == "" {
		cfg.Enrichment.APIKeyEnv = DefaultAPIKeyEnv
	}
	if cfg.Enrichment.RequestsPerMinute <= 0 {
		cfg.Enrichment.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.Enrichment.Timeout <= 0 {
		cfg.Enrichment.Timeout = 30 * time.Second
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "out"
	}
	if cfg.Output.IndexFile == "" {
		cfg.Output.IndexFile = "index.json"
	}
	if cfg.Output.ContactsFile == "" {
		cfg.Output.ContactsFile = "contacts.db"
	}
	if cfg.Output.CSVDir == "" {
		cfg.Output.CSVDir = "csv"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate rejects configurations that cannot produce a meaningful index.
func Validate(cfg *models.Config) error {
	if len(cfg.Owner.Addresses) == 0 && len(cfg.Owner.Aliases) == 0 {
		return errors.New("owner.addresses: at least one owner identity is required")
	}
	for _, a := range append(append([]string{}, cfg.Owner.Addresses...), cfg.Owner.Aliases...) {
		if !strings.Contains(a, "@") {
			return fmt.Errorf("owner identity %q is not an address", a)
		}
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format %q: want json or text", cfg.Logging.Format)
	}
	return nil
}

// IndexPath returns the absolute-or-relative path of the index artifact.
func IndexPath(cfg *models.Config) string {
	return filepath.Join(cfg.Output.Dir, cfg.Output.IndexFile)
}

// ContactsPath returns the path of the contact-set database.
func ContactsPath(cfg *models.Config) string {
	return filepath.Join(cfg.Output.Dir, cfg.Output.ContactsFile)
}

// CSVPath returns the directory that receives the per-category CSV exports.
func CSVPath(cfg *models.Config) string {
	return filepath.Join(cfg.Output.Dir, cfg.Output.CSVDir)
}
