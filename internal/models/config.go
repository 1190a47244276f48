package models

import "time"

// Config represents the application configuration
type Config struct {
	Owner          OwnerConfig          `yaml:"owner"`
	Organization   OrganizationConfig   `yaml:"organization"`
	Scan           ScanConfig           `yaml:"scan"`
	Signature      SignatureConfig      `yaml:"signature"`
	Resolver       ResolverConfig       `yaml:"resolver"`
	Classification ClassificationConfig `yaml:"classification"`
	Enrichment     EnrichmentConfig     `yaml:"enrichment"`
	Output         OutputConfig         `yaml:"output"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// OwnerConfig lists the archive owner's identities. Entries of the form
// "*@example.com" match every address at that domain.
type OwnerConfig struct {
	Addresses []string `yaml:"addresses"`
	Aliases   []string `yaml:"aliases"`
}

// OrganizationConfig describes the owner's own organization.
type OrganizationConfig struct {
	Domains    []string `yaml:"domains"`
	StaffAllow []string `yaml:"staffAllow"` // local-parts of real staff mailboxes
}

// ScanConfig controls archive streaming.
type ScanConfig struct {
	ProgressEvery   int `yaml:"progressEvery"`
	MaxMessageBytes int `yaml:"maxMessageBytes"`
}

// SignatureConfig controls signature mining.
type SignatureConfig struct {
	TrailingLines int `yaml:"trailingLines"`
}

// ResolverConfig bounds per-contact list growth.
type ResolverConfig struct {
	MaxPhones    int      `yaml:"maxPhones"`
	MaxTitles    int      `yaml:"maxTitles"`
	MaxCompanies int      `yaml:"maxCompanies"`
	MaxSubjects  int      `yaml:"maxSubjects"`
	SideTables   []string `yaml:"sideTables"`
}

// ClassificationConfig carries curated dictionaries that extend the built-in ones.
type ClassificationConfig struct {
	LenderDomains   []string `yaml:"lenderDomains"`
	WebmailDomains  []string `yaml:"webmailDomains"`
	RolePatterns    []string `yaml:"rolePatterns"`
	RealtorKeywords []string `yaml:"realtorKeywords"`
	VendorKeywords  []string `yaml:"vendorKeywords"`
}

// EnrichmentConfig configures the optional delegated classification path.
type EnrichmentConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Model             string        `yaml:"model"`
	APIKeyEnv         string        `yaml:"apiKeyEnv"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
	Timeout           time.Duration `yaml:"timeout"` // ex: "30s"
	MaxContacts       int           `yaml:"maxContacts"`
}

// OutputConfig names the artifacts written at the end of a run.
type OutputConfig struct {
	Dir          string `yaml:"dir"`
	IndexFile    string `yaml:"indexFile"`
	ContactsFile string `yaml:"contactsFile"`
	CSVDir       string `yaml:"csvDir"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}
