package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yamlContent := `owner:
  addresses:
    - "Owner@Example-Mortgage.com"
  aliases:
    - "*@example-mortgage.com"
organization:
  domains: ["example-mortgage.com"]
  staffAllow: ["owner", "processing"]
scan:
  progressEvery: 100
enrichment:
  enabled: true
  requestsPerMinute: 6
  timeout: 45s
classification:
  lenderDomains: ["rate.com", "uwm.com"]
output:
  dir: "/tmp/book"
`

	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer func(name string) {
		_ = os.Remove(name)
	}(tmpFile.Name())

	if _, err := tmpFile.Write([]byte(yamlContent)); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	_ = tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if len(cfg.Owner.Addresses) != 1 || cfg.Owner.Addresses[0] != "Owner@Example-Mortgage.com" {
		t.Errorf("Expected one owner address, got %v", cfg.Owner.Addresses)
	}

	if cfg.Scan.ProgressEvery != 100 {
		t.Errorf("Expected progressEvery 100, got %d", cfg.Scan.ProgressEvery)
	}

	if cfg.Enrichment.Timeout != 45*time.Second {
		t.Errorf("Expected enrichment timeout 45s, got %v", cfg.Enrichment.Timeout)
	}

	if cfg.Enrichment.RequestsPerMinute != 6 {
		t.Errorf("Expected 6 requests per minute, got %d", cfg.Enrichment.RequestsPerMinute)
	}

	if len(cfg.Classification.LenderDomains) != 2 {
		t.Errorf("Expected 2 lender domains, got %d", len(cfg.Classification.LenderDomains))
	}

	if got := ContactsPath(cfg); got != "/tmp/book/contacts.db" {
		t.Errorf("ContactsPath() = %q, want /tmp/book/contacts.db", got)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("owner:\n  addresses: [me@example.com]\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	tests := []struct {
		name string
		got  int
		want int
	}{
		{"progressEvery", cfg.Scan.ProgressEvery, DefaultProgressEvery},
		{"trailingLines", cfg.Signature.TrailingLines, DefaultTrailingLines},
		{"maxPhones", cfg.Resolver.MaxPhones, DefaultMaxPhones},
		{"maxTitles", cfg.Resolver.MaxTitles, DefaultMaxTitles},
		{"maxCompanies", cfg.Resolver.MaxCompanies, DefaultMaxCompanies},
		{"requestsPerMinute", cfg.Enrichment.RequestsPerMinute, DefaultRequestsPerMinute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
			}
		})
	}

	if cfg.Logging.Format != "json" {
		t.Errorf("Expected default log format json, got %q", cfg.Logging.Format)
	}
	if IndexPath(cfg) != "out/index.json" {
		t.Errorf("IndexPath() = %q, want out/index.json", IndexPath(cfg))
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no owner", "scan:\n  progressEvery: 10\n"},
		{"owner without at", "owner:\n  addresses: [owner]\n"},
		{"bad log format", "owner:\n  addresses: [me@example.com]\nlogging:\n  format: xml\n"},
		{"malformed yaml", "owner: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Errorf("Parse() expected error for %s", tt.name)
			}
		})
	}
}
