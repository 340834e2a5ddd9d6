package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultGPSStaleAfter  = 30 * time.Minute
	defaultPriceTolerance = 0
)

// IssueRules holds the thresholds used when deriving appointment issue flags.
type IssueRules struct {
	GPSStaleAfter  time.Duration
	PriceTolerance int64
}

// issueRulesFile is the on-disk YAML shape, e.g.
//
//	gpsStaleAfter: 20m
//	priceTolerance: 50000
type issueRulesFile struct {
	GPSStaleAfter  string `yaml:"gpsStaleAfter"`
	PriceTolerance *int64 `yaml:"priceTolerance"`
}

// DefaultIssueRules returns the rules used when no file is configured.
func DefaultIssueRules() IssueRules {
	return IssueRules{
		GPSStaleAfter:  defaultGPSStaleAfter,
		PriceTolerance: defaultPriceTolerance,
	}
}

// LoadIssueRules reads issue rules from a YAML file. Missing keys keep their defaults.
func LoadIssueRules(path string) (IssueRules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return IssueRules{}, fmt.Errorf("read issue rules: %w", err)
	}
	return ParseIssueRules(raw)
}

// ParseIssueRules decodes YAML issue rules.
func ParseIssueRules(raw []byte) (IssueRules, error) {
	rules := DefaultIssueRules()

	var file issueRulesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return IssueRules{}, fmt.Errorf("parse issue rules: %w", err)
	}

	if value := strings.TrimSpace(file.GPSStaleAfter); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return IssueRules{}, fmt.Errorf("parse gpsStaleAfter: %w", err)
		}
		if d <= 0 {
			return IssueRules{}, fmt.Errorf("gpsStaleAfter must be positive")
		}
		rules.GPSStaleAfter = d
	}

	if file.PriceTolerance != nil {
		if *file.PriceTolerance < 0 {
			return IssueRules{}, fmt.Errorf("priceTolerance must not be negative")
		}
		rules.PriceTolerance = *file.PriceTolerance
	}

	return rules, nil
}
