package config

import (
	"testing"
	"time"
)

func TestParseIssueRulesOverridesDefaults(t *testing.T) {
	rules, err := ParseIssueRules([]byte("gpsStaleAfter: 20m\npriceTolerance: 50000\n"))
	if err != nil {
		t.Fatalf("ParseIssueRules returned error: %v", err)
	}
	if rules.GPSStaleAfter != 20*time.Minute {
		t.Fatalf("expected 20m staleness window, got %s", rules.GPSStaleAfter)
	}
	if rules.PriceTolerance != 50000 {
		t.Fatalf("expected tolerance 50000, got %d", rules.PriceTolerance)
	}
}

func TestParseIssueRulesKeepsDefaultsForMissingKeys(t *testing.T) {
	rules, err := ParseIssueRules([]byte("priceTolerance: 0\n"))
	if err != nil {
		t.Fatalf("ParseIssueRules returned error: %v", err)
	}
	if rules.GPSStaleAfter != defaultGPSStaleAfter {
		t.Fatalf("expected default staleness window, got %s", rules.GPSStaleAfter)
	}
}

func TestParseIssueRulesRejectsInvalidValues(t *testing.T) {
	inputs := []string{
		"gpsStaleAfter: soon\n",
		"gpsStaleAfter: -5m\n",
		"priceTolerance: -1\n",
		"gpsStaleAfter: [1, 2\n",
	}
	for _, input := range inputs {
		if _, err := ParseIssueRules([]byte(input)); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}
