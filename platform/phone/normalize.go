// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used for numbers stored without a country prefix.
const DefaultRegion = "ID"

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	return NormalizeE164InRegion(input, DefaultRegion)
}

// NormalizeE164InRegion is NormalizeE164 with an explicit fallback region.
func NormalizeE164InRegion(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// NormalizePtr normalizes an optional number, keeping nil and empty values as nil.
func NormalizePtr(input *string) *string {
	if input == nil {
		return nil
	}
	normalized := NormalizeE164(*input)
	if normalized == "" {
		return nil
	}
	return &normalized
}
