package domain

import (
	"reflect"
	"testing"
)

func TestIneligibilityReasons(t *testing.T) {
	cases := []struct {
		name     string
		tech     Technician
		category string
		want     []string
	}{
		{"eligible", Technician{IsActive: true, IsAvailable: true, Skills: []string{"AC"}}, "ac", []string{}},
		{"no category", Technician{IsActive: true, IsAvailable: true}, "", []string{}},
		{"inactive", Technician{IsAvailable: true, Skills: []string{"AC"}}, "AC", []string{ReasonInactive}},
		{"busy", Technician{IsActive: true, Skills: []string{"AC"}}, "AC", []string{ReasonUnavailable}},
		{"wrong skill", Technician{IsActive: true, IsAvailable: true, Skills: []string{"Fridge"}}, "AC", []string{ReasonMissingSkill + ": AC"}},
		{"everything", Technician{}, "AC", []string{ReasonInactive, ReasonUnavailable, ReasonMissingSkill + ": AC"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.tech.IneligibilityReasons(tc.category)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("reasons = %v, want %v", got, tc.want)
			}
		})
	}
}
