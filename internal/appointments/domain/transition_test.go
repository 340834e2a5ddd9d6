package domain

import (
	"reflect"
	"strings"
	"testing"
)

func TestValidateForwardPath(t *testing.T) {
	cases := []struct {
		from, to Status
		allowed  bool
		rule     Rule
	}{
		{StatusScheduled, StatusEnRoute, true, RuleNone},
		{StatusEnRoute, StatusArrived, true, RuleNone},
		{StatusArrived, StatusChecking, true, RuleNone},
		{StatusChecking, StatusPriceReview, true, RuleNone},
		{StatusChecking, StatusRepairing, true, RuleNone},
		{StatusPriceReview, StatusRepairing, true, RuleNone},
		{StatusRepairing, StatusRepaired, true, RuleNone},
		{StatusScheduled, StatusArrived, false, RuleSkipsIntermediate},
		{StatusArrived, StatusRepairing, false, RuleSkipsIntermediate},
		{StatusRepairing, StatusChecking, false, RuleBackwardTransition},
		{StatusEnRoute, StatusScheduled, false, RuleBackwardTransition},
		{StatusEnRoute, StatusEnRoute, false, RuleNoChange},
	}

	for _, tc := range cases {
		d := Validate(tc.from, tc.to, RoleAdmin, false)
		if d.Allowed != tc.allowed || d.Rule != tc.rule {
			t.Errorf("Validate(%s, %s) = allowed %v rule %q, want allowed %v rule %q",
				tc.from, tc.to, d.Allowed, d.Rule, tc.allowed, tc.rule)
		}
	}
}

func TestValidateExceptionalTargetsFromActiveStatuses(t *testing.T) {
	active := []Status{StatusScheduled, StatusEnRoute, StatusArrived, StatusChecking, StatusPriceReview, StatusRepairing}
	for _, from := range active {
		for _, to := range []Status{StatusCancelled, StatusAbsent, StatusDispute} {
			d := Validate(from, to, RoleAdmin, false)
			if !d.Allowed {
				t.Errorf("expected %s -> %s to be allowed, got %s", from, to, d.Rule)
			}
			if len(d.Warnings) != 0 {
				t.Errorf("expected no warnings for %s -> %s, got %v", from, to, d.Warnings)
			}
		}
	}
}

func TestValidateSkipsIntermediateThenForced(t *testing.T) {
	d := Validate(StatusScheduled, StatusRepaired, RoleAdmin, false)
	if d.Allowed {
		t.Fatalf("expected SCHEDULED -> REPAIRED to be rejected without skip")
	}
	if d.Reason != ReasonSkipsIntermediate {
		t.Fatalf("unexpected reason %q", d.Reason)
	}
	if !d.RetryWithSkip {
		t.Fatalf("expected the rejection to be retryable with skipValidation")
	}
	wantSkipped := []Status{StatusEnRoute, StatusArrived, StatusChecking, StatusRepairing}
	if !reflect.DeepEqual(d.SkippedStates, wantSkipped) {
		t.Fatalf("skipped = %v, want %v", d.SkippedStates, wantSkipped)
	}

	forced := Validate(StatusScheduled, StatusRepaired, RoleAdmin, true)
	if !forced.Allowed {
		t.Fatalf("expected forced transition to be allowed, got %s", forced.Rule)
	}
	if len(forced.Warnings) != 1 || !strings.Contains(forced.Warnings[0], "EN_ROUTE, ARRIVED, CHECKING, REPAIRING") {
		t.Fatalf("expected warning listing skipped states, got %v", forced.Warnings)
	}
	if forced.Severity() != SeverityWarning {
		t.Fatalf("expected WARNING severity, got %s", forced.Severity())
	}
	if forced.Exceptional {
		t.Fatalf("forward skip is not an exceptional correction")
	}
}

func TestTerminalStatusesAreAbsorbingWithoutSkip(t *testing.T) {
	for _, from := range []Status{StatusCancelled, StatusRepaired} {
		for _, to := range AllStatuses {
			if to == from {
				continue
			}
			for _, role := range []Role{RoleAdmin, RoleSystem, RoleTechnician, RoleCustomer} {
				if d := Validate(from, to, role, false); d.Allowed {
					t.Errorf("%s -> %s by %s must be rejected without skip", from, to, role)
				}
				if role != RoleAdmin {
					if d := Validate(from, to, role, true); d.Allowed {
						t.Errorf("%s -> %s by %s must be rejected even with skip", from, to, role)
					}
				}
			}
		}
	}
}

func TestTerminalToTerminalRejectedEvenWithSkip(t *testing.T) {
	for _, pair := range [][2]Status{{StatusCancelled, StatusRepaired}, {StatusRepaired, StatusCancelled}} {
		d := Validate(pair[0], pair[1], RoleAdmin, true)
		if d.Allowed || d.Rule != RuleAlreadyTerminal {
			t.Errorf("%s -> %s: expected ALREADY_TERMINAL, got allowed=%v rule=%s", pair[0], pair[1], d.Allowed, d.Rule)
		}
		if d.Reason != ReasonAlreadyTerminal {
			t.Errorf("unexpected reason %q", d.Reason)
		}
	}
}

func TestTerminalReopenIsExceptional(t *testing.T) {
	d := Validate(StatusCancelled, StatusScheduled, RoleAdmin, true)
	if !d.Allowed {
		t.Fatalf("expected admin reopen with skip to be allowed, got %s", d.Rule)
	}
	if !d.Exceptional || d.Severity() != SeverityCritical {
		t.Fatalf("expected exceptional CRITICAL decision, got exceptional=%v severity=%s", d.Exceptional, d.Severity())
	}
}

func TestDisputeIsFrozen(t *testing.T) {
	d := Validate(StatusDispute, StatusCancelled, RoleAdmin, false)
	if d.Allowed || d.Rule != RuleDisputeFrozen {
		t.Fatalf("expected DISPUTE_FROZEN, got allowed=%v rule=%s", d.Allowed, d.Rule)
	}
	if !d.RetryWithSkip {
		t.Fatalf("expected adjudication override to be possible")
	}

	forced := Validate(StatusDispute, StatusRepairing, RoleAdmin, true)
	if !forced.Allowed || forced.Severity() != SeverityWarning {
		t.Fatalf("expected forced exit from dispute with warning, got %+v", forced)
	}
}

func TestAbsentOnlyRebooksWithoutSkip(t *testing.T) {
	if d := Validate(StatusAbsent, StatusScheduled, RoleAdmin, false); !d.Allowed {
		t.Fatalf("expected ABSENT -> SCHEDULED rebooking to be allowed, got %s", d.Rule)
	}
	if d := Validate(StatusAbsent, StatusCancelled, RoleAdmin, false); !d.Allowed {
		t.Fatalf("expected ABSENT -> CANCELLED to be allowed, got %s", d.Rule)
	}
	d := Validate(StatusAbsent, StatusRepairing, RoleAdmin, false)
	if d.Allowed || d.Rule != RuleOffPath {
		t.Fatalf("expected OFF_PATH, got allowed=%v rule=%s", d.Allowed, d.Rule)
	}
}

func TestRolePolicy(t *testing.T) {
	cases := []struct {
		role     Role
		from, to Status
		skip     bool
		allowed  bool
		rule     Rule
	}{
		{RoleCustomer, StatusScheduled, StatusCancelled, false, true, RuleNone},
		{RoleCustomer, StatusRepairing, StatusDispute, false, true, RuleNone},
		{RoleCustomer, StatusScheduled, StatusEnRoute, false, false, RuleRoleNotPermitted},
		{RoleTechnician, StatusScheduled, StatusEnRoute, false, true, RuleNone},
		{RoleTechnician, StatusEnRoute, StatusAbsent, false, true, RuleNone},
		{RoleTechnician, StatusEnRoute, StatusCancelled, false, false, RuleRoleNotPermitted},
		{RoleTechnician, StatusScheduled, StatusRepaired, true, false, RuleSkipsIntermediate},
		{RoleSystem, StatusScheduled, StatusCancelled, false, true, RuleNone},
		{Role("guest"), StatusScheduled, StatusCancelled, false, false, RuleRoleNotPermitted},
	}

	for _, tc := range cases {
		d := Validate(tc.from, tc.to, tc.role, tc.skip)
		if d.Allowed != tc.allowed || d.Rule != tc.rule {
			t.Errorf("%s %s -> %s (skip=%v): allowed=%v rule=%q, want allowed=%v rule=%q",
				tc.role, tc.from, tc.to, tc.skip, d.Allowed, d.Rule, tc.allowed, tc.rule)
		}
		if !d.Allowed && d.RetryWithSkip {
			t.Errorf("%s must never be offered a skip retry", tc.role)
		}
	}
}

func TestNonAdminSkipIsIgnoredWithWarning(t *testing.T) {
	d := Validate(StatusScheduled, StatusEnRoute, RoleTechnician, true)
	if !d.Allowed {
		t.Fatalf("expected forward step to be allowed, got %s", d.Rule)
	}
	if len(d.Warnings) != 1 || !strings.Contains(d.Warnings[0], "skipValidation ignored") {
		t.Fatalf("expected ignored-skip warning, got %v", d.Warnings)
	}
}

func TestValidateIsDeterministic(t *testing.T) {
	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			for _, skip := range []bool{false, true} {
				first := Validate(from, to, RoleAdmin, skip)
				second := Validate(from, to, RoleAdmin, skip)
				if !reflect.DeepEqual(first, second) {
					t.Fatalf("Validate(%s, %s, %v) is not deterministic: %+v vs %+v", from, to, skip, first, second)
				}
			}
		}
	}
}

func TestValidateUnknownStatus(t *testing.T) {
	d := Validate(StatusScheduled, Status("FINISHED"), RoleAdmin, true)
	if d.Allowed || d.Rule != RuleUnknownStatus {
		t.Fatalf("expected UNKNOWN_STATUS, got allowed=%v rule=%s", d.Allowed, d.Rule)
	}
}

func TestGuardActive(t *testing.T) {
	if d := GuardActive(StatusEnRoute); !d.Allowed {
		t.Fatalf("expected EN_ROUTE to be mutable")
	}
	if d := GuardActive(StatusRepaired); d.Allowed || d.Rule != RuleAlreadyTerminal {
		t.Fatalf("expected ALREADY_TERMINAL for REPAIRED, got %+v", d)
	}
	if d := GuardActive(StatusDispute); d.Allowed || d.Rule != RuleDisputeFrozen {
		t.Fatalf("expected DISPUTE_FROZEN, got %+v", d)
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := ParseStatus(" price_review "); !ok || s != StatusPriceReview {
		t.Fatalf("expected PRICE_REVIEW, got %q ok=%v", s, ok)
	}
	if _, ok := ParseStatus("done"); ok {
		t.Fatalf("expected unknown status to fail parsing")
	}
}

func TestIsOnSite(t *testing.T) {
	want := map[Status]bool{
		StatusArrived:     true,
		StatusChecking:    true,
		StatusPriceReview: true,
		StatusRepairing:   true,
	}
	for _, s := range AllStatuses {
		if s.IsOnSite() != want[s] {
			t.Errorf("%s.IsOnSite() = %v, want %v", s, s.IsOnSite(), want[s])
		}
	}
}
