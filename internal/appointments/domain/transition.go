package domain

import (
	"fmt"
	"strings"
)

// Role is the kind of actor requesting a transition.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSystem     Role = "system"
	RoleTechnician Role = "technician"
	RoleCustomer   Role = "customer"
)

// Rule identifies which check decided a transition.
type Rule string

const (
	RuleNone               Rule = ""
	RuleUnknownStatus      Rule = "UNKNOWN_STATUS"
	RuleRoleNotPermitted   Rule = "ROLE_NOT_PERMITTED"
	RuleNoChange           Rule = "NO_CHANGE"
	RuleAlreadyTerminal    Rule = "ALREADY_TERMINAL"
	RuleDisputeFrozen      Rule = "DISPUTE_FROZEN"
	RuleOffPath            Rule = "OFF_PATH"
	RuleBackwardTransition Rule = "BACKWARD_TRANSITION"
	RuleSkipsIntermediate  Rule = "SKIPS_INTERMEDIATE"
)

// Rejection reasons surfaced to operators.
const (
	ReasonUnknownStatus      = "unknown appointment status"
	ReasonRoleNotPermitted   = "actor role may not request this status"
	ReasonNoChange           = "appointment already has the requested status"
	ReasonAlreadyTerminal    = "appointment already terminal"
	ReasonDisputeFrozen      = "appointment is under dispute and frozen until adjudication"
	ReasonOffPath            = "transition leaves the normal path without skipValidation"
	ReasonBackwardTransition = "backward transition not permitted without skipValidation"
	ReasonSkipsIntermediate  = "transition skips required intermediate state"
)

// Severity grades an audit entry.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Decision is the outcome of validating one requested transition.
type Decision struct {
	From          Status
	To            Status
	Allowed       bool
	Rule          Rule
	Reason        string
	Warnings      []string
	SkippedStates []Status
	// Exceptional marks a forced exit from a terminal status.
	Exceptional bool
	// RetryWithSkip is set on rejections an administrator could force with skipValidation.
	RetryWithSkip bool
}

// Severity grades the audit entry for an allowed decision.
func (d Decision) Severity() Severity {
	switch {
	case d.Exceptional:
		return SeverityCritical
	case len(d.Warnings) > 0:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

var customerTargets = map[Status]bool{
	StatusCancelled: true,
	StatusDispute:   true,
}

var technicianTargets = map[Status]bool{
	StatusEnRoute:     true,
	StatusArrived:     true,
	StatusChecking:    true,
	StatusPriceReview: true,
	StatusRepairing:   true,
	StatusRepaired:    true,
	StatusAbsent:      true,
	StatusDispute:     true,
}

func roleMayRequest(role Role, to Status) bool {
	switch role {
	case RoleAdmin, RoleSystem:
		return true
	case RoleTechnician:
		return technicianTargets[to]
	case RoleCustomer:
		return customerTargets[to]
	default:
		return false
	}
}

// Validate decides whether an actor holding role may move an appointment
// from current to requested. skipValidation is honoured for administrators
// only; even then a terminal status can never be replaced by another
// terminal status. The result depends on the arguments alone.
func Validate(current, requested Status, role Role, skipValidation bool) Decision {
	d := decide(current, requested, role, skipValidation && role == RoleAdmin)
	if skipValidation && role != RoleAdmin && d.Allowed {
		d.Warnings = append(d.Warnings, "skipValidation ignored for non-admin actor")
	}
	if !d.Allowed && role == RoleAdmin && !skipValidation {
		d.RetryWithSkip = decide(current, requested, role, true).Allowed
	}
	return d
}

// GuardActive rejects mutations on appointments that are terminal or disputed.
// It is used by workflows that do not change status.
func GuardActive(current Status) Decision {
	d := Decision{From: current, To: current}
	switch {
	case current.IsTerminal():
		return reject(d, RuleAlreadyTerminal, ReasonAlreadyTerminal)
	case current.IsFrozen():
		return reject(d, RuleDisputeFrozen, ReasonDisputeFrozen)
	case !current.IsValid():
		return reject(d, RuleUnknownStatus, ReasonUnknownStatus)
	}
	d.Allowed = true
	return d
}

func decide(current, requested Status, role Role, skip bool) Decision {
	d := Decision{From: current, To: requested}

	if !current.IsValid() || !requested.IsValid() {
		return reject(d, RuleUnknownStatus, ReasonUnknownStatus)
	}
	if !roleMayRequest(role, requested) {
		return reject(d, RuleRoleNotPermitted, ReasonRoleNotPermitted)
	}
	if current == requested {
		return reject(d, RuleNoChange, ReasonNoChange)
	}

	if current.IsTerminal() {
		if requested.IsTerminal() || !skip {
			return reject(d, RuleAlreadyTerminal, ReasonAlreadyTerminal)
		}
		d.Exceptional = true
		return allow(d, fmt.Sprintf("terminal status %s reopened to %s by administrative override", current, requested))
	}

	if current.IsFrozen() {
		if !skip {
			return reject(d, RuleDisputeFrozen, ReasonDisputeFrozen)
		}
		return allow(d, fmt.Sprintf("dispute freeze lifted by administrative override (%s → %s)", current, requested))
	}

	if requested.IsExceptionalTarget() {
		return allow(d)
	}

	if current == StatusAbsent {
		if requested == StatusScheduled {
			return allow(d)
		}
		if !skip {
			return reject(d, RuleOffPath, ReasonOffPath)
		}
		return allow(d, fmt.Sprintf("appointment moved from %s to %s without rebooking", current, requested))
	}

	if requested.Before(current) {
		if !skip {
			return reject(d, RuleBackwardTransition, ReasonBackwardTransition)
		}
		return allow(d, fmt.Sprintf("backward transition from %s to %s", current, requested))
	}

	if skipped := current.Between(requested); len(skipped) > 0 {
		d.SkippedStates = skipped
		if !skip {
			return reject(d, RuleSkipsIntermediate, ReasonSkipsIntermediate)
		}
		return allow(d, "skipped intermediate states: "+strings.Join(StatusStrings(skipped), ", "))
	}

	return allow(d)
}

func reject(d Decision, rule Rule, reason string) Decision {
	d.Allowed = false
	d.Rule = rule
	d.Reason = reason
	return d
}

func allow(d Decision, warnings ...string) Decision {
	d.Allowed = true
	d.Rule = RuleNone
	d.Reason = ""
	if len(warnings) > 0 {
		d.Warnings = append(d.Warnings, warnings...)
	}
	return d
}
