// Package domain provides the core business rules for repair appointments:
// the status graph, transition validation and advisory issue flags.
package domain

import "strings"

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled   Status = "SCHEDULED"
	StatusEnRoute     Status = "EN_ROUTE"
	StatusArrived     Status = "ARRIVED"
	StatusChecking    Status = "CHECKING"
	StatusPriceReview Status = "PRICE_REVIEW"
	StatusRepairing   Status = "REPAIRING"
	StatusRepaired    Status = "REPAIRED"
	StatusCancelled   Status = "CANCELLED"
	StatusAbsent      Status = "ABSENT"
	StatusDispute     Status = "DISPUTE"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{
	StatusScheduled,
	StatusEnRoute,
	StatusArrived,
	StatusChecking,
	StatusPriceReview,
	StatusRepairing,
	StatusRepaired,
	StatusCancelled,
	StatusAbsent,
	StatusDispute,
}

// forwardPath is the normal progression. PRICE_REVIEW is optional.
var forwardPath = []Status{
	StatusScheduled,
	StatusEnRoute,
	StatusArrived,
	StatusChecking,
	StatusPriceReview,
	StatusRepairing,
	StatusRepaired,
}

var forwardRank = func() map[Status]int {
	ranks := make(map[Status]int, len(forwardPath))
	for i, s := range forwardPath {
		ranks[s] = i
	}
	return ranks
}()

// optionalStatuses may be bypassed on the forward path without counting as a skip.
var optionalStatuses = map[Status]bool{
	StatusPriceReview: true,
}

var terminalStatuses = map[Status]bool{
	StatusRepaired:  true,
	StatusCancelled: true,
}

var exceptionalTargets = map[Status]bool{
	StatusCancelled: true,
	StatusAbsent:    true,
	StatusDispute:   true,
}

// ParseStatus parses a status name case-insensitively.
func ParseStatus(value string) (Status, bool) {
	candidate := Status(strings.ToUpper(strings.TrimSpace(value)))
	if candidate.IsValid() {
		return candidate, true
	}
	return "", false
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s is absorbing (REPAIRED, CANCELLED).
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsFrozen reports whether automatic progression is suspended (DISPUTE).
func (s Status) IsFrozen() bool {
	return s == StatusDispute
}

// IsExceptionalTarget reports whether s can be entered from any non-terminal status.
func (s Status) IsExceptionalTarget() bool {
	return exceptionalTargets[s]
}

// Before reports whether s precedes other on the forward path.
// Statuses off the path are never before anything.
func (s Status) Before(other Status) bool {
	a, okA := forwardRank[s]
	b, okB := forwardRank[other]
	return okA && okB && a < b
}

// Between returns the forward-path statuses strictly between s and other,
// excluding optional ones, in path order.
func (s Status) Between(other Status) []Status {
	from, okFrom := forwardRank[s]
	to, okTo := forwardRank[other]
	if !okFrom || !okTo || to-from < 2 {
		return nil
	}
	skipped := make([]Status, 0, to-from-1)
	for _, candidate := range forwardPath[from+1 : to] {
		if optionalStatuses[candidate] {
			continue
		}
		skipped = append(skipped, candidate)
	}
	return skipped
}

// StatusRange returns the forward-path statuses from first to last inclusive.
func StatusRange(first, last Status) []Status {
	from, okFrom := forwardRank[first]
	to, okTo := forwardRank[last]
	if !okFrom || !okTo || from > to {
		return nil
	}
	out := make([]Status, 0, to-from+1)
	out = append(out, forwardPath[from:to+1]...)
	return out
}

// StatusStrings converts statuses to their string values.
func StatusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// IsOnSite reports whether the assigned technician is already at the
// customer's location. Reassigning in these statuses hands over work in
// progress.
func (s Status) IsOnSite() bool {
	rank, ok := forwardRank[s]
	return ok && rank >= forwardRank[StatusArrived] && rank <= forwardRank[StatusRepairing]
}
