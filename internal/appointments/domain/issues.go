package domain

import (
	"strings"
	"time"
)

// IssueFlag is a derived advisory warning. Flags never block transitions.
type IssueFlag string

const (
	IssueOverdue       IssueFlag = "OVERDUE"
	IssueGPSMissing    IssueFlag = "GPS_MISSING"
	IssueNoMedia       IssueFlag = "NO_MEDIA"
	IssuePriceMismatch IssueFlag = "PRICE_MISMATCH"
)

// AllIssueFlags lists flags in canonical output order.
var AllIssueFlags = []IssueFlag{IssueOverdue, IssueGPSMissing, IssueNoMedia, IssuePriceMismatch}

// Status sets used by the issue predicates. The listing filter renders the
// same sets into SQL.
var (
	OverdueStatuses   = StatusRange(StatusScheduled, StatusPriceReview)
	PresenceStatuses  = StatusRange(StatusEnRoute, StatusRepairing)
	MediaDueStatuses  = StatusRange(StatusChecking, StatusRepaired)
	DefaultGPSWindow  = 30 * time.Minute
	DefaultPriceDelta = int64(0)
)

// IssuePolicy holds the thresholds used by DeriveIssues.
type IssuePolicy struct {
	GPSStaleAfter  time.Duration
	PriceTolerance int64
}

// DefaultIssuePolicy returns the built-in thresholds.
func DefaultIssuePolicy() IssuePolicy {
	return IssuePolicy{GPSStaleAfter: DefaultGPSWindow, PriceTolerance: DefaultPriceDelta}
}

// IssueSnapshot is the immutable input to DeriveIssues.
type IssueSnapshot struct {
	Status                Status
	ScheduledDate         time.Time
	LastGPSUpdateAt       *time.Time
	MediaCount            int
	EstimatedCost         int64
	FinalCost             *int64
	PriceAdjustmentReason *string
}

// DeriveIssues computes the advisory flags for snapshot at instant now.
// It has no side effects and returns flags in canonical order.
func DeriveIssues(s IssueSnapshot, now time.Time, policy IssuePolicy) []IssueFlag {
	flags := make([]IssueFlag, 0, len(AllIssueFlags))

	if isOverdue(s, now) {
		flags = append(flags, IssueOverdue)
	}
	if isGPSMissing(s, now, policy) {
		flags = append(flags, IssueGPSMissing)
	}
	if containsStatus(MediaDueStatuses, s.Status) && s.MediaCount == 0 {
		flags = append(flags, IssueNoMedia)
	}
	if isPriceMismatch(s, policy) {
		flags = append(flags, IssuePriceMismatch)
	}

	return flags
}

// Today returns the UTC calendar date of now at midnight.
func Today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// GPSCutoff returns the oldest acceptable GPS timestamp at instant now.
func (p IssuePolicy) GPSCutoff(now time.Time) time.Time {
	window := p.GPSStaleAfter
	if window <= 0 {
		window = DefaultGPSWindow
	}
	return now.Add(-window)
}

func isOverdue(s IssueSnapshot, now time.Time) bool {
	if !containsStatus(OverdueStatuses, s.Status) || s.ScheduledDate.IsZero() {
		return false
	}
	y, m, d := s.ScheduledDate.Date()
	scheduled := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return scheduled.Before(Today(now))
}

func isGPSMissing(s IssueSnapshot, now time.Time, policy IssuePolicy) bool {
	if !containsStatus(PresenceStatuses, s.Status) {
		return false
	}
	if s.LastGPSUpdateAt == nil {
		return true
	}
	return s.LastGPSUpdateAt.Before(policy.GPSCutoff(now))
}

func isPriceMismatch(s IssueSnapshot, policy IssuePolicy) bool {
	if s.FinalCost == nil || HasAdjustmentReason(s.PriceAdjustmentReason) {
		return false
	}
	delta := *s.FinalCost - s.EstimatedCost
	if delta < 0 {
		delta = -delta
	}
	return delta > policy.PriceTolerance
}

// HasAdjustmentReason reports whether a non-blank adjustment reason is recorded.
func HasAdjustmentReason(reason *string) bool {
	return reason != nil && strings.TrimSpace(*reason) != ""
}

func containsStatus(set []Status, s Status) bool {
	for _, candidate := range set {
		if candidate == s {
			return true
		}
	}
	return false
}
