package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"repair_ops_backend/internal/appointments/domain"
	"repair_ops_backend/internal/appointments/repository"
	"repair_ops_backend/internal/appointments/transport"
	"repair_ops_backend/internal/events"
	"repair_ops_backend/platform/apperr"
	"repair_ops_backend/platform/lock"
	"repair_ops_backend/platform/logger"
	"repair_ops_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	minReasonLength       = 10
	errReasonTooShort     = "reason must be at least 10 characters"
	errConcurrentMessage  = "appointment is being modified by another operator; reload and retry"
	codeInvalidTransition = "INVALID_TRANSITION"
	defaultLockTTL        = 10 * time.Second
)

// Store is the persistence the workflows need.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error)
	List(ctx context.Context, params repository.ListParams) (*repository.ListResult, error)
	ApplyMutation(ctx context.Context, m repository.Mutation) error
}

// DetailReader loads the read-only records shown on the detail view.
type DetailReader interface {
	ListTimeline(ctx context.Context, appointmentID uuid.UUID) ([]domain.TimelineEntry, error)
	ListMedia(ctx context.Context, appointmentID uuid.UUID) ([]domain.Media, error)
	ListNotes(ctx context.Context, appointmentID uuid.UUID) ([]domain.Note, error)
	ListGPSLogs(ctx context.Context, appointmentID uuid.UUID, limit int) ([]domain.GPSLog, error)
	GetPayment(ctx context.Context, appointmentID uuid.UUID) (*domain.Payment, error)
	ListDisputes(ctx context.Context, appointmentID uuid.UUID) ([]domain.Dispute, error)
	ListActivity(ctx context.Context, appointmentID uuid.UUID) ([]domain.ActivityEntry, error)
}

// TechnicianProfile is a technician as seen by the reassignment workflow.
type TechnicianProfile struct {
	ID       uuid.UUID
	Name     string
	Phone    *string
	Email    *string
	Eligible bool
	// Reasons lists why the technician is not eligible.
	Reasons []string
}

// TechnicianDirectory looks up technicians and judges their eligibility for
// a service category. Not-found lookups return an apperr.NotFound error.
type TechnicianDirectory interface {
	CheckEligibility(ctx context.Context, technicianID uuid.UUID, serviceCategory string) (*TechnicianProfile, error)
}

// MediaURLSigner generates download URLs for media object keys.
type MediaURLSigner interface {
	MediaURL(ctx context.Context, objectKey string) (string, error)
}

// Actor is the authenticated caller of a workflow.
type Actor struct {
	ID   uuid.UUID
	Role domain.Role
}

// Service provides the administrative appointment workflows
type Service struct {
	store       Store
	details     DetailReader
	directory   TechnicianDirectory
	media       MediaURLSigner
	locker      lock.Locker
	lockTTL     time.Duration
	eventBus    events.Bus
	log         *logger.Logger
	issuePolicy domain.IssuePolicy
	now         func() time.Time
}

// Option configures optional collaborators.
type Option func(*Service)

// WithMediaSigner enables presigned media URLs on the detail view.
func WithMediaSigner(signer MediaURLSigner) Option {
	return func(s *Service) { s.media = signer }
}

// WithLocker guards each mutation with a per-appointment lock.
func WithLocker(locker lock.Locker, ttl time.Duration) Option {
	return func(s *Service) {
		s.locker = locker
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithIssuePolicy overrides the default issue thresholds.
func WithIssuePolicy(policy domain.IssuePolicy) Option {
	return func(s *Service) { s.issuePolicy = policy }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a new appointments service
func New(store Store, details DetailReader, directory TechnicianDirectory, eventBus events.Bus, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:       store,
		details:     details,
		directory:   directory,
		locker:      lock.NoopLocker{},
		lockTTL:     defaultLockTTL,
		eventBus:    eventBus,
		log:         log,
		issuePolicy: domain.DefaultIssuePolicy(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mutate runs fn while holding the appointment's lock. fn receives a fresh
// copy of the aggregate and returns the write set to persist.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(appt *domain.Appointment) (*repository.Mutation, error)) error {
	release, err := s.locker.Acquire(ctx, "appointment:"+id.String(), s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return apperr.Conflict(errConcurrentMessage).WithCode(repository.CodeConcurrentModification)
		}
		return fmt.Errorf("acquire appointment lock: %w", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.log.WithContext(ctx).Warn("failed to release appointment lock", "appointment_id", id, "error", err)
		}
	}()

	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	m, err := fn(appt)
	if err != nil {
		return err
	}

	if err := s.store.ApplyMutation(ctx, *m); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			s.log.WithContext(ctx).Warn("appointment mutation rejected", "appointment_id", id, "code", apperr.CodeOf(err))
		}
		return err
	}
	return nil
}

// cleanReason sanitises an operator reason and enforces the minimum length.
func cleanReason(raw string) (string, error) {
	reason := sanitize.Text(raw)
	if sanitize.Length(reason) < minReasonLength {
		return "", apperr.Validation(errReasonTooShort).WithDetails([]map[string]string{
			{"field": "reason", "message": errReasonTooShort},
		})
	}
	return reason, nil
}

// transitionError converts a rejected decision into a structured conflict.
func transitionError(d domain.Decision) error {
	return apperr.Conflict(d.Reason).
		WithCode(codeInvalidTransition).
		WithDetails(transport.TransitionRejectedDetails{
			Rule:                    string(d.Rule),
			From:                    string(d.From),
			To:                      string(d.To),
			SkippedStates:           domain.StatusStrings(d.SkippedStates),
			RetryWithSkipValidation: d.RetryWithSkip,
		})
}

func (s *Service) rejectTransition(ctx context.Context, appointmentID uuid.UUID, d domain.Decision) error {
	s.log.WithContext(ctx).TransitionRejected(appointmentID.String(), string(d.From), string(d.To), string(d.Rule))
	return transitionError(d)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, event)
	}
}

func boolOrDefault(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func nonNilWarnings(warnings []string) []string {
	if warnings == nil {
		return []string{}
	}
	return warnings
}
