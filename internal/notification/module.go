// Package notification delivers the intents queued by appointment workflows:
// messages to customers and technicians (email, or WhatsApp when only a phone
// number is known), refund requests to the payment service and penalties to
// the reputation service.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"repair_ops_backend/internal/collaborators"
	"repair_ops_backend/internal/email"
	"repair_ops_backend/internal/events"
	"repair_ops_backend/internal/notification/outbox"
	"repair_ops_backend/platform/logger"
	"repair_ops_backend/platform/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	invalidOutboxPayloadPrefix = "invalid payload: "
	maxOutboxRetryAttempts     = 5
	outboxRetryBaseDelay       = time.Minute
	outboxRetryMaxDelay        = 60 * time.Minute
)

// OutboxStore is the subset of the outbox repository used for delivery.
type OutboxStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
}

// RefundRequester forwards refunds to the payment service.
type RefundRequester interface {
	RequestRefund(ctx context.Context, key uuid.UUID, req collaborators.RefundRequest) error
}

// PenaltyIssuer forwards penalties to the reputation service.
type PenaltyIssuer interface {
	IssuePenalty(ctx context.Context, key uuid.UUID, req collaborators.PenaltyRequest) error
}

// WhatsAppSender sends plain text messages.
type WhatsAppSender interface {
	SendMessage(ctx context.Context, phoneNumber string, message string) error
}

// Module handles outbox-due events.
type Module struct {
	outbox    OutboxStore
	sender    email.Sender
	whatsapp  WhatsAppSender
	refunds   RefundRequester
	penalties PenaltyIssuer
	log       *logger.Logger
	now       func() time.Time
}

// New creates the notification module. A nil sender falls back to NoopSender.
func New(store OutboxStore, sender email.Sender, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Module{
		outbox: store,
		sender: sender,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetWhatsAppSender enables WhatsApp delivery for recipients without email.
func (m *Module) SetWhatsAppSender(sender WhatsAppSender) { m.whatsapp = sender }

// SetRefundRequester wires the payment collaborator.
func (m *Module) SetRefundRequester(r RefundRequester) { m.refunds = r }

// SetPenaltyIssuer wires the reputation collaborator.
func (m *Module) SetPenaltyIssuer(p PenaltyIssuer) { m.penalties = p }

// RegisterHandlers subscribes the module to the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.AppointmentOutboxDue{}.EventName(), m)
	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.AppointmentOutboxDue:
		return m.handleOutboxDue(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

// handleOutboxDue delivers one intent. Delivery failures are retried through
// the outbox row, so only bookkeeping failures are returned to the caller.
func (m *Module) handleOutboxDue(ctx context.Context, e events.AppointmentOutboxDue) error {
	if m.outbox == nil {
		m.log.Debug("outbox repository not configured; skipping outbox due event", "outboxId", e.OutboxID)
		return nil
	}

	ctx, span := telemetry.Tracer().Start(ctx, "notification.outbox_due")
	defer span.End()
	span.SetAttributes(
		attribute.String("outbox.id", e.OutboxID.String()),
		attribute.String("appointment.id", e.AppointmentID.String()),
	)

	rec, process, err := m.prepareOutboxRecord(ctx, e.OutboxID)
	if err != nil || !process {
		if err != nil {
			span.RecordError(err)
			m.log.Error("failed to prepare outbox record", "outboxId", e.OutboxID, "error", err)
		}
		return err
	}
	span.SetAttributes(attribute.String("outbox.kind", string(rec.Kind)), attribute.String("outbox.template", rec.Template))

	var processErr error
	switch rec.Kind {
	case outbox.KindNotification:
		processErr = m.processNotification(ctx, rec)
	case outbox.KindRefund:
		processErr = m.processRefund(ctx, rec)
	case outbox.KindPenalty:
		processErr = m.processPenalty(ctx, rec)
	default:
		m.markOutboxUnsupported(ctx, rec)
		return nil
	}

	if processErr != nil {
		span.RecordError(processErr)
		m.handleOutboxDeliveryError(ctx, rec, processErr)
		return nil
	}

	if err := m.outbox.MarkSucceeded(ctx, rec.ID); err != nil {
		return fmt.Errorf("mark outbox succeeded: %w", err)
	}
	m.log.Info("outbox record processed successfully", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
	return nil
}

func (m *Module) prepareOutboxRecord(ctx context.Context, outboxID uuid.UUID) (outbox.Record, bool, error) {
	rec, err := m.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return outbox.Record{}, false, err
	}
	if rec.Status == outbox.StatusSucceeded || rec.Status == outbox.StatusFailed {
		m.log.Debug("outbox record already settled; skipping", "outboxId", rec.ID.String(), "status", rec.Status)
		return rec, false, nil
	}
	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return outbox.Record{}, false, err
	}
	return rec, true, nil
}

// permanentError marks failures that retrying cannot fix.
type permanentError struct{ msg string }

func (e permanentError) Error() string { return e.msg }

func invalidPayload(err error) error {
	return permanentError{msg: invalidOutboxPayloadPrefix + err.Error()}
}

func (m *Module) handleOutboxDeliveryError(ctx context.Context, rec outbox.Record, deliveryErr error) {
	if _, ok := deliveryErr.(permanentError); ok || collaborators.IsPermanent(deliveryErr) {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Warn("outbox record failed permanently",
			"outboxId", rec.ID.String(),
			"kind", rec.Kind,
			"template", rec.Template,
			"error", deliveryErr,
		)
		return
	}

	attempt := rec.Attempts + 1
	if attempt >= maxOutboxRetryAttempts {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Warn("outbox record exhausted retries",
			"outboxId", rec.ID.String(),
			"kind", rec.Kind,
			"template", rec.Template,
			"attempt", attempt,
			"maxAttempts", maxOutboxRetryAttempts,
			"error", deliveryErr,
		)
		return
	}

	retryAt := m.now().Add(computeOutboxRetryDelay(attempt))
	if err := m.outbox.ScheduleRetry(ctx, rec.ID, retryAt, deliveryErr.Error()); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Error("outbox retry scheduling failed; marked failed",
			"outboxId", rec.ID.String(),
			"attempt", attempt,
			"error", err,
		)
		return
	}

	m.log.Warn("outbox record scheduled retry",
		"outboxId", rec.ID.String(),
		"kind", rec.Kind,
		"template", rec.Template,
		"attempt", attempt,
		"retryAt", retryAt,
		"error", deliveryErr,
	)
}

func computeOutboxRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		return outboxRetryMaxDelay
	}
	return delay
}

func (m *Module) markOutboxUnsupported(ctx context.Context, rec outbox.Record) {
	msg := fmt.Sprintf("unsupported outbox kind/template: %s/%s", rec.Kind, rec.Template)
	_ = m.outbox.MarkFailed(ctx, rec.ID, msg)
	m.log.Warn("unsupported outbox record", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
}

func (m *Module) processNotification(ctx context.Context, rec outbox.Record) error {
	var payload outbox.NotificationPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return invalidPayload(err)
	}

	to := ""
	if payload.Recipient.Email != nil {
		to = strings.TrimSpace(*payload.Recipient.Email)
	}
	if to == "" {
		if m.whatsapp != nil && payload.Recipient.Phone != nil && strings.TrimSpace(*payload.Recipient.Phone) != "" {
			return m.sendWhatsApp(ctx, rec, payload)
		}
		m.log.Info("notification recipient has no contact channel; nothing to send",
			"outboxId", rec.ID.String(),
			"template", rec.Template,
			"recipientRole", payload.Recipient.Role,
		)
		return nil
	}

	msg := email.AppointmentEmail{
		ToEmail:       to,
		RecipientName: payload.Recipient.Name,
		AppointmentID: payload.AppointmentID.String(),
		ScheduledDate: payload.ScheduledDate,
		Reason:        payload.Reason,
		Details:       payload.Data,
	}

	switch rec.Template {
	case outbox.TemplateAppointmentCancelled:
		return m.sender.SendAppointmentCancelledEmail(ctx, msg)
	case outbox.TemplateTechnicianUnassigned:
		return m.sender.SendTechnicianUnassignedEmail(ctx, msg)
	case outbox.TemplateTechnicianAssigned:
		return m.sender.SendTechnicianAssignedEmail(ctx, msg)
	case outbox.TemplateCustomerTechChanged:
		return m.sender.SendTechnicianChangedEmail(ctx, msg)
	default:
		return permanentError{msg: "unsupported notification template: " + rec.Template}
	}
}

func (m *Module) sendWhatsApp(ctx context.Context, rec outbox.Record, payload outbox.NotificationPayload) error {
	message, ok := whatsAppMessage(rec.Template, payload)
	if !ok {
		return permanentError{msg: "unsupported notification template: " + rec.Template}
	}
	return m.whatsapp.SendMessage(ctx, *payload.Recipient.Phone, message)
}

func (m *Module) processRefund(ctx context.Context, rec outbox.Record) error {
	if m.refunds == nil {
		return fmt.Errorf("refund requester not configured")
	}
	var payload outbox.RefundPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return invalidPayload(err)
	}
	if payload.Amount <= 0 {
		return permanentError{msg: invalidOutboxPayloadPrefix + "refund amount must be positive"}
	}

	return m.refunds.RequestRefund(ctx, rec.ID, collaborators.RefundRequest{
		AppointmentID: payload.AppointmentID,
		CustomerID:    payload.CustomerID,
		Amount:        payload.Amount,
		Reason:        payload.Reason,
		RequestedBy:   payload.RequestedBy,
	})
}

func (m *Module) processPenalty(ctx context.Context, rec outbox.Record) error {
	if m.penalties == nil {
		return fmt.Errorf("penalty issuer not configured")
	}
	var payload outbox.PenaltyPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return invalidPayload(err)
	}

	return m.penalties.IssuePenalty(ctx, rec.ID, collaborators.PenaltyRequest{
		AppointmentID: payload.AppointmentID,
		TechnicianID:  payload.TechnicianID,
		PenaltyType:   payload.PenaltyType,
		Reason:        payload.Reason,
		IssuedBy:      payload.IssuedBy,
	})
}

var _ events.Handler = (*Module)(nil)
