package scheduler

import (
	"encoding/json"
	"fmt"

	"repair_ops_backend/internal/notification/outbox"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskAppointmentOutboxDue = "appointments.outbox.due"

// AppointmentOutboxDuePayload references an outbox row. The worker reloads
// the row so the task stays small and the row remains the source of truth.
type AppointmentOutboxDuePayload struct {
	OutboxID      string `json:"outboxId"`
	AppointmentID string `json:"appointmentId"`
	Kind          string `json:"kind"`
	Template      string `json:"template"`
	// Trace carries the dispatcher's span context.
	Trace map[string]string `json:"trace,omitempty"`
}

func newPayloadFromRecord(rec outbox.Record, trace map[string]string) AppointmentOutboxDuePayload {
	return AppointmentOutboxDuePayload{
		OutboxID:      rec.ID.String(),
		AppointmentID: rec.AppointmentID.String(),
		Kind:          string(rec.Kind),
		Template:      rec.Template,
		Trace:         trace,
	}
}

func NewAppointmentOutboxDueTask(payload AppointmentOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAppointmentOutboxDue, data), nil
}

func ParseAppointmentOutboxDuePayload(task *asynq.Task) (AppointmentOutboxDuePayload, error) {
	var payload AppointmentOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AppointmentOutboxDuePayload{}, err
	}
	if _, err := uuid.Parse(payload.OutboxID); err != nil {
		return AppointmentOutboxDuePayload{}, fmt.Errorf("invalid outbox id %q: %w", payload.OutboxID, err)
	}
	return payload, nil
}

// taskID makes enqueueing idempotent per outbox row and attempt.
func taskID(rec outbox.Record) string {
	return fmt.Sprintf("outbox:%s:%d", rec.ID, rec.Attempts)
}
