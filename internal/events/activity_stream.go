package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"repair_ops_backend/platform/config"
	"repair_ops_backend/platform/logger"
	"repair_ops_backend/platform/telemetry"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	defaultActivityTopic = "appointments.activity"
	headerEventID        = "event_id"
	headerEventType      = "event_type"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ActivityForwarder publishes workflow events to the appointment activity
// topic. Messages are keyed by appointment id so one appointment's events
// land on one partition in order.
type ActivityForwarder struct {
	writer MessageWriter
	log    *logger.Logger
}

// NewActivityForwarder returns nil when no brokers are configured.
func NewActivityForwarder(cfg config.KafkaConfig, log *logger.Logger) *ActivityForwarder {
	brokers := cfg.GetKafkaBrokers()
	if len(brokers) == 0 {
		return nil
	}
	topic := cfg.GetKafkaActivityTopic()
	if topic == "" {
		topic = defaultActivityTopic
	}

	return &ActivityForwarder{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
		log: log,
	}
}

// RegisterHandlers subscribes the forwarder to every workflow event.
func (f *ActivityForwarder) RegisterHandlers(bus Bus) {
	if f == nil {
		return
	}
	for _, name := range WorkflowEventNames {
		bus.Subscribe(name, f)
	}
	f.log.Info("activity stream forwarder registered", "events", len(WorkflowEventNames))
}

// Handle writes one event to the topic.
func (f *ActivityForwarder) Handle(ctx context.Context, event Event) error {
	msg, err := activityMessage(ctx, event)
	if err != nil {
		return err
	}
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		f.log.Error("activity stream write failed", "event", event.EventName(), "error", err)
		return fmt.Errorf("write activity event: %w", err)
	}
	return nil
}

// Close flushes pending messages.
func (f *ActivityForwarder) Close() error {
	if f == nil || f.writer == nil {
		return nil
	}
	return f.writer.Close()
}

func activityMessage(ctx context.Context, event Event) (kafka.Message, error) {
	appt, ok := event.(AppointmentEvent)
	if !ok {
		return kafka.Message{}, fmt.Errorf("event %s has no appointment key", event.EventName())
	}

	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s: %w", event.EventName(), err)
	}

	headers := []kafka.Header{
		{Key: headerEventID, Value: []byte(uuid.NewString())},
		{Key: headerEventType, Value: []byte(event.EventName())},
	}
	for k, v := range telemetry.InjectMap(ctx) {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	return kafka.Message{
		Key:     []byte(appt.AppointmentKey().String()),
		Value:   value,
		Headers: headers,
		Time:    event.OccurredAt(),
	}, nil
}

var _ Handler = (*ActivityForwarder)(nil)
