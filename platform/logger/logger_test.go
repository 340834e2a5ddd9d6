package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestWithContextAddsRequestAndUser(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, "admin-7")
	log.WithContext(ctx).Info("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if line["request_id"] != "req-1" {
		t.Fatalf("expected request_id req-1, got %v", line["request_id"])
	}
	if line["user_id"] != "admin-7" {
		t.Fatalf("expected user_id admin-7, got %v", line["user_id"])
	}
	if _, ok := line["trace_id"]; ok {
		t.Fatalf("did not expect trace_id without an active span")
	}
}

func TestAppointmentMutationFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.AppointmentMutation("STATUS_OVERRIDDEN", "a-1", "u-1", "SCHEDULED", "REPAIRED")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if line["msg"] != "appointment_mutation" {
		t.Fatalf("unexpected msg %v", line["msg"])
	}
	if line["new_value"] != "REPAIRED" || line["old_value"] != "SCHEDULED" {
		t.Fatalf("unexpected values %v -> %v", line["old_value"], line["new_value"])
	}
}
