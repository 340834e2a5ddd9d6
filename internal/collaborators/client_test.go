package collaborators

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"repair_ops_backend/platform/logger"

	"github.com/google/uuid"
)

type testConfig struct {
	payment    string
	reputation string
}

func (c testConfig) GetPaymentServiceURL() string    { return c.payment }
func (c testConfig) GetReputationServiceURL() string { return c.reputation }
func (c testConfig) GetCollaboratorAPIKey() string   { return "secret" }

func TestRequestRefundSendsIdempotencyKey(t *testing.T) {
	key := uuid.New()
	var got RefundRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != refundsPath || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get(idempotencyKey) != key.String() {
			t.Errorf("missing idempotency key, got %q", r.Header.Get(idempotencyKey))
		}
		if r.Header.Get(apiKeyHeader) != "secret" {
			t.Errorf("missing api key")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := New(testConfig{payment: srv.URL + "/"}, logger.New("development"))
	req := RefundRequest{AppointmentID: uuid.New(), CustomerID: uuid.New(), Amount: 150000, Reason: "cancelled"}
	if err := c.RequestRefund(context.Background(), key, req); err != nil {
		t.Fatalf("RequestRefund() error = %v", err)
	}
	if got != req {
		t.Fatalf("server received %+v, want %+v", got, req)
	}
}

func TestIssuePenaltyStatusMapping(t *testing.T) {
	cases := []struct {
		status    int
		wantErr   bool
		permanent bool
	}{
		{http.StatusCreated, false, false},
		{http.StatusConflict, false, false},
		{http.StatusUnprocessableEntity, true, true},
		{http.StatusTooManyRequests, true, false},
		{http.StatusBadGateway, true, false},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != penaltiesPath {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"message":"nope"}`))
		}))

		c := New(testConfig{reputation: srv.URL}, logger.New("development"))
		err := c.IssuePenalty(context.Background(), uuid.New(), PenaltyRequest{PenaltyType: "CANCELLATION_STRIKE"})
		srv.Close()

		if (err != nil) != tc.wantErr {
			t.Errorf("status %d: err = %v, wantErr %v", tc.status, err, tc.wantErr)
			continue
		}
		if err != nil && IsPermanent(err) != tc.permanent {
			t.Errorf("status %d: permanent = %v, want %v", tc.status, IsPermanent(err), tc.permanent)
		}
	}
}

func TestNotConfiguredIsPermanent(t *testing.T) {
	c := New(testConfig{}, logger.New("development"))
	err := c.RequestRefund(context.Background(), uuid.New(), RefundRequest{})
	if !errors.Is(err, ErrNotConfigured) || !IsPermanent(err) {
		t.Fatalf("expected permanent ErrNotConfigured, got %v", err)
	}
}
