// Package collaborators provides the HTTP client for the payment and
// reputation services that consume refund and penalty intents.
package collaborators

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"repair_ops_backend/platform/config"
	"repair_ops_backend/platform/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	refundsPath      = "/refunds"
	penaltiesPath    = "/penalties"
	idempotencyKey   = "Idempotency-Key"
	apiKeyHeader     = "X-API-Key"
	maxErrorBodySize = 2048
)

// ErrNotConfigured is returned when the target service has no base URL.
var ErrNotConfigured = errors.New("collaborator not configured")

// PermanentError reports a request the collaborator rejected. Repeating the
// same request will not succeed.
type PermanentError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("%s rejected request: status %d: %s", e.Service, e.StatusCode, e.Body)
}

// IsPermanent reports whether err should not be retried.
func IsPermanent(err error) bool {
	if errors.Is(err, ErrNotConfigured) {
		return true
	}
	var perm *PermanentError
	return errors.As(err, &perm)
}

// RefundRequest asks the payment service to refund a customer.
type RefundRequest struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	CustomerID    uuid.UUID `json:"customerId"`
	Amount        int64     `json:"amount"`
	Reason        string    `json:"reason"`
	RequestedBy   uuid.UUID `json:"requestedBy"`
}

// PenaltyRequest asks the reputation service to record a technician penalty.
type PenaltyRequest struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	TechnicianID  uuid.UUID `json:"technicianId"`
	PenaltyType   string    `json:"penaltyType"`
	Reason        string    `json:"reason"`
	IssuedBy      uuid.UUID `json:"issuedBy"`
}

// Client talks to the payment and reputation services.
type Client struct {
	httpClient    *http.Client
	paymentURL    string
	reputationURL string
	apiKey        string
	log           *logger.Logger
}

// New creates a collaborator client from configuration.
func New(cfg config.CollaboratorConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		paymentURL:    strings.TrimRight(cfg.GetPaymentServiceURL(), "/"),
		reputationURL: strings.TrimRight(cfg.GetReputationServiceURL(), "/"),
		apiKey:        cfg.GetCollaboratorAPIKey(),
		log:           log,
	}
}

// RequestRefund submits a refund. key is sent as the idempotency key so a
// redelivered intent is applied once.
func (c *Client) RequestRefund(ctx context.Context, key uuid.UUID, req RefundRequest) error {
	if c.paymentURL == "" {
		return fmt.Errorf("payment service: %w", ErrNotConfigured)
	}
	return c.post(ctx, "payment service", c.paymentURL+refundsPath, key, req)
}

// IssuePenalty records a technician penalty under the given idempotency key.
func (c *Client) IssuePenalty(ctx context.Context, key uuid.UUID, req PenaltyRequest) error {
	if c.reputationURL == "" {
		return fmt.Errorf("reputation service: %w", ErrNotConfigured)
	}
	return c.post(ctx, "reputation service", c.reputationURL+penaltiesPath, key, req)
}

func (c *Client) post(ctx context.Context, service, reqURL string, key uuid.UUID, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", service, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(idempotencyKey, key.String())
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("collaborator request failed", "service", service, "error", err)
		return fmt.Errorf("%s request: %w", service, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		// Same idempotency key already applied.
		c.log.Info("collaborator reported duplicate request", "service", service, "idempotencyKey", key)
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout:
		return fmt.Errorf("%s busy: status %d", service, resp.StatusCode)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		c.log.Warn("collaborator rejected request", "service", service, "status", resp.StatusCode)
		return &PermanentError{Service: service, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	default:
		c.log.Error("collaborator upstream error", "service", service, "status", resp.StatusCode)
		return fmt.Errorf("%s upstream error: status %d", service, resp.StatusCode)
	}
}
