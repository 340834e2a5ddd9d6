package httpkit

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"repair_ops_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

type testJWTConfig struct{}

func (testJWTConfig) GetJWTAccessSecret() string { return testSecret }

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", handlers...)
	return r
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestAuthRequiredAndRequireRole(t *testing.T) {
	userID := uuid.New()
	okHandler := func(c *gin.Context) {
		id := MustGetIdentity(c)
		if id == nil {
			return
		}
		c.String(http.StatusOK, id.UserID().String()+":"+id.PrimaryRole())
	}
	router := newTestRouter(AuthRequired(testJWTConfig{}), RequireRole(RoleAdmin), okHandler)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized, wantCode: apperr.CodeUnauthorized},
		{name: "garbage token", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized, wantCode: apperr.CodeUnauthorized},
		{
			name: "refresh token rejected",
			header: "Bearer " + signToken(t, jwt.MapClaims{
				"sub": userID.String(), "type": "refresh", "roles": []string{RoleAdmin},
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			wantStatus: http.StatusUnauthorized,
			wantCode:   apperr.CodeUnauthorized,
		},
		{
			name: "technician forbidden",
			header: "Bearer " + signToken(t, jwt.MapClaims{
				"sub": userID.String(), "type": "access", "roles": []string{RoleTechnician},
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			wantStatus: http.StatusForbidden,
			wantCode:   apperr.CodeForbidden,
		},
		{
			name: "admin allowed",
			header: "Bearer " + signToken(t, jwt.MapClaims{
				"sub": userID.String(), "type": "access", "roles": []string{RoleTechnician, RoleAdmin},
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantCode != "" {
				if body := decodeError(t, rec); body.Code != tt.wantCode {
					t.Fatalf("expected code %s, got %s", tt.wantCode, body.Code)
				}
				return
			}
			if want := userID.String() + ":" + RoleAdmin; rec.Body.String() != want {
				t.Fatalf("expected %q, got %q", want, rec.Body.String())
			}
		})
	}
}

func TestRequestIDReusesValidHeader(t *testing.T) {
	router := newTestRouter(RequestID(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	inbound := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(RequestIDHeader, inbound)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != inbound {
		t.Fatalf("expected inbound request id to be echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got == "<script>" || got == "" {
		t.Fatalf("expected a generated request id, got %q", got)
	}
}

func TestHandleErrorMapsKindsAndCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "not found", err: apperr.NotFound("appointment not found"), wantStatus: http.StatusNotFound, wantCode: apperr.CodeNotFound},
		{
			name:       "coded conflict",
			err:        apperr.Conflict("appointment already terminal").WithCode("INVALID_TRANSITION"),
			wantStatus: http.StatusConflict,
			wantCode:   "INVALID_TRANSITION",
		},
		{
			name:       "wrapped typed error",
			err:        errors.Join(errors.New("context"), apperr.Validation("reason too short")),
			wantStatus: http.StatusBadRequest,
			wantCode:   apperr.CodeValidation,
		},
		{
			name:       "collaborator unavailable",
			err:        apperr.Unavailable("technician directory unavailable", errors.New("dial tcp")),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   apperr.CodeCollaboratorUnavailable,
		},
		{name: "untyped", err: errors.New("pq: connection reset"), wantStatus: http.StatusInternalServerError, wantCode: apperr.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(func(c *gin.Context) { HandleError(c, tt.err) })
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			body := decodeError(t, rec)
			if body.Code != tt.wantCode {
				t.Fatalf("expected code %s, got %s", tt.wantCode, body.Code)
			}
			if tt.wantStatus == http.StatusInternalServerError && body.Message != "internal server error" {
				t.Fatalf("untyped error details must not leak, got %q", body.Message)
			}
		})
	}
}

func TestHandleErrorNilIsNoop(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if HandleError(c, nil) {
		t.Fatalf("expected nil error to be unhandled")
	}
}
