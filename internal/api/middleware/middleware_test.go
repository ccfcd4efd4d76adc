package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/api/shared"
	"github.com/phrazzld/exercise-api/internal/platform/logger"
	"github.com/phrazzld/exercise-api/internal/service/auth"
	"github.com/phrazzld/exercise-api/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func okHandler(t *testing.T, wantUser uuid.UUID) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantUser != uuid.Nil {
			got, ok := GetUserID(r)
			assert.True(t, ok)
			assert.Equal(t, wantUser, got)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func detail(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Detail
}

func TestAuthenticate(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		header     string
		validErr   error
		wantStatus int
		wantDetail string
	}{
		{"valid token", "Bearer good", nil, http.StatusOK, ""},
		{"lowercase scheme", "bearer good", nil, http.StatusOK, ""},
		{"missing header", "", nil, http.StatusUnauthorized, "Authorization header required"},
		{"wrong scheme", "Basic abc", nil, http.StatusUnauthorized, "Invalid authorization format"},
		{"empty token", "Bearer ", nil, http.StatusUnauthorized, "Invalid authorization format"},
		{"expired", "Bearer old", auth.ErrExpiredToken, http.StatusUnauthorized, "Token expired"},
		{"invalid", "Bearer bad", auth.ErrInvalidToken, http.StatusUnauthorized, "Invalid token"},
		{"not yet valid", "Bearer future", auth.ErrTokenNotYetValid, http.StatusUnauthorized, "Invalid token"},
		{"unexpected", "Bearer x", assert.AnError, http.StatusInternalServerError, "Authentication error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			jwtService := auth.NewMockJWTService(userID)
			jwtService.ValidationError = tc.validErr

			req := httptest.NewRequest(http.MethodGet, "/generations", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			NewAuthMiddleware(jwtService).Authenticate(okHandler(t, userID)).ServeHTTP(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantDetail != "" {
				assert.Equal(t, tc.wantDetail, detail(t, rr))
			}
		})
	}
}

func TestRequireAdminKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-key"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name       string
		hash       string
		key        string
		wantStatus int
	}{
		{"matching key", string(hash), "admin-key", http.StatusOK},
		{"wrong key", string(hash), "guess", http.StatusForbidden},
		{"missing key", string(hash), "", http.StatusUnauthorized},
		{"admin disabled", "", "admin-key", http.StatusForbidden},
		{"corrupt hash", "not-a-hash", "admin-key", http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/admin/cleanup", nil)
			if tc.key != "" {
				req.Header.Set(AdminKeyHeader, tc.key)
			}
			rr := httptest.NewRecorder()
			NewAdminMiddleware(tc.hash, nil).RequireAdminKey(okHandler(t, uuid.Nil)).ServeHTTP(rr, req)
			assert.Equal(t, tc.wantStatus, rr.Code)
		})
	}
}

func TestTraceMiddleware(t *testing.T) {
	handler := testutils.NewTestSlogHandler()
	var traceID string

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(TraceMiddleware(slog.New(handler)))
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		traceID = shared.GetTraceID(req.Context())
		logger.FromContext(req.Context()).Info("inside")
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Len(t, traceID, 32)

	var inside testutils.LogEntry
	for _, e := range handler.Entries() {
		if e["message"] == "inside" {
			inside = e
		}
	}
	require.NotNil(t, inside, "handler logs through the request-scoped logger")
	assert.Equal(t, traceID, inside["trace_id"])
	assert.NotEmpty(t, inside["request_id"])
}
