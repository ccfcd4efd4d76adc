package middleware

import (
	"errors"
	"net/http"

	"github.com/phrazzld/exercise-api/internal/api/shared"
	"github.com/phrazzld/exercise-api/internal/service/auth"
)

// AdminKeyHeader carries the plaintext admin key.
const AdminKeyHeader = "X-Admin-Key"

// AdminMiddleware guards maintenance routes with a shared key whose bcrypt
// hash is configured at startup.
type AdminMiddleware struct {
	keyHash  string
	verifier auth.PasswordVerifier
}

// NewAdminMiddleware creates an AdminMiddleware. An empty keyHash rejects every request.
func NewAdminMiddleware(keyHash string, verifier auth.PasswordVerifier) *AdminMiddleware {
	if verifier == nil {
		verifier = auth.NewBcryptVerifier()
	}
	return &AdminMiddleware{keyHash: keyHash, verifier: verifier}
}

// RequireAdminKey rejects requests whose X-Admin-Key does not match.
func (m *AdminMiddleware) RequireAdminKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.keyHash == "" {
			shared.RespondWithError(w, r, http.StatusForbidden, "Admin access is disabled")
			return
		}

		key := r.Header.Get(AdminKeyHeader)
		if key == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Admin key required")
			return
		}

		if err := m.verifier.Compare(m.keyHash, key); err != nil {
			if errors.Is(err, auth.ErrAdminKeyMismatch) {
				shared.RespondWithErrorAndLog(w, r, http.StatusForbidden, "Invalid admin key", err,
					shared.WithElevatedLogLevel())
				return
			}
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Authentication error", err)
			return
		}

		next.ServeHTTP(w, r)
	})
}
