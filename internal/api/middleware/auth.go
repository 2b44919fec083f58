package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/clinicq/patient-queue/internal/domain"
	"github.com/clinicq/patient-queue/internal/service"
)

const sessionKey contextKey = "staff_session"

// StaffAuth returns a middleware that requires a valid staff session
// token in the Authorization header ("Bearer <token>"). The resolved
// session is stored on the request context for handlers.
func StaffAuth(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			session, err := auth.Validate(r.Context(), token)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession retrieves the staff session stored by StaffAuth.
// Returns nil if the middleware was not applied.
func GetSession(ctx context.Context) *domain.StaffSession {
	s, _ := ctx.Value(sessionKey).(*domain.StaffSession)
	return s
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
