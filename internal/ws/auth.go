package ws

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clinicq/patient-queue/internal/domain"
	"github.com/clinicq/patient-queue/internal/service"
)

// Authenticator resolves handshake credentials to an Identity.
// Staff tokens are validated against active sessions; patron ids are
// format-checked only — the queue engine rejects operations for a
// nonexistent patron naturally, so no existence lookup happens here.
type Authenticator struct {
	auth *service.AuthService
}

func NewAuthenticator(auth *service.AuthService) *Authenticator {
	return &Authenticator{auth: auth}
}

// Authenticate binds exactly one identity kind from the presented
// credentials. A staff token takes precedence when both are present.
// Failures return domain.ErrAuthentication wrapped with a reason the
// handler surfaces in the close frame.
func (a *Authenticator) Authenticate(ctx context.Context, token, patientID string) (Identity, error) {
	switch {
	case token != "":
		session, err := a.auth.Validate(ctx, token)
		if err != nil {
			if errors.Is(err, domain.ErrSessionExpired) {
				return Identity{}, domain.ErrSessionExpired
			}
			return Identity{}, domain.ErrAuthentication
		}
		return Identity{
			Type:     IdentityStaff,
			ID:       session.StaffID,
			Username: session.Username,
			Role:     session.Role,
		}, nil

	case patientID != "":
		if _, err := uuid.Parse(patientID); err != nil {
			return Identity{}, domain.ErrAuthentication
		}
		return Identity{Type: IdentityPatron, ID: patientID}, nil

	default:
		return Identity{}, domain.ErrAuthentication
	}
}
