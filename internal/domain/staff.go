package domain

import "time"

// StaffRole gates access to privileged rooms and endpoints.
type StaffRole string

const (
	RoleStaff StaffRole = "staff"
	RoleAdmin StaffRole = "admin"
)

// Staff is a front-desk operator account. PasswordHash is a bcrypt
// hash, never serialized; comparison happens in the auth service.
type Staff struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         StaffRole `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// StaffSession is an active login. The token authenticates both HTTP
// staff endpoints and websocket handshakes until ExpiresAt.
type StaffSession struct {
	Token     string    `json:"token"`
	StaffID   string    `json:"staff_id"`
	Username  string    `json:"username"`
	Role      StaffRole `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its TTL at the given instant.
func (s *StaffSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
