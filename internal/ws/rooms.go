package ws

import (
	"strings"

	"github.com/clinicq/patient-queue/internal/domain"
)

// Well-known room names. Patron private rooms are "patient:{id}".
const (
	RoomStaff    = "staff"
	RoomPatients = "patients"
	RoomAdmin    = "admin"

	patronRoomPrefix = "patient:"
)

// PatronRoom returns the private room name for a patron id.
func PatronRoom(patronID string) string {
	return patronRoomPrefix + patronID
}

// IdentityType distinguishes the two kinds of authenticated observer.
type IdentityType string

const (
	IdentityStaff  IdentityType = "staff"
	IdentityPatron IdentityType = "patron"
)

// Identity is the resolved identity bound to a connection for its
// lifetime. Exactly one kind is bound per connection.
type Identity struct {
	Type     IdentityType
	ID       string
	Username string
	Role     domain.StaffRole
}

// AutoRooms returns the rooms a connection is joined to immediately
// after authentication. The patron private room is not revocable.
func (id Identity) AutoRooms() []string {
	if id.Type == IdentityStaff {
		return []string{RoomStaff}
	}
	return []string{RoomPatients, PatronRoom(id.ID)}
}

// CanJoin is the room access policy for manual join requests.
//
//	staff:  staff, patients, any patient:{id}; admin only for admins.
//	patron: patients and exactly their own patient:{id}.
//
// Anything else is denied; denials are surfaced to the requester,
// never silently ignored.
func (id Identity) CanJoin(room string) bool {
	switch id.Type {
	case IdentityStaff:
		switch {
		case room == RoomStaff, room == RoomPatients:
			return true
		case room == RoomAdmin:
			return id.Role == domain.RoleAdmin
		case strings.HasPrefix(room, patronRoomPrefix):
			return true
		}
		return false
	case IdentityPatron:
		return room == RoomPatients || room == PatronRoom(id.ID)
	}
	return false
}
