package ws_test

import (
	"reflect"
	"sort"
	"testing"

	"github.com/clinicq/patient-queue/internal/domain"
	"github.com/clinicq/patient-queue/internal/ws"
)

func TestIdentity_AutoRooms(t *testing.T) {
	tests := []struct {
		name     string
		identity ws.Identity
		want     []string
	}{
		{
			"staff joins the staff room",
			ws.Identity{Type: ws.IdentityStaff, ID: "staff-1", Role: domain.RoleStaff},
			[]string{"staff"},
		},
		{
			"patron joins patients and their private room",
			ws.Identity{Type: ws.IdentityPatron, ID: "p-1"},
			[]string{"patient:p-1", "patients"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.identity.AutoRooms()
			sort.Strings(got)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("AutoRooms() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIdentity_CanJoin(t *testing.T) {
	staff := ws.Identity{Type: ws.IdentityStaff, ID: "staff-1", Role: domain.RoleStaff}
	admin := ws.Identity{Type: ws.IdentityStaff, ID: "staff-2", Role: domain.RoleAdmin}
	patron := ws.Identity{Type: ws.IdentityPatron, ID: "p-1"}

	tests := []struct {
		name     string
		identity ws.Identity
		room     string
		want     bool
	}{
		{"staff joins staff", staff, "staff", true},
		{"staff joins patients", staff, "patients", true},
		{"staff joins any private room", staff, "patient:p-99", true},
		{"staff denied admin", staff, "admin", false},
		{"admin joins admin", admin, "admin", true},
		{"staff denied unknown room", staff, "lounge", false},

		{"patron joins patients", patron, "patients", true},
		{"patron joins own private room", patron, "patient:p-1", true},
		{"patron denied other private room", patron, "patient:p-2", false},
		{"patron denied staff", patron, "staff", false},
		{"patron denied admin", patron, "admin", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.identity.CanJoin(tc.room); got != tc.want {
				t.Fatalf("CanJoin(%q) = %v, want %v", tc.room, got, tc.want)
			}
		})
	}
}
