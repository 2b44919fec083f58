package domain_test

import (
	"strings"
	"testing"

	"github.com/clinicq/patient-queue/internal/domain"
)

func validCheckIn() domain.CheckInRequest {
	return domain.CheckInRequest{
		Name:            "Maria O'Brien-Smith",
		Phone:           "+1 (555) 123-4567",
		AppointmentTime: "10:30 AM",
	}
}

func TestCheckInRequest_Validate(t *testing.T) {
	t.Run("valid request passes", func(t *testing.T) {
		r := validCheckIn()
		if err := r.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	tests := []struct {
		name      string
		mutate    func(*domain.CheckInRequest)
		wantField string
	}{
		{"empty name", func(r *domain.CheckInRequest) { r.Name = "" }, "name"},
		{"name too long", func(r *domain.CheckInRequest) { r.Name = strings.Repeat("a", 101) }, "name"},
		{"name with digits", func(r *domain.CheckInRequest) { r.Name = "R2D2" }, "name"},
		{"phone too short", func(r *domain.CheckInRequest) { r.Phone = "12345" }, "phone"},
		{"phone too long", func(r *domain.CheckInRequest) { r.Phone = strings.Repeat("5", 21) }, "phone"},
		{"phone with letters", func(r *domain.CheckInRequest) { r.Phone = "555-CALL-NOW" }, "phone"},
		{"empty appointment time", func(r *domain.CheckInRequest) { r.AppointmentTime = "" }, "appointment_time"},
		{"appointment time too long", func(r *domain.CheckInRequest) { r.AppointmentTime = strings.Repeat("x", 51) }, "appointment_time"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := validCheckIn()
			tc.mutate(&r)
			err := r.Validate()
			ve, ok := domain.IsValidation(err)
			if !ok {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.wantField {
				t.Fatalf("expected field %q, got %q", tc.wantField, ve.Field)
			}
		})
	}
}

// Field check order is fixed: name before phone before appointment time.
func TestCheckInRequest_Validate_FieldOrder(t *testing.T) {
	r := domain.CheckInRequest{Name: "", Phone: "bad", AppointmentTime: ""}
	ve, ok := domain.IsValidation(r.Validate())
	if !ok || ve.Field != "name" {
		t.Fatalf("expected name to fail first, got %v", ve)
	}
}

func TestCheckInRequest_Normalize(t *testing.T) {
	r := domain.CheckInRequest{
		Name:            "  Ana Diaz  ",
		Phone:           " 5551234567 ",
		AppointmentTime: " 9:00 ",
	}
	r.Normalize()
	if r.Name != "Ana Diaz" || r.Phone != "5551234567" || r.AppointmentTime != "9:00" {
		t.Fatalf("unexpected normalized request: %+v", r)
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("expected normalized request to validate, got %v", err)
	}
}
