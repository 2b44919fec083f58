package domain

import (
	"regexp"
	"strings"
)

var (
	nameRe  = regexp.MustCompile(`^[A-Za-z' -]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9 ()-]+$`)
)

// CheckInRequest is the inbound payload for joining the queue.
type CheckInRequest struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	AppointmentTime string `json:"appointment_time"`
}

// Normalize trims whitespace from every field. Called before Validate so
// the stored values are the trimmed ones.
func (r *CheckInRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.AppointmentTime = strings.TrimSpace(r.AppointmentTime)
}

// Validate checks fields in a fixed order (name, phone, appointment time)
// and returns a ValidationError naming the first field that fails.
func (r *CheckInRequest) Validate() error {
	if len(r.Name) < 1 || len(r.Name) > 100 {
		return &ValidationError{Field: "name", Reason: "must be between 1 and 100 characters"}
	}
	if !nameRe.MatchString(r.Name) {
		return &ValidationError{Field: "name", Reason: "may only contain letters, spaces, hyphens, and apostrophes"}
	}
	if len(r.Phone) < 10 || len(r.Phone) > 20 {
		return &ValidationError{Field: "phone", Reason: "must be between 10 and 20 characters"}
	}
	if !phoneRe.MatchString(r.Phone) {
		return &ValidationError{Field: "phone", Reason: "may only contain digits, spaces, hyphens, parentheses, and a leading +"}
	}
	if len(r.AppointmentTime) < 1 || len(r.AppointmentTime) > 50 {
		return &ValidationError{Field: "appointment_time", Reason: "must be between 1 and 50 characters"}
	}
	return nil
}
