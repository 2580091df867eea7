package appointment

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether an appointment in from may move to to.
// Staying pending is allowed; every status change out of a terminal state
// is rejected, including a repeat of the same status.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusPending || to == StatusCompleted || to == StatusCancelled
	default:
		return false
	}
}

type Appointment struct {
	ID              int64     `json:"id"`
	PatientID       int64     `json:"patient_id"`
	DoctorID        int64     `json:"doctor_id"`
	AppointmentDate time.Time `json:"appointment_date"`
	Status          Status    `json:"status"`
	Description     *string   `json:"description,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// View is an appointment with the display names of its patient and doctor.
type View struct {
	Appointment
	PatientName     string `json:"patient_name"`
	DoctorName      string `json:"doctor_name"`
	DoctorSpecialty string `json:"doctor_specialty"`
}

type CreateInput struct {
	PatientID       int64   `json:"patient_id" validate:"required,gt=0"`
	DoctorID        int64   `json:"doctor_id" validate:"required,gt=0"`
	AppointmentDate string  `json:"appointment_date" validate:"required"`
	Description     *string `json:"description"`
}

// Patch holds the fields of an update. Nil fields are left unchanged.
type Patch struct {
	AppointmentDate *string `json:"appointment_date"`
	Status          *Status `json:"status" validate:"omitempty,oneof=pending completed cancelled"`
	Description     *string `json:"description"`
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseDateTime accepts RFC 3339 and the zone-less forms browsers send from
// datetime-local inputs. Zone-less values are read as UTC.
func ParseDateTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
