package examination

import (
	"time"

	"github.com/clinic/clinic/internal/domain/appointment"
)

// DefaultNotes is stored when an examination is recorded without notes.
const DefaultNotes = "not provided"

type Examination struct {
	ID            int64     `json:"id"`
	AppointmentID int64     `json:"appointment_id"`
	Diagnosis     string    `json:"diagnosis"`
	Treatment     string    `json:"treatment"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type PatientSummary struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type DoctorSummary struct {
	ID        int64  `json:"id"`
	Specialty string `json:"specialty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type AppointmentSummary struct {
	ID              int64              `json:"id"`
	PatientID       int64              `json:"patient_id"`
	DoctorID        int64              `json:"doctor_id"`
	AppointmentDate time.Time          `json:"appointment_date"`
	Status          appointment.Status `json:"status"`
	Description     *string            `json:"description,omitempty"`
	Patient         PatientSummary     `json:"patient"`
	Doctor          DoctorSummary      `json:"doctor"`
}

// Detail is an examination joined with its appointment, patient and doctor.
type Detail struct {
	Examination
	Appointment AppointmentSummary `json:"appointment"`
}

type CreateInput struct {
	AppointmentID int64   `json:"appointment_id" validate:"required,gt=0"`
	Diagnosis     string  `json:"diagnosis" validate:"notblank"`
	Treatment     string  `json:"treatment" validate:"notblank"`
	Notes         *string `json:"notes"`
}

// Patch holds the fields of an update. Nil fields are left unchanged.
type Patch struct {
	Diagnosis *string `json:"diagnosis"`
	Treatment *string `json:"treatment"`
	Notes     *string `json:"notes"`
}
