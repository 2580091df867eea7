// Package dashboard serves the aggregate counts shown on the staff home page.
package dashboard

import "time"

type Stats struct {
	TotalPatients         int       `json:"total_patients"`
	TotalAppointments     int       `json:"total_appointments"`
	PendingAppointments   int       `json:"pending_appointments"`
	CompletedAppointments int       `json:"completed_appointments"`
	CancelledAppointments int       `json:"cancelled_appointments"`
	GeneratedAt           time.Time `json:"generated_at"`
}
