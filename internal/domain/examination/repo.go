package examination

import (
	"context"

	"github.com/clinic/clinic/internal/domain/appointment"
)

type Repository interface {
	Create(ctx context.Context, e *Examination) error
	GetByID(ctx context.Context, id int64) (*Detail, error)
	Lock(ctx context.Context, id int64) (*Examination, error)
	Update(ctx context.Context, e *Examination) error
	Delete(ctx context.Context, id int64) error
	ExistsForAppointment(ctx context.Context, appointmentID int64) (bool, error)
	ListByDoctor(ctx context.Context, doctorID int64) ([]*Detail, error)
	List(ctx context.Context) ([]*Detail, error)
}

// Appointments is the part of the appointment store an examination write
// touches. Both calls join the caller's transaction.
type Appointments interface {
	Lock(ctx context.Context, id int64) (*appointment.Appointment, error)
	Update(ctx context.Context, a *appointment.Appointment) error
}
