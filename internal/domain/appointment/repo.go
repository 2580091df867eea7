package appointment

import "context"

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*View, error)
	// Lock reads the appointment with a row lock held until the transaction
	// ends.
	Lock(ctx context.Context, id int64) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id int64) error
	HasExamination(ctx context.Context, id int64) (bool, error)
	PatientExists(ctx context.Context, patientID int64) (bool, error)
	DoctorExists(ctx context.Context, doctorID int64) (bool, error)
	ListByPatient(ctx context.Context, patientID int64) ([]*View, error)
	ListByDoctor(ctx context.Context, doctorID int64) ([]*View, error)
	List(ctx context.Context, status *Status) ([]*View, error)
}
