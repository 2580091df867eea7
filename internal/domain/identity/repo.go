package identity

import (
	"context"

	"github.com/clinic/clinic/internal/platform/auth"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByNationalID(ctx context.Context, nationalID string) (*User, error)
	List(ctx context.Context, role *auth.Role, limit, offset int) ([]*User, int, error)
	Delete(ctx context.Context, id int64) error
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id int64) (*DoctorView, error)
	GetByUserID(ctx context.Context, userID int64) (*Doctor, error)
	GetByNationalID(ctx context.Context, nationalID string) (*Doctor, error)
	List(ctx context.Context, clinicID *int64) ([]*DoctorView, error)
	CountAppointments(ctx context.Context, id int64) (int, error)
	ClinicExists(ctx context.Context, clinicID int64) (bool, error)
}

type SecretaryRepository interface {
	Create(ctx context.Context, s *Secretary) error
	GetByNationalID(ctx context.Context, nationalID string) (*Secretary, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	// Lock reads the patient with a row lock held until the transaction ends.
	Lock(ctx context.Context, id int64) (*Patient, error)
	GetByUserID(ctx context.Context, userID int64) (*Patient, error)
	GetByNationalID(ctx context.Context, nationalID string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	CountAppointments(ctx context.Context, id int64) (int, error)
}

// Repositories groups the stores the identity service needs.
type Repositories struct {
	Users       UserRepository
	Doctors     DoctorRepository
	Secretaries SecretaryRepository
	Patients    PatientRepository
}
