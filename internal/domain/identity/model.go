package identity

import (
	"time"

	"github.com/clinic/clinic/internal/platform/auth"
)

// User is an account that can log in. PasswordHash is never serialised.
type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	NationalID   string    `json:"national_id"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	Phone        *string   `json:"phone,omitempty"`
	Address      *string   `json:"address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type Doctor struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Specialty string `json:"specialty"`
	ClinicID  int64  `json:"clinic_id"`
}

// DoctorView is a doctor joined with its user and clinic names.
type DoctorView struct {
	Doctor
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Email      string  `json:"email"`
	Phone      *string `json:"phone,omitempty"`
	ClinicName string  `json:"clinic_name"`
}

type Secretary struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
}

// Patient is a person under care. UserID is set when the patient also has a
// login account.
type Patient struct {
	ID          int64     `json:"id"`
	UserID      *int64    `json:"user_id,omitempty"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Email       string    `json:"email"`
	Phone       *string   `json:"phone,omitempty"`
	Address     *string   `json:"address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const dateLayout = "2006-01-02"

// PatientInput carries the writable fields of a patient.
type PatientInput struct {
	FirstName   string  `json:"first_name" validate:"notblank,max=100"`
	LastName    string  `json:"last_name" validate:"notblank,max=100"`
	DateOfBirth string  `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Email       string  `json:"email" validate:"required,email"`
	Phone       *string `json:"phone" validate:"omitempty,phone"`
	Address     *string `json:"address"`
}

// RegisterInput creates a user and the profile for its role.
type RegisterInput struct {
	FirstName  string    `json:"first_name" validate:"notblank,max=100"`
	LastName   string    `json:"last_name" validate:"notblank,max=100"`
	Email      string    `json:"email" validate:"required,email"`
	NationalID string    `json:"national_id" validate:"required,national_id"`
	Password   string    `json:"password" validate:"required,min=8,max=72"`
	Role       auth.Role `json:"role" validate:"required,oneof=doctor secretary patient"`
	Phone      *string   `json:"phone" validate:"omitempty,phone"`
	Address    *string   `json:"address"`

	// Doctor profile.
	Specialty string `json:"specialty"`
	ClinicID  int64  `json:"clinic_id"`

	// Patient profile.
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
}

// RegisterResult is the created user with the id of its role profile.
type RegisterResult struct {
	User      *User `json:"user"`
	ProfileID int64 `json:"profile_id"`
}
