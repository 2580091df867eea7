package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
)

type Service struct {
	users       UserRepository
	doctors     DoctorRepository
	secretaries SecretaryRepository
	patients    PatientRepository
	tx          db.TxManager
	bcryptCost  int
	now         func() time.Time
}

// NewService builds the identity service. A bcryptCost of zero uses the
// bcrypt default.
func NewService(repos Repositories, tx db.TxManager, bcryptCost int) *Service {
	return &Service{
		users:       repos.Users,
		doctors:     repos.Doctors,
		secretaries: repos.Secretaries,
		patients:    repos.Patients,
		tx:          tx,
		bcryptCost:  bcryptCost,
		now:         time.Now,
	}
}

// -- Lookups --

func (s *Service) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.users.GetByEmail(ctx, normalizeEmail(email))
}

func (s *Service) GetUserByNationalID(ctx context.Context, nationalID string) (*User, error) {
	return s.users.GetByNationalID(ctx, strings.TrimSpace(nationalID))
}

func (s *Service) GetDoctorByNationalID(ctx context.Context, nationalID string) (*Doctor, error) {
	return s.doctors.GetByNationalID(ctx, strings.TrimSpace(nationalID))
}

func (s *Service) GetSecretaryByNationalID(ctx context.Context, nationalID string) (*Secretary, error) {
	return s.secretaries.GetByNationalID(ctx, strings.TrimSpace(nationalID))
}

func (s *Service) GetPatientByNationalID(ctx context.Context, nationalID string) (*Patient, error) {
	return s.patients.GetByNationalID(ctx, strings.TrimSpace(nationalID))
}

// ResolveActor builds the actor for an authenticated user. A role profile
// that does not exist yields a zero profile id rather than an error.
func (s *Service) ResolveActor(ctx context.Context, u *User) (auth.Actor, error) {
	var profileID int64
	switch u.Role {
	case auth.RoleDoctor:
		d, err := s.doctors.GetByUserID(ctx, u.ID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		if d != nil {
			profileID = d.ID
		}
	case auth.RoleSecretary:
		sec, err := s.secretaries.GetByNationalID(ctx, u.NationalID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		if sec != nil {
			profileID = sec.ID
		}
	case auth.RolePatient:
		p, err := s.patients.GetByUserID(ctx, u.ID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		if p != nil {
			profileID = p.ID
		}
	}

	a := auth.NewActor(u.Role, u.ID, profileID)
	if a == nil {
		return nil, apperr.Validation("identity.ResolveActor", "unknown role %q", u.Role)
	}
	return a, nil
}

// ResolveEffectiveID returns the secretary id when sec is present and the
// user id otherwise.
func ResolveEffectiveID(u *User, sec *Secretary) int64 {
	if sec != nil {
		return sec.ID
	}
	return u.ID
}

// -- Registration --

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func blankToNil(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func (s *Service) parseBirthDate(op, raw string) (time.Time, error) {
	dob, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, apperr.Validation(op, "date_of_birth must be a date formatted as %s", dateLayout)
	}
	if dob.After(s.now()) {
		return time.Time{}, apperr.Validation(op, "date_of_birth must not be in the future")
	}
	return dob, nil
}

// RegisterUser creates a user together with the profile for its role in one
// transaction.
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	const op = "identity.RegisterUser"

	u := &User{
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Email:      normalizeEmail(in.Email),
		NationalID: strings.TrimSpace(in.NationalID),
		Role:       in.Role,
		Phone:      blankToNil(in.Phone),
		Address:    blankToNil(in.Address),
	}
	switch {
	case u.FirstName == "" || u.LastName == "":
		return nil, apperr.Validation(op, "first_name and last_name are required")
	case u.Email == "":
		return nil, apperr.Validation(op, "email is required")
	case u.NationalID == "":
		return nil, apperr.Validation(op, "national_id is required")
	case len(in.Password) < 8:
		return nil, apperr.Validation(op, "password must be at least 8 characters")
	case !u.Role.Valid():
		return nil, apperr.Validation(op, "role must be one of doctor, secretary, patient")
	}

	specialty := strings.TrimSpace(in.Specialty)
	var dob time.Time
	switch u.Role {
	case auth.RoleDoctor:
		if specialty == "" {
			return nil, apperr.Validation(op, "specialty is required for doctors")
		}
		if in.ClinicID <= 0 {
			return nil, apperr.Validation(op, "clinic_id is required for doctors")
		}
	case auth.RolePatient:
		if strings.TrimSpace(in.DateOfBirth) == "" {
			return nil, apperr.Validation(op, "date_of_birth is required for patients")
		}
		var err error
		if dob, err = s.parseBirthDate(op, in.DateOfBirth); err != nil {
			return nil, err
		}
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	u.PasswordHash = hash

	res := &RegisterResult{User: u}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.ensureUnique(ctx, op, u); err != nil {
			return err
		}
		if u.Role == auth.RoleDoctor {
			ok, err := s.doctors.ClinicExists(ctx, in.ClinicID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.NotFound(op, "clinic not found")
			}
		}

		if err := s.users.Create(ctx, u); err != nil {
			return err
		}

		switch u.Role {
		case auth.RoleDoctor:
			d := &Doctor{UserID: u.ID, Specialty: specialty, ClinicID: in.ClinicID}
			if err := s.doctors.Create(ctx, d); err != nil {
				return err
			}
			res.ProfileID = d.ID
		case auth.RoleSecretary:
			sec := &Secretary{UserID: u.ID}
			if err := s.secretaries.Create(ctx, sec); err != nil {
				return err
			}
			res.ProfileID = sec.ID
		case auth.RolePatient:
			uid := u.ID
			p := &Patient{
				UserID:      &uid,
				FirstName:   u.FirstName,
				LastName:    u.LastName,
				DateOfBirth: dob,
				Email:       u.Email,
				Phone:       u.Phone,
				Address:     u.Address,
			}
			if err := s.patients.Create(ctx, p); err != nil {
				return err
			}
			res.ProfileID = p.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) ensureUnique(ctx context.Context, op string, u *User) error {
	if _, err := s.users.GetByEmail(ctx, u.Email); err == nil {
		return apperr.Conflict(op, "email is already registered")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if _, err := s.users.GetByNationalID(ctx, u.NationalID); err == nil {
		return apperr.Conflict(op, "national_id is already registered")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return nil
}

// ListUsers returns a page of users, optionally restricted to one role.
func (s *Service) ListUsers(ctx context.Context, role *auth.Role, limit, offset int) ([]*User, int, error) {
	if role != nil && !role.Valid() {
		return nil, 0, apperr.Validation("identity.ListUsers", "unknown role %q", *role)
	}
	items, total, err := s.users.List(ctx, role, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []*User{}
	}
	return items, total, nil
}

// -- Patients --

func (s *Service) applyPatientInput(op string, p *Patient, in PatientInput) error {
	p.FirstName = strings.TrimSpace(in.FirstName)
	p.LastName = strings.TrimSpace(in.LastName)
	p.Email = normalizeEmail(in.Email)
	p.Phone = blankToNil(in.Phone)
	p.Address = blankToNil(in.Address)
	if p.FirstName == "" || p.LastName == "" {
		return apperr.Validation(op, "first_name and last_name are required")
	}
	if p.Email == "" {
		return apperr.Validation(op, "email is required")
	}
	dob, err := s.parseBirthDate(op, in.DateOfBirth)
	if err != nil {
		return err
	}
	p.DateOfBirth = dob
	return nil
}

func (s *Service) CreatePatient(ctx context.Context, in PatientInput) (*Patient, error) {
	p := &Patient{}
	if err := s.applyPatientInput("patient.Create", p, in); err != nil {
		return nil, err
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, id int64, in PatientInput) (*Patient, error) {
	var next Patient
	if err := s.applyPatientInput("patient.Update", &next, in); err != nil {
		return nil, err
	}

	var out *Patient
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.Lock(ctx, id)
		if err != nil {
			return err
		}
		p.FirstName, p.LastName, p.DateOfBirth = next.FirstName, next.LastName, next.DateOfBirth
		p.Email, p.Phone, p.Address = next.Email, next.Phone, next.Address
		if err := s.patients.Update(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

// DeletePatient removes a patient that has no appointments.
func (s *Service) DeletePatient(ctx context.Context, id int64) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.patients.Lock(ctx, id); err != nil {
			return err
		}
		n, err := s.patients.CountAppointments(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("patient.Delete", "patient has %d appointment(s)", n)
		}
		return s.patients.Delete(ctx, id)
	})
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	items, total, err := s.patients.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []*Patient{}
	}
	return items, total, nil
}

// -- Doctors --

func (s *Service) GetDoctor(ctx context.Context, id int64) (*DoctorView, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, clinicID *int64) ([]*DoctorView, error) {
	items, err := s.doctors.List(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*DoctorView{}
	}
	return items, nil
}

// DeleteDoctor removes a doctor with no appointments along with its user
// account.
func (s *Service) DeleteDoctor(ctx context.Context, id int64) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		d, err := s.doctors.GetByID(ctx, id)
		if err != nil {
			return err
		}
		n, err := s.doctors.CountAppointments(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("doctor.Delete", "doctor has %d appointment(s)", n)
		}
		return s.users.Delete(ctx, d.UserID)
	})
}
