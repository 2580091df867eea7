package identity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

// -- Mock Repositories --

// mockStore backs every identity repository so national id lookups can join
// profiles to users the way the SQL does.
type mockStore struct {
	users        map[int64]*User
	doctors      map[int64]*Doctor
	secretaries  map[int64]*Secretary
	patients     map[int64]*Patient
	clinics      map[int64]bool
	appointments map[string]int
	nextID       int64
}

func newMockStore() *mockStore {
	return &mockStore{
		users:        make(map[int64]*User),
		doctors:      make(map[int64]*Doctor),
		secretaries:  make(map[int64]*Secretary),
		patients:     make(map[int64]*Patient),
		clinics:      map[int64]bool{1: true},
		appointments: make(map[string]int),
	}
}

func (m *mockStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockStore) repos() Repositories {
	return Repositories{
		Users:       &mockUserRepo{m},
		Doctors:     &mockDoctorRepo{m},
		Secretaries: &mockSecretaryRepo{m},
		Patients:    &mockPatientRepo{m},
	}
}

func (m *mockStore) userByNationalID(nid string) *User {
	for _, u := range m.users {
		if u.NationalID == nid {
			return u
		}
	}
	return nil
}

type mockUserRepo struct{ m *mockStore }

func (r *mockUserRepo) Create(_ context.Context, u *User) error {
	u.ID = r.m.id()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.m.users[u.ID] = u
	return nil
}

func (r *mockUserRepo) GetByID(_ context.Context, id int64) (*User, error) {
	u, ok := r.m.users[id]
	if !ok {
		return nil, apperr.NotFound("user.GetByID", "user not found")
	}
	return u, nil
}

func (r *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range r.m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperr.NotFound("user.GetByEmail", "user not found")
}

func (r *mockUserRepo) GetByNationalID(_ context.Context, nid string) (*User, error) {
	if u := r.m.userByNationalID(nid); u != nil {
		return u, nil
	}
	return nil, apperr.NotFound("user.GetByNationalID", "user not found")
}

func (r *mockUserRepo) List(_ context.Context, role *auth.Role, limit, offset int) ([]*User, int, error) {
	var all []*User
	for _, u := range r.m.users {
		if role == nil || u.Role == *role {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *mockUserRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.m.users[id]; !ok {
		return apperr.NotFound("user.Delete", "user not found")
	}
	delete(r.m.users, id)
	for did, d := range r.m.doctors {
		if d.UserID == id {
			delete(r.m.doctors, did)
		}
	}
	return nil
}

type mockDoctorRepo struct{ m *mockStore }

func (r *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	d.ID = r.m.id()
	r.m.doctors[d.ID] = d
	return nil
}

func (r *mockDoctorRepo) GetByID(_ context.Context, id int64) (*DoctorView, error) {
	d, ok := r.m.doctors[id]
	if !ok {
		return nil, apperr.NotFound("doctor.GetByID", "doctor not found")
	}
	u := r.m.users[d.UserID]
	return &DoctorView{Doctor: *d, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}, nil
}

func (r *mockDoctorRepo) GetByUserID(_ context.Context, userID int64) (*Doctor, error) {
	for _, d := range r.m.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, apperr.NotFound("doctor.GetByUserID", "doctor not found")
}

func (r *mockDoctorRepo) GetByNationalID(ctx context.Context, nid string) (*Doctor, error) {
	if u := r.m.userByNationalID(nid); u != nil {
		return r.GetByUserID(ctx, u.ID)
	}
	return nil, apperr.NotFound("doctor.GetByNationalID", "doctor not found")
}

func (r *mockDoctorRepo) List(ctx context.Context, clinicID *int64) ([]*DoctorView, error) {
	var out []*DoctorView
	for id, d := range r.m.doctors {
		if clinicID == nil || d.ClinicID == *clinicID {
			v, _ := r.GetByID(ctx, id)
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *mockDoctorRepo) CountAppointments(_ context.Context, id int64) (int, error) {
	return r.m.appointments[key("doctor", id)], nil
}

func (r *mockDoctorRepo) ClinicExists(_ context.Context, clinicID int64) (bool, error) {
	return r.m.clinics[clinicID], nil
}

type mockSecretaryRepo struct{ m *mockStore }

func (r *mockSecretaryRepo) Create(_ context.Context, s *Secretary) error {
	s.ID = r.m.id()
	r.m.secretaries[s.ID] = s
	return nil
}

func (r *mockSecretaryRepo) GetByNationalID(_ context.Context, nid string) (*Secretary, error) {
	if u := r.m.userByNationalID(nid); u != nil {
		for _, s := range r.m.secretaries {
			if s.UserID == u.ID {
				return s, nil
			}
		}
	}
	return nil, apperr.NotFound("secretary.GetByNationalID", "secretary not found")
}

type mockPatientRepo struct{ m *mockStore }

func (r *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	p.ID = r.m.id()
	r.m.patients[p.ID] = p
	return nil
}

func (r *mockPatientRepo) GetByID(_ context.Context, id int64) (*Patient, error) {
	p, ok := r.m.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient.GetByID", "patient not found")
	}
	cp := *p
	return &cp, nil
}

func (r *mockPatientRepo) Lock(ctx context.Context, id int64) (*Patient, error) {
	return r.GetByID(ctx, id)
}

func (r *mockPatientRepo) GetByUserID(_ context.Context, userID int64) (*Patient, error) {
	for _, p := range r.m.patients {
		if p.UserID != nil && *p.UserID == userID {
			return p, nil
		}
	}
	return nil, apperr.NotFound("patient.GetByUserID", "patient not found")
}

func (r *mockPatientRepo) GetByNationalID(ctx context.Context, nid string) (*Patient, error) {
	if u := r.m.userByNationalID(nid); u != nil {
		return r.GetByUserID(ctx, u.ID)
	}
	return nil, apperr.NotFound("patient.GetByNationalID", "patient not found")
}

func (r *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := r.m.patients[p.ID]; !ok {
		return apperr.NotFound("patient.Update", "patient not found")
	}
	cp := *p
	r.m.patients[p.ID] = &cp
	return nil
}

func (r *mockPatientRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.m.patients[id]; !ok {
		return apperr.NotFound("patient.Delete", "patient not found")
	}
	delete(r.m.patients, id)
	return nil
}

func (r *mockPatientRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var all []*Patient
	for _, p := range r.m.patients {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, len(all), nil
}

func (r *mockPatientRepo) CountAppointments(_ context.Context, id int64) (int, error) {
	return r.m.appointments[key("patient", id)], nil
}

func key(kind string, id int64) string {
	return fmt.Sprintf("%s/%d", kind, id)
}

type fakeTx struct{ calls int }

func (f *fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

func newTestService() (*Service, *mockStore) {
	store := newMockStore()
	svc := NewService(store.repos(), &fakeTx{}, 4)
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	return svc, store
}

func strPtr(s string) *string { return &s }

func registerInput(role auth.Role, email, nid string) RegisterInput {
	return RegisterInput{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      email,
		NationalID: nid,
		Password:   "correct-horse",
		Role:       role,
	}
}

// -- Registration --

func TestRegisterUser_Secretary(t *testing.T) {
	svc, store := newTestService()

	res, err := svc.RegisterUser(context.Background(), registerInput(auth.RoleSecretary, " Front@Desk.test ", "SEC0001"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.User.Email != "front@desk.test" {
		t.Errorf("expected normalised email, got %q", res.User.Email)
	}
	if res.ProfileID == 0 || store.secretaries[res.ProfileID] == nil {
		t.Error("expected a secretary profile")
	}
	if !auth.CheckPassword(res.User.PasswordHash, "correct-horse") {
		t.Error("expected password to be hashed")
	}
}

func TestRegisterUser_Doctor(t *testing.T) {
	svc, store := newTestService()

	in := registerInput(auth.RoleDoctor, "doc@clinic.test", "DOC0001")
	in.Specialty = "Cardiology"
	in.ClinicID = 1
	res, err := svc.RegisterUser(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := store.doctors[res.ProfileID]
	if d == nil || d.Specialty != "Cardiology" || d.UserID != res.User.ID {
		t.Errorf("unexpected doctor profile %+v", d)
	}
}

func TestRegisterUser_DoctorRequiresProfileFields(t *testing.T) {
	svc, store := newTestService()

	in := registerInput(auth.RoleDoctor, "doc@clinic.test", "DOC0001")
	in.ClinicID = 1
	if _, err := svc.RegisterUser(context.Background(), in); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error without specialty, got %v", err)
	}

	in.Specialty = "Cardiology"
	in.ClinicID = 99
	if _, err := svc.RegisterUser(context.Background(), in); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for unknown clinic, got %v", err)
	}
	if len(store.users) != 0 {
		t.Error("expected no user to be created")
	}
}

func TestRegisterUser_Patient(t *testing.T) {
	svc, store := newTestService()

	in := registerInput(auth.RolePatient, "pat@clinic.test", "PAT0001")
	in.DateOfBirth = "1990-04-12"
	res, err := svc.RegisterUser(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := store.patients[res.ProfileID]
	if p == nil || p.UserID == nil || *p.UserID != res.User.ID {
		t.Fatalf("expected linked patient profile, got %+v", p)
	}
	if p.DateOfBirth.Format(dateLayout) != "1990-04-12" {
		t.Errorf("unexpected date of birth %s", p.DateOfBirth)
	}
}

func TestRegisterUser_PatientFutureBirthDate(t *testing.T) {
	svc, _ := newTestService()

	in := registerInput(auth.RolePatient, "pat@clinic.test", "PAT0001")
	in.DateOfBirth = "2030-01-01"
	if _, err := svc.RegisterUser(context.Background(), in); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRegisterUser_Duplicates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, registerInput(auth.RoleSecretary, "a@clinic.test", "NID0001")); err != nil {
		t.Fatalf("setup: %v", err)
	}

	tests := []struct {
		name  string
		email string
		nid   string
	}{
		{"same email", "A@clinic.test", "NID0002"},
		{"same national id", "b@clinic.test", "NID0001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterUser(ctx, registerInput(auth.RoleSecretary, tt.email, tt.nid))
			if !errors.Is(err, apperr.ErrConflict) {
				t.Errorf("expected conflict, got %v", err)
			}
		})
	}
}

// -- Actor resolution --

func TestResolveActor(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	sec, _ := svc.RegisterUser(ctx, registerInput(auth.RoleSecretary, "s@clinic.test", "SEC0001"))
	actor, err := svc.ResolveActor(ctx, sec.User)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sa, ok := actor.(auth.SecretaryActor)
	if !ok || sa.SecretaryID != sec.ProfileID || sa.User != sec.User.ID {
		t.Errorf("unexpected actor %#v", actor)
	}
}

func TestResolveActor_MissingProfile(t *testing.T) {
	svc, _ := newTestService()

	u := &User{ID: 50, Role: auth.RoleDoctor, NationalID: "ORPHAN01"}
	actor, err := svc.ResolveActor(context.Background(), u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actor.ProfileID() != 0 || actor.Role() != auth.RoleDoctor {
		t.Errorf("unexpected actor %#v", actor)
	}
}

func TestResolveEffectiveID(t *testing.T) {
	u := &User{ID: 10}
	if got := ResolveEffectiveID(u, &Secretary{ID: 3, UserID: 10}); got != 3 {
		t.Errorf("expected secretary id, got %d", got)
	}
	if got := ResolveEffectiveID(u, nil); got != 10 {
		t.Errorf("expected user id, got %d", got)
	}
}

func TestNationalIDLookups(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	in := registerInput(auth.RoleDoctor, "doc@clinic.test", "DOC0001")
	in.Specialty = "Dermatology"
	in.ClinicID = 1
	res, _ := svc.RegisterUser(ctx, in)

	d, err := svc.GetDoctorByNationalID(ctx, "DOC0001")
	if err != nil || d.ID != res.ProfileID {
		t.Errorf("expected doctor %d, got %+v %v", res.ProfileID, d, err)
	}
	if _, err := svc.GetSecretaryByNationalID(ctx, "DOC0001"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := svc.GetPatientByNationalID(ctx, "NOPE0001"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	u, err := svc.GetUserByNationalID(ctx, " DOC0001 ")
	if err != nil || u.ID != res.User.ID || u.Role != auth.RoleDoctor {
		t.Errorf("expected user %d, got %+v %v", res.User.ID, u, err)
	}
	if _, err := svc.GetUserByNationalID(ctx, "NOPE0001"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

// -- Patients --

func patientInput() PatientInput {
	return PatientInput{
		FirstName:   " Grace ",
		LastName:    "Hopper",
		DateOfBirth: "1985-12-09",
		Email:       "grace@example.test",
		Phone:       strPtr("  "),
	}
}

func TestCreatePatient(t *testing.T) {
	svc, _ := newTestService()

	p, err := svc.CreatePatient(context.Background(), patientInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == 0 || p.FirstName != "Grace" {
		t.Errorf("unexpected patient %+v", p)
	}
	if p.Phone != nil {
		t.Error("expected blank phone to be dropped")
	}
	if p.UserID != nil {
		t.Error("expected no linked user")
	}
}

func TestCreatePatient_BadDate(t *testing.T) {
	svc, _ := newTestService()

	in := patientInput()
	in.DateOfBirth = "12/09/1985"
	if _, err := svc.CreatePatient(context.Background(), in); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestUpdatePatient(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	p, _ := svc.CreatePatient(ctx, patientInput())
	in := patientInput()
	in.LastName = "Murray Hopper"
	got, err := svc.UpdatePatient(ctx, p.ID, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.LastName != "Murray Hopper" {
		t.Errorf("expected updated last name, got %q", got.LastName)
	}

	if _, err := svc.UpdatePatient(ctx, 404, in); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDeletePatient(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	p, _ := svc.CreatePatient(ctx, patientInput())
	store.appointments[key("patient", p.ID)] = 2
	if err := svc.DeletePatient(ctx, p.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	delete(store.appointments, key("patient", p.ID))
	if err := svc.DeletePatient(ctx, p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetPatient(ctx, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected patient to be gone, got %v", err)
	}
	if err := svc.DeletePatient(ctx, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestListPatients_NeverNil(t *testing.T) {
	svc, _ := newTestService()

	items, total, err := svc.ListPatients(context.Background(), 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items == nil || total != 0 {
		t.Errorf("expected empty non-nil slice, got %v %d", items, total)
	}
}

// -- Doctors --

func TestDeleteDoctor(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	in := registerInput(auth.RoleDoctor, "doc@clinic.test", "DOC0001")
	in.Specialty = "Oncology"
	in.ClinicID = 1
	res, _ := svc.RegisterUser(ctx, in)

	store.appointments[key("doctor", res.ProfileID)] = 1
	if err := svc.DeleteDoctor(ctx, res.ProfileID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	delete(store.appointments, key("doctor", res.ProfileID))
	if err := svc.DeleteDoctor(ctx, res.ProfileID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.users[res.User.ID]; ok {
		t.Error("expected user account to be removed")
	}
	if _, err := svc.GetDoctor(ctx, res.ProfileID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestListDoctors_FilterByClinic(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	store.clinics[2] = true

	for i, clinicID := range []int64{1, 2, 2} {
		in := registerInput(auth.RoleDoctor, fmt.Sprintf("doc%d@clinic.test", i), fmt.Sprintf("DOC000%d", i))
		in.Specialty = "General"
		in.ClinicID = clinicID
		if _, err := svc.RegisterUser(ctx, in); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	clinicID := int64(2)
	items, err := svc.ListDoctors(ctx, &clinicID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 doctors, got %d", len(items))
	}

	none := int64(9)
	items, _ = svc.ListDoctors(ctx, &none)
	if items == nil || len(items) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", items)
	}
}

// -- Users --

func TestListUsers(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	svc.RegisterUser(ctx, registerInput(auth.RoleSecretary, "s1@clinic.test", "SEC0001"))
	svc.RegisterUser(ctx, registerInput(auth.RoleSecretary, "s2@clinic.test", "SEC0002"))
	p := registerInput(auth.RolePatient, "p1@clinic.test", "PAT0001")
	p.DateOfBirth = "2000-01-01"
	svc.RegisterUser(ctx, p)

	role := auth.RoleSecretary
	items, total, err := svc.ListUsers(ctx, &role, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(items) != 1 {
		t.Errorf("expected 1 of 2 secretaries, got %d of %d", len(items), total)
	}

	bad := auth.Role("admin")
	if _, _, err := svc.ListUsers(ctx, &bad, 10, 0); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
