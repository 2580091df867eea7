package identity

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
)

// NewRepositoriesPG returns PostgreSQL-backed identity stores sharing pool.
func NewRepositoriesPG(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:       &userRepoPG{pool: pool},
		Doctors:     &doctorRepoPG{pool: pool},
		Secretaries: &secretaryRepoPG{pool: pool},
		Patients:    &patientRepoPG{pool: pool},
	}
}

func deleteByID(ctx context.Context, q db.Querier, op, entity, sql string, id int64) error {
	tag, err := q.Exec(ctx, sql, id)
	if err != nil {
		return db.Translate(op, entity, err)
	}
	if tag.RowsAffected() == 0 {
		return db.Translate(op, entity, pgx.ErrNoRows)
	}
	return nil
}

func countByID(ctx context.Context, q db.Querier, op, sql string, id int64) (int, error) {
	var n int
	err := q.QueryRow(ctx, sql, id).Scan(&n)
	return n, db.Translate(op, "record", err)
}

// -- Users --

type userRepoPG struct{ pool *pgxpool.Pool }

func (r *userRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const userCols = `id, first_name, last_name, email, national_id, password_hash, role,
	phone, address, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.NationalID,
		&u.PasswordHash, &u.Role, &u.Phone, &u.Address, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (first_name, last_name, email, national_id, password_hash, role, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		u.FirstName, u.LastName, u.Email, u.NationalID, u.PasswordHash, u.Role, u.Phone, u.Address,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return db.Translate("user.Create", "user", err)
}

func (r *userRepoPG) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
	return u, db.Translate("user.GetByID", "user", err)
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE lower(email) = lower($1)`, email))
	return u, db.Translate("user.GetByEmail", "user", err)
}

func (r *userRepoPG) GetByNationalID(ctx context.Context, nationalID string) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE national_id = $1`, nationalID))
	return u, db.Translate("user.GetByNationalID", "user", err)
}

func (r *userRepoPG) List(ctx context.Context, role *auth.Role, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE $1::text IS NULL OR role = $1`, role).Scan(&total); err != nil {
		return nil, 0, db.Translate("user.List", "user", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+userCols+` FROM users
		WHERE $1::text IS NULL OR role = $1
		ORDER BY id
		LIMIT $2 OFFSET $3`, role, limit, offset)
	if err != nil {
		return nil, 0, db.Translate("user.List", "user", err)
	}
	defer rows.Close()

	items := []*User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, db.Translate("user.List", "user", err)
		}
		items = append(items, u)
	}
	return items, total, db.Translate("user.List", "user", rows.Err())
}

func (r *userRepoPG) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.conn(ctx), "user.Delete", "user", `DELETE FROM users WHERE id = $1`, id)
}

// -- Doctors --

type doctorRepoPG struct{ pool *pgxpool.Pool }

func (r *doctorRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const doctorCols = `d.id, d.user_id, d.specialty, d.clinic_id`

const doctorViewQuery = `
	SELECT d.id, d.user_id, d.specialty, d.clinic_id,
		u.first_name, u.last_name, u.email, u.phone, c.name
	FROM doctors d
	JOIN users u ON u.id = d.user_id
	JOIN clinics c ON c.id = d.clinic_id`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	if err := row.Scan(&d.ID, &d.UserID, &d.Specialty, &d.ClinicID); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDoctorView(row pgx.Row) (*DoctorView, error) {
	var v DoctorView
	err := row.Scan(&v.ID, &v.UserID, &v.Specialty, &v.ClinicID,
		&v.FirstName, &v.LastName, &v.Email, &v.Phone, &v.ClinicName)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (user_id, specialty, clinic_id)
		VALUES ($1, $2, $3)
		RETURNING id`,
		d.UserID, d.Specialty, d.ClinicID).Scan(&d.ID)
	return db.Translate("doctor.Create", "doctor", err)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id int64) (*DoctorView, error) {
	v, err := scanDoctorView(r.conn(ctx).QueryRow(ctx, doctorViewQuery+` WHERE d.id = $1`, id))
	return v, db.Translate("doctor.GetByID", "doctor", err)
}

func (r *doctorRepoPG) GetByUserID(ctx context.Context, userID int64) (*Doctor, error) {
	d, err := scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors d WHERE d.user_id = $1`, userID))
	return d, db.Translate("doctor.GetByUserID", "doctor", err)
}

func (r *doctorRepoPG) GetByNationalID(ctx context.Context, nationalID string) (*Doctor, error) {
	d, err := scanDoctor(r.conn(ctx).QueryRow(ctx, `
		SELECT `+doctorCols+` FROM doctors d
		JOIN users u ON u.id = d.user_id
		WHERE u.national_id = $1`, nationalID))
	return d, db.Translate("doctor.GetByNationalID", "doctor", err)
}

func (r *doctorRepoPG) List(ctx context.Context, clinicID *int64) ([]*DoctorView, error) {
	rows, err := r.conn(ctx).Query(ctx, doctorViewQuery+`
		WHERE $1::bigint IS NULL OR d.clinic_id = $1
		ORDER BY u.last_name, u.first_name, d.id`, clinicID)
	if err != nil {
		return nil, db.Translate("doctor.List", "doctor", err)
	}
	defer rows.Close()

	items := []*DoctorView{}
	for rows.Next() {
		v, err := scanDoctorView(rows)
		if err != nil {
			return nil, db.Translate("doctor.List", "doctor", err)
		}
		items = append(items, v)
	}
	return items, db.Translate("doctor.List", "doctor", rows.Err())
}

func (r *doctorRepoPG) CountAppointments(ctx context.Context, id int64) (int, error) {
	return countByID(ctx, r.conn(ctx), "doctor.CountAppointments",
		`SELECT COUNT(*) FROM appointments WHERE doctor_id = $1`, id)
}

func (r *doctorRepoPG) ClinicExists(ctx context.Context, clinicID int64) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clinics WHERE id = $1)`, clinicID).Scan(&ok)
	return ok, db.Translate("doctor.ClinicExists", "clinic", err)
}

// -- Secretaries --

type secretaryRepoPG struct{ pool *pgxpool.Pool }

func (r *secretaryRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

func scanSecretary(row pgx.Row) (*Secretary, error) {
	var s Secretary
	if err := row.Scan(&s.ID, &s.UserID); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *secretaryRepoPG) Create(ctx context.Context, s *Secretary) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO secretaries (user_id) VALUES ($1) RETURNING id`, s.UserID).Scan(&s.ID)
	return db.Translate("secretary.Create", "secretary", err)
}

func (r *secretaryRepoPG) GetByNationalID(ctx context.Context, nationalID string) (*Secretary, error) {
	s, err := scanSecretary(r.conn(ctx).QueryRow(ctx, `
		SELECT s.id, s.user_id FROM secretaries s
		JOIN users u ON u.id = s.user_id
		WHERE u.national_id = $1`, nationalID))
	return s, db.Translate("secretary.GetByNationalID", "secretary", err)
}

// -- Patients --

type patientRepoPG struct{ pool *pgxpool.Pool }

func (r *patientRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const patientCols = `p.id, p.user_id, p.first_name, p.last_name, p.date_of_birth, p.email,
	p.phone, p.address, p.created_at, p.updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Email,
		&p.Phone, &p.Address, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (user_id, first_name, last_name, date_of_birth, email, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		p.UserID, p.FirstName, p.LastName, p.DateOfBirth, p.Email, p.Phone, p.Address,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return db.Translate("patient.Create", "patient", err)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients p WHERE p.id = $1`, id))
	return p, db.Translate("patient.GetByID", "patient", err)
}

func (r *patientRepoPG) Lock(ctx context.Context, id int64) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients p WHERE p.id = $1 FOR UPDATE`, id))
	return p, db.Translate("patient.Lock", "patient", err)
}

func (r *patientRepoPG) GetByUserID(ctx context.Context, userID int64) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients p WHERE p.user_id = $1`, userID))
	return p, db.Translate("patient.GetByUserID", "patient", err)
}

func (r *patientRepoPG) GetByNationalID(ctx context.Context, nationalID string) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `
		SELECT `+patientCols+` FROM patients p
		JOIN users u ON u.id = p.user_id
		WHERE u.national_id = $1`, nationalID))
	return p, db.Translate("patient.GetByNationalID", "patient", err)
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patients
		SET first_name = $2, last_name = $3, date_of_birth = $4, email = $5,
			phone = $6, address = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Email, p.Phone, p.Address,
	).Scan(&p.UpdatedAt)
	return db.Translate("patient.Update", "patient", err)
}

func (r *patientRepoPG) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.conn(ctx), "patient.Delete", "patient", `DELETE FROM patients WHERE id = $1`, id)
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, db.Translate("patient.List", "patient", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+patientCols+` FROM patients p
		ORDER BY p.last_name, p.first_name, p.id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, db.Translate("patient.List", "patient", err)
	}
	defer rows.Close()

	items := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, db.Translate("patient.List", "patient", err)
		}
		items = append(items, p)
	}
	return items, total, db.Translate("patient.List", "patient", rows.Err())
}

func (r *patientRepoPG) CountAppointments(ctx context.Context, id int64) (int, error) {
	return countByID(ctx, r.conn(ctx), "patient.CountAppointments",
		`SELECT COUNT(*) FROM appointments WHERE patient_id = $1`, id)
}
