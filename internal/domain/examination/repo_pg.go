package examination

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
)

type examinationRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &examinationRepoPG{pool: pool}
}

func (r *examinationRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const examCols = `e.id, e.appointment_id, e.diagnosis, e.treatment, e.notes, e.created_at, e.updated_at`

const detailQuery = `
	SELECT ` + examCols + `,
		a.id, a.patient_id, a.doctor_id, a.appointment_date, a.status, a.description,
		p.id, p.first_name, p.last_name, p.email,
		d.id, d.specialty, u.first_name, u.last_name
	FROM examinations e
	JOIN appointments a ON a.id = e.appointment_id
	JOIN patients p ON p.id = a.patient_id
	JOIN doctors d ON d.id = a.doctor_id
	JOIN users u ON u.id = d.user_id`

func scanExam(row pgx.Row) (*Examination, error) {
	var e Examination
	err := row.Scan(&e.ID, &e.AppointmentID, &e.Diagnosis, &e.Treatment, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail
	a := &d.Appointment
	err := row.Scan(&d.ID, &d.AppointmentID, &d.Diagnosis, &d.Treatment, &d.Notes, &d.CreatedAt, &d.UpdatedAt,
		&a.ID, &a.PatientID, &a.DoctorID, &a.AppointmentDate, &a.Status, &a.Description,
		&a.Patient.ID, &a.Patient.FirstName, &a.Patient.LastName, &a.Patient.Email,
		&a.Doctor.ID, &a.Doctor.Specialty, &a.Doctor.FirstName, &a.Doctor.LastName)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *examinationRepoPG) Create(ctx context.Context, e *Examination) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO examinations (appointment_id, diagnosis, treatment, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		e.AppointmentID, e.Diagnosis, e.Treatment, e.Notes,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return db.Translate("examination.Create", "examination", err)
}

func (r *examinationRepoPG) GetByID(ctx context.Context, id int64) (*Detail, error) {
	d, err := scanDetail(r.conn(ctx).QueryRow(ctx, detailQuery+` WHERE e.id = $1`, id))
	return d, db.Translate("examination.GetByID", "examination", err)
}

func (r *examinationRepoPG) Lock(ctx context.Context, id int64) (*Examination, error) {
	e, err := scanExam(r.conn(ctx).QueryRow(ctx, `SELECT `+examCols+` FROM examinations e WHERE e.id = $1 FOR UPDATE`, id))
	return e, db.Translate("examination.Lock", "examination", err)
}

func (r *examinationRepoPG) Update(ctx context.Context, e *Examination) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE examinations
		SET diagnosis = $2, treatment = $3, notes = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		e.ID, e.Diagnosis, e.Treatment, e.Notes,
	).Scan(&e.UpdatedAt)
	return db.Translate("examination.Update", "examination", err)
}

func (r *examinationRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM examinations WHERE id = $1`, id)
	if err != nil {
		return db.Translate("examination.Delete", "examination", err)
	}
	if tag.RowsAffected() == 0 {
		return db.Translate("examination.Delete", "examination", pgx.ErrNoRows)
	}
	return nil
}

func (r *examinationRepoPG) ExistsForAppointment(ctx context.Context, appointmentID int64) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM examinations WHERE appointment_id = $1)`, appointmentID).Scan(&ok)
	return ok, db.Translate("examination.ExistsForAppointment", "examination", err)
}

func (r *examinationRepoPG) list(ctx context.Context, op, where string, args ...interface{}) ([]*Detail, error) {
	rows, err := r.conn(ctx).Query(ctx, detailQuery+where+` ORDER BY e.id DESC`, args...)
	if err != nil {
		return nil, db.Translate(op, "examination", err)
	}
	defer rows.Close()

	items := []*Detail{}
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, db.Translate(op, "examination", err)
		}
		items = append(items, d)
	}
	return items, db.Translate(op, "examination", rows.Err())
}

func (r *examinationRepoPG) ListByDoctor(ctx context.Context, doctorID int64) ([]*Detail, error) {
	return r.list(ctx, "examination.ListByDoctor", ` WHERE a.doctor_id = $1`, doctorID)
}

func (r *examinationRepoPG) List(ctx context.Context) ([]*Detail, error) {
	return r.list(ctx, "examination.List", "")
}
