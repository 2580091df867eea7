package appointment

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
)

type appointmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const appointmentCols = `a.id, a.patient_id, a.doctor_id, a.appointment_date, a.status,
	a.description, a.created_at, a.updated_at`

const viewQuery = `
	SELECT ` + appointmentCols + `,
		p.first_name || ' ' || p.last_name,
		u.first_name || ' ' || u.last_name,
		d.specialty
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN doctors d ON d.id = a.doctor_id
	JOIN users u ON u.id = d.user_id`

const viewOrder = ` ORDER BY a.appointment_date DESC, a.id DESC`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.AppointmentDate, &a.Status,
		&a.Description, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanView(row pgx.Row) (*View, error) {
	var v View
	err := row.Scan(&v.ID, &v.PatientID, &v.DoctorID, &v.AppointmentDate, &v.Status,
		&v.Description, &v.CreatedAt, &v.UpdatedAt,
		&v.PatientName, &v.DoctorName, &v.DoctorSpecialty)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, appointment_date, status, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		a.PatientID, a.DoctorID, a.AppointmentDate, a.Status, a.Description,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return db.Translate("appointment.Create", "appointment", err)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id int64) (*View, error) {
	v, err := scanView(r.conn(ctx).QueryRow(ctx, viewQuery+` WHERE a.id = $1`, id))
	return v, db.Translate("appointment.GetByID", "appointment", err)
}

func (r *appointmentRepoPG) Lock(ctx context.Context, id int64) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments a WHERE a.id = $1 FOR UPDATE`, id))
	return a, db.Translate("appointment.Lock", "appointment", err)
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments
		SET appointment_date = $2, status = $3, description = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		a.ID, a.AppointmentDate, a.Status, a.Description,
	).Scan(&a.UpdatedAt)
	return db.Translate("appointment.Update", "appointment", err)
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return db.Translate("appointment.Delete", "appointment", err)
	}
	if tag.RowsAffected() == 0 {
		return db.Translate("appointment.Delete", "appointment", pgx.ErrNoRows)
	}
	return nil
}

func (r *appointmentRepoPG) exists(ctx context.Context, op, entity, sql string, id int64) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, sql, id).Scan(&ok)
	return ok, db.Translate(op, entity, err)
}

func (r *appointmentRepoPG) HasExamination(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "appointment.HasExamination", "examination",
		`SELECT EXISTS (SELECT 1 FROM examinations WHERE appointment_id = $1)`, id)
}

func (r *appointmentRepoPG) PatientExists(ctx context.Context, patientID int64) (bool, error) {
	return r.exists(ctx, "appointment.PatientExists", "patient",
		`SELECT EXISTS (SELECT 1 FROM patients WHERE id = $1)`, patientID)
}

func (r *appointmentRepoPG) DoctorExists(ctx context.Context, doctorID int64) (bool, error) {
	return r.exists(ctx, "appointment.DoctorExists", "doctor",
		`SELECT EXISTS (SELECT 1 FROM doctors WHERE id = $1)`, doctorID)
}

func (r *appointmentRepoPG) list(ctx context.Context, op, where string, args ...interface{}) ([]*View, error) {
	rows, err := r.conn(ctx).Query(ctx, viewQuery+where+viewOrder, args...)
	if err != nil {
		return nil, db.Translate(op, "appointment", err)
	}
	defer rows.Close()

	items := []*View{}
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, db.Translate(op, "appointment", err)
		}
		items = append(items, v)
	}
	return items, db.Translate(op, "appointment", rows.Err())
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID int64) ([]*View, error) {
	return r.list(ctx, "appointment.ListByPatient", ` WHERE a.patient_id = $1`, patientID)
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorID int64) ([]*View, error) {
	return r.list(ctx, "appointment.ListByDoctor", ` WHERE a.doctor_id = $1`, doctorID)
}

func (r *appointmentRepoPG) List(ctx context.Context, status *Status) ([]*View, error) {
	return r.list(ctx, "appointment.List", ` WHERE $1::text IS NULL OR a.status = $1`, status)
}
