package clinic

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
)

type clinicRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &clinicRepoPG{pool: pool}
}

func (r *clinicRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const clinicCols = `id, name, address, phone, created_at, updated_at`

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic
	if err := row.Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *clinicRepoPG) Create(ctx context.Context, c *Clinic) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO clinics (name, address, phone)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		c.Name, c.Address, c.Phone).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return db.Translate("clinic.Create", "clinic", err)
}

func (r *clinicRepoPG) GetByID(ctx context.Context, id int64) (*Clinic, error) {
	c, err := scanClinic(r.conn(ctx).QueryRow(ctx, `SELECT `+clinicCols+` FROM clinics WHERE id = $1`, id))
	return c, db.Translate("clinic.GetByID", "clinic", err)
}

func (r *clinicRepoPG) Lock(ctx context.Context, id int64) (*Clinic, error) {
	c, err := scanClinic(r.conn(ctx).QueryRow(ctx, `SELECT `+clinicCols+` FROM clinics WHERE id = $1 FOR UPDATE`, id))
	return c, db.Translate("clinic.Lock", "clinic", err)
}

func (r *clinicRepoPG) Update(ctx context.Context, c *Clinic) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE clinics SET name = $2, address = $3, phone = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Name, c.Address, c.Phone).Scan(&c.UpdatedAt)
	return db.Translate("clinic.Update", "clinic", err)
}

func (r *clinicRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM clinics WHERE id = $1`, id)
	if err != nil {
		return db.Translate("clinic.Delete", "clinic", err)
	}
	if tag.RowsAffected() == 0 {
		return db.Translate("clinic.Delete", "clinic", pgx.ErrNoRows)
	}
	return nil
}

func (r *clinicRepoPG) List(ctx context.Context) ([]*Clinic, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+clinicCols+` FROM clinics ORDER BY name, id`)
	if err != nil {
		return nil, db.Translate("clinic.List", "clinic", err)
	}
	defer rows.Close()

	items := []*Clinic{}
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, db.Translate("clinic.List", "clinic", err)
		}
		items = append(items, c)
	}
	return items, db.Translate("clinic.List", "clinic", rows.Err())
}

func (r *clinicRepoPG) CountDoctors(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors WHERE clinic_id = $1`, id).Scan(&n)
	return n, db.Translate("clinic.CountDoctors", "clinic", err)
}
