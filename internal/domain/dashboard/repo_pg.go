package dashboard

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
)

type statsRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &statsRepoPG{pool: pool}
}

func (r *statsRepoPG) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM patients),
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			NOW()
		FROM appointments`,
	).Scan(&s.TotalPatients, &s.TotalAppointments, &s.PendingAppointments,
		&s.CompletedAppointments, &s.CancelledAppointments, &s.GeneratedAt)
	if err != nil {
		return nil, db.Translate("dashboard.Stats", "stats", err)
	}
	return &s, nil
}
