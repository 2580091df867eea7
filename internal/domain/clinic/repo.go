package clinic

import "context"

type Repository interface {
	Create(ctx context.Context, c *Clinic) error
	GetByID(ctx context.Context, id int64) (*Clinic, error)
	// Lock reads the clinic with a row lock held until the transaction ends.
	Lock(ctx context.Context, id int64) (*Clinic, error)
	Update(ctx context.Context, c *Clinic) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*Clinic, error)
	CountDoctors(ctx context.Context, id int64) (int, error)
}
