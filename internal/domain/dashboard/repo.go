package dashboard

import "context"

type Repository interface {
	Stats(ctx context.Context) (*Stats, error)
}

// Cache holds a recently computed Stats value.
type Cache interface {
	Get(ctx context.Context) (*Stats, bool, error)
	Set(ctx context.Context, s *Stats) error
}
