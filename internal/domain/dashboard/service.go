package dashboard

import (
	"context"

	"github.com/rs/zerolog/log"
)

type Service struct {
	repo  Repository
	cache Cache
}

// NewService builds the dashboard service. cache may be nil.
func NewService(repo Repository, cache Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Stats returns the cached counts when available. Cache failures fall back
// to the database.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("stats cache read failed")
		}
		if ok {
			return cached, nil
		}
	}

	st, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, st); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("stats cache write failed")
		}
	}
	return st, nil
}
