package event

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/store"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	zlog "github.com/rs/zerolog/log"
)

type Service struct {
	repo  EventRepo
	dir   store.Directory
	stats ViewStats
	cache Cache
	clock Clock

	ttlDetails time.Duration
	ttlList    time.Duration
}

type Option func(*Service)

func WithCache(c Cache, ttlDetails, ttlList time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttlDetails > 0 {
			s.ttlDetails = ttlDetails
		}
		if ttlList > 0 {
			s.ttlList = ttlList
		}
	}
}

func WithViewStats(v ViewStats) Option {
	return func(s *Service) { s.stats = v }
}

func New(repo EventRepo, dir store.Directory, clock Clock, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		dir:        dir,
		clock:      clock,
		ttlDetails: 5 * time.Minute,
		ttlList:    15 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) requireUser(ctx context.Context, id int64) error {
	ok, err := s.dir.UserExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound("user not found")
	}
	return nil
}

func (s *Service) requireCategory(ctx context.Context, id int64) error {
	ok, err := s.dir.CategoryExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound("category not found")
	}
	return nil
}

// invalidateDetails drops cached details after a committed change. Failures are logged only.
func (s *Service) invalidateDetails(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	key := cacheKeyEventDetails(id)
	if err := s.cache.Delete(ctx, key); err != nil {
		zlog.Warn().Err(err).Str("key", key).Msg("cache invalidate failed")
	}
}

// SeatsChanged drops the details entry and the public list pages after the
// confirmed counter of eventID moved.
func (s *Service) SeatsChanged(ctx context.Context, eventID int64) {
	s.invalidateDetails(ctx, eventID)
	s.invalidateLists(ctx)
}

// invalidateLists drops cached public list pages after a change visible to public search.
func (s *Service) invalidateLists(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, publicListPrefix); err != nil {
		zlog.Warn().Err(err).Str("prefix", publicListPrefix).Msg("cache list invalidate failed")
	}
}
