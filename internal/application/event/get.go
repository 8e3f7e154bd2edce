package event

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	zlog "github.com/rs/zerolog/log"
)

// GetPublished returns a published event. Anything else is reported as not found.
func (s *Service) GetPublished(ctx context.Context, id int64) (*domain.Event, error) {
	key := cacheKeyEventDetails(id)

	if s.cache != nil {
		var cached domain.Event
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			zlog.Warn().Err(err).Str("key", key).Msg("cache get failed")
		} else if found {
			s.withViews(ctx, &cached)
			return &cached, nil
		}
	}

	ev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.State != domain.StatePublished {
		return nil, domain.ErrNotFound("event not found")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, ev, s.ttlDetails); err != nil {
			zlog.Warn().Err(err).Str("key", key).Msg("cache set failed")
		}
	}

	s.withViews(ctx, ev)
	return ev, nil
}

func (s *Service) ListByInitiator(ctx context.Context, userID int64, p domain.Page) ([]*domain.Event, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	items, err := s.repo.Find(ctx, domain.NewCriteria().Initiators([]int64{userID}), p.Normalize(), domain.OrderNatural)
	if err != nil {
		return nil, err
	}
	s.withViews(ctx, items...)
	return items, nil
}

// GetForInitiator returns one of the user's own events in any state.
func (s *Service) GetForInitiator(ctx context.Context, userID, eventID int64) (*domain.Event, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	ev, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.InitiatorID != userID {
		return nil, domain.ErrNotFound("event not found")
	}
	s.withViews(ctx, ev)
	return ev, nil
}
