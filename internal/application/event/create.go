package event

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	zlog "github.com/rs/zerolog/log"
)

func (s *Service) Create(ctx context.Context, initiatorID int64, in domain.NewEvent) (*domain.Event, error) {
	if err := s.requireUser(ctx, initiatorID); err != nil {
		return nil, err
	}
	if in.CategoryID > 0 {
		if err := s.requireCategory(ctx, in.CategoryID); err != nil {
			return nil, err
		}
	}

	e, err := domain.NewPending(initiatorID, in, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}

	zlog.Info().Int64("event_id", e.ID).Int64("initiator_id", initiatorID).Msg("event created")
	return e, nil
}
