package admission

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

func (s *Service) ListForRequester(ctx context.Context, requesterID int64) ([]*domain.ParticipationRequest, error) {
	if err := s.requireUser(ctx, requesterID); err != nil {
		return nil, err
	}
	return s.repo.ListByRequester(ctx, requesterID)
}

// ListForEvent returns every request filed for the event. Only its initiator may look.
func (s *Service) ListForEvent(ctx context.Context, userID, eventID int64) ([]*domain.ParticipationRequest, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.InitiatorID != userID {
		return nil, domain.ErrForbidden("only the initiator can view event requests")
	}
	return s.repo.ListByEvent(ctx, eventID)
}
