package admission

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/store"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/contracts"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	zlog "github.com/rs/zerolog/log"
)

// Submit files a participation request. The duplicate check, capacity check,
// insert and counter update run as one unit under the event lock.
func (s *Service) Submit(ctx context.Context, requesterID, eventID int64) (*domain.ParticipationRequest, error) {
	if err := s.requireUser(ctx, requesterID); err != nil {
		s.metrics.RecordAdmission(outcomeOf(err))
		return nil, err
	}

	now := s.clock.Now().UTC()
	var out *domain.ParticipationRequest

	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		ev, err := tx.GetEventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}

		existing, err := tx.FindActiveRequest(ctx, requesterID, eventID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrConflictMeta("request already exists", map[string]string{
				"status": string(existing.Status),
			})
		}

		if err := refreshConfirmed(ctx, tx, ev); err != nil {
			return err
		}
		if err := domain.CheckAdmission(ev, requesterID); err != nil {
			return err
		}

		req := &domain.ParticipationRequest{
			RequesterID: requesterID,
			EventID:     eventID,
			Created:     now,
			Status:      domain.AdmissionStatus(ev),
		}
		if err := tx.InsertRequest(ctx, req); err != nil {
			return err
		}
		if req.Status == domain.RequestConfirmed {
			if err := syncConfirmed(ctx, tx, ev); err != nil {
				return err
			}
		}

		msg, err := contracts.NewMessage(ctx, contracts.RKRequestCreated, now, requestPayload(req))
		if err != nil {
			return err
		}
		if err := tx.InsertOutbox(ctx, msg); err != nil {
			return err
		}

		out = req
		return nil
	})
	if err != nil {
		s.metrics.RecordAdmission(outcomeOf(err))
		return nil, err
	}

	if out.Status == domain.RequestConfirmed {
		s.metrics.RecordAdmission(OutcomeConfirmed)
		s.cache.SeatsChanged(ctx, eventID)
	} else {
		s.metrics.RecordAdmission(OutcomePending)
	}

	zlog.Info().
		Int64("request_id", out.ID).
		Int64("event_id", eventID).
		Int64("requester_id", requesterID).
		Str("status", string(out.Status)).
		Msg("participation request created")
	return out, nil
}

func requestPayload(r *domain.ParticipationRequest) contracts.RequestPayload {
	return contracts.RequestPayload{
		RequestID:   r.ID,
		EventID:     r.EventID,
		RequesterID: r.RequesterID,
		Status:      string(r.Status),
	}
}
