package admission

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/store"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/contracts"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	zlog "github.com/rs/zerolog/log"
)

// Cancel withdraws a request on behalf of its requester. Canceling a
// confirmed request frees its seat in the same unit of work. Canceling an
// already canceled request returns it unchanged.
func (s *Service) Cancel(ctx context.Context, requesterID, requestID int64) (*domain.ParticipationRequest, error) {
	if err := s.requireUser(ctx, requesterID); err != nil {
		return nil, err
	}

	// Cheap ownership check before taking any lock.
	cur, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if cur.RequesterID != requesterID {
		return nil, domain.ErrForbidden("request belongs to another user")
	}
	if cur.Status == domain.RequestCanceled {
		return cur, nil
	}

	now := s.clock.Now().UTC()
	var (
		out     *domain.ParticipationRequest
		freed   bool
		changed bool
	)

	err = s.repo.WithTx(ctx, func(tx store.Tx) error {
		ev, err := tx.GetEventForUpdate(ctx, cur.EventID)
		if err != nil {
			return err
		}
		req, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}

		wasConfirmed := req.Status == domain.RequestConfirmed
		ok, err := req.Cancel()
		if err != nil {
			return err
		}
		out = req
		if !ok {
			return nil
		}

		if err := tx.SetRequestStatus(ctx, []int64{req.ID}, domain.RequestCanceled); err != nil {
			return err
		}
		if wasConfirmed {
			if err := syncConfirmed(ctx, tx, ev); err != nil {
				return err
			}
		}

		msg, err := contracts.NewMessage(ctx, contracts.RKRequestCanceled, now, requestPayload(req))
		if err != nil {
			return err
		}
		if err := tx.InsertOutbox(ctx, msg); err != nil {
			return err
		}
		freed = wasConfirmed
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if freed {
		s.cache.SeatsChanged(ctx, out.EventID)
	}
	if changed {
		zlog.Info().
			Int64("request_id", out.ID).
			Int64("event_id", out.EventID).
			Bool("seat_freed", freed).
			Msg("participation request canceled")
	}
	return out, nil
}
