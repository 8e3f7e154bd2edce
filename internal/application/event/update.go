package event

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/store"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/contracts"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	zlog "github.com/rs/zerolog/log"
)

// ApplyUserAction runs an initiator edit: optional review action first, then the patch.
func (s *Service) ApplyUserAction(ctx context.Context, userID, eventID int64, action domain.UserAction, patch domain.Patch) (*domain.Event, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if patch.CategoryID != nil {
		if err := s.requireCategory(ctx, *patch.CategoryID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now().UTC()
	var (
		out        *domain.Event
		staleLists bool
	)

	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		ev, err := tx.GetEventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.InitiatorID != userID {
			return domain.ErrForbidden("only the initiator can edit the event")
		}

		prev := ev.State
		if err := ev.ApplyUserAction(action); err != nil {
			return err
		}
		if err := patch.Validate(ev, now); err != nil {
			return err
		}
		if err := ev.ApplyPatch(patch, now); err != nil {
			return err
		}
		if err := tx.UpdateEvent(ctx, ev); err != nil {
			return err
		}
		if err := emitStateChange(ctx, tx, prev, ev, now); err != nil {
			return err
		}

		out = ev
		staleLists = prev != ev.State || ev.State == domain.StatePublished
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateDetails(ctx, out.ID)
	if staleLists {
		s.invalidateLists(ctx)
	}
	s.withViews(ctx, out)
	return out, nil
}

// ApplyAdminAction runs a moderation decision and patch without the identity check.
func (s *Service) ApplyAdminAction(ctx context.Context, eventID int64, action domain.AdminAction, patch domain.Patch) (*domain.Event, error) {
	if patch.CategoryID != nil {
		if err := s.requireCategory(ctx, *patch.CategoryID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now().UTC()
	var (
		out        *domain.Event
		staleLists bool
	)

	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		ev, err := tx.GetEventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}

		prev := ev.State
		if err := ev.ApplyPatch(patch, now); err != nil {
			return err
		}
		if err := ev.ApplyAdminAction(action, now); err != nil {
			return err
		}
		if err := tx.UpdateEvent(ctx, ev); err != nil {
			return err
		}
		if err := emitStateChange(ctx, tx, prev, ev, now); err != nil {
			return err
		}

		out = ev
		staleLists = prev != ev.State || ev.State == domain.StatePublished
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.State != domain.StatePending {
		zlog.Info().Int64("event_id", out.ID).Str("state", string(out.State)).Msg("event moderated")
	}
	s.invalidateDetails(ctx, out.ID)
	if staleLists {
		s.invalidateLists(ctx)
	}
	s.withViews(ctx, out)
	return out, nil
}

// emitStateChange writes an outbox row when the event entered PUBLISHED or CANCELED.
func emitStateChange(ctx context.Context, tx store.Tx, prev domain.EventState, ev *domain.Event, now time.Time) error {
	if prev == ev.State {
		return nil
	}
	var rk string
	switch ev.State {
	case domain.StatePublished:
		rk = contracts.RKEventPublished
	case domain.StateCanceled:
		rk = contracts.RKEventCanceled
	default:
		return nil
	}

	msg, err := contracts.NewMessage(ctx, rk, now, contracts.EventStatePayload{
		EventID:          ev.ID,
		InitiatorID:      ev.InitiatorID,
		CategoryID:       ev.CategoryID,
		Title:            ev.Title,
		EventDate:        ev.EventDate,
		ParticipantLimit: ev.ParticipantLimit,
		State:            string(ev.State),
		PublishedOn:      ev.PublishedOn,
	})
	if err != nil {
		return err
	}
	return tx.InsertOutbox(ctx, msg)
}
