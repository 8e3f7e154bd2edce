package admission

import (
	"context"
	"sort"
	"strconv"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/store"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/contracts"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	zlog "github.com/rs/zerolog/log"
)

// BulkUpdate applies the initiator's decision to every named request or to
// none. A confirmation batch larger than the remaining capacity is refused as
// a whole.
func (s *Service) BulkUpdate(ctx context.Context, ownerID, eventID int64, requestIDs []int64, target domain.RequestStatus) (*domain.BulkResult, error) {
	if target != domain.RequestConfirmed && target != domain.RequestRejected {
		return nil, domain.ErrValidationMeta("invalid field", map[string]string{"status": "must be CONFIRMED or REJECTED"})
	}
	ids := dedupe(requestIDs)
	if len(ids) == 0 {
		return nil, domain.ErrValidationMeta("invalid field", map[string]string{"requestIds": "must not be empty"})
	}
	if err := s.requireUser(ctx, ownerID); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	res := &domain.BulkResult{}

	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		ev, err := tx.GetEventForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.InitiatorID != ownerID {
			return domain.ErrForbidden("only the initiator can decide on requests")
		}
		if err := refreshConfirmed(ctx, tx, ev); err != nil {
			return err
		}
		if ev.IsFull() {
			return domain.ErrCapacityExhausted()
		}

		reqs, err := tx.GetRequestsForUpdate(ctx, eventID, ids)
		if err != nil {
			return err
		}
		if len(reqs) != len(ids) {
			return domain.ErrNotFoundMeta("request not found", map[string]string{
				"missing": joinIDs(missing(ids, reqs)),
			})
		}
		for _, r := range reqs {
			if r.Status != domain.RequestPending {
				return domain.ErrValidationMeta("request must have status PENDING", map[string]string{
					"request_id": strconv.FormatInt(r.ID, 10),
					"status":     string(r.Status),
				})
			}
		}
		if target == domain.RequestConfirmed {
			if left := ev.Remaining(); left >= 0 && int64(len(reqs)) > left {
				return domain.ErrConflictMeta(domain.MsgCapacityExhausted, map[string]string{
					"remaining": strconv.FormatInt(left, 10),
					"requested": strconv.Itoa(len(reqs)),
				})
			}
		}

		for _, r := range reqs {
			if err := r.Decide(target); err != nil {
				return err
			}
		}
		if err := tx.SetRequestStatus(ctx, ids, target); err != nil {
			return err
		}
		if err := syncConfirmed(ctx, tx, ev); err != nil {
			return err
		}

		msg, err := contracts.NewMessage(ctx, contracts.RKRequestsDecided, now, contracts.RequestsDecidedPayload{
			EventID:           eventID,
			Status:            string(target),
			RequestIDs:        ids,
			ConfirmedRequests: ev.ConfirmedRequests,
		})
		if err != nil {
			return err
		}
		if err := tx.InsertOutbox(ctx, msg); err != nil {
			return err
		}

		for _, r := range reqs {
			if target == domain.RequestConfirmed {
				res.Confirmed = append(res.Confirmed, *r)
			} else {
				res.Rejected = append(res.Rejected, *r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if target == domain.RequestConfirmed {
		s.cache.SeatsChanged(ctx, eventID)
	}
	zlog.Info().
		Int64("event_id", eventID).
		Str("status", string(target)).
		Int("count", len(ids)).
		Msg("participation requests decided")
	return res, nil
}

// dedupe drops duplicates and returns ids in ascending order, which also
// fixes the row lock order.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func missing(ids []int64, found []*domain.ParticipationRequest) []int64 {
	have := make(map[int64]struct{}, len(found))
	for _, r := range found {
		have[r.ID] = struct{}{}
	}
	var out []int64
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func joinIDs(ids []int64) string {
	b := make([]byte, 0, len(ids)*4)
	for i, id := range ids {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendInt(b, id, 10)
	}
	return string(b)
}
