package memory

import (
	"context"
	"sort"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/store"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/contracts"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

// tx stages writes and applies them on commit. Event locks taken through
// GetEventForUpdate are held until the unit ends.
type tx struct {
	s      *Store
	locked []int64

	events   map[int64]*domain.Event
	requests map[int64]*domain.ParticipationRequest
	outbox   []contracts.OutboxMessage
}

var _ store.Tx = (*tx)(nil)

// WithTx runs fn as one atomic unit. Nothing fn wrote is visible to others
// unless it returns nil and ctx is still live.
func (s *Store) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	t := &tx{
		s:        s,
		events:   make(map[int64]*domain.Event),
		requests: make(map[int64]*domain.ParticipationRequest),
	}
	defer t.release()

	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.commit()
	return nil
}

func (t *tx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for id, e := range t.events {
		t.s.events[id] = e
	}
	for id, r := range t.requests {
		t.s.requests[id] = r
	}
	t.s.outbox = append(t.s.outbox, t.outbox...)
}

func (t *tx) release() {
	for i := len(t.locked) - 1; i >= 0; i-- {
		t.s.unlockEvent(t.locked[i])
	}
	t.locked = nil
}

func (t *tx) holds(id int64) bool {
	for _, l := range t.locked {
		if l == id {
			return true
		}
	}
	return false
}

func (t *tx) GetEventForUpdate(ctx context.Context, id int64) (*domain.Event, error) {
	if !t.holds(id) {
		if err := t.s.lockEvent(ctx, id); err != nil {
			return nil, err
		}
		t.locked = append(t.locked, id)
	}
	if e, ok := t.events[id]; ok {
		return cloneEvent(e), nil
	}
	return t.s.GetByID(ctx, id)
}

func (t *tx) UpdateEvent(ctx context.Context, e *domain.Event) error {
	if _, err := t.GetEventForUpdate(ctx, e.ID); err != nil {
		return err
	}
	t.events[e.ID] = cloneEvent(e)
	return nil
}

func (t *tx) SetConfirmedRequests(ctx context.Context, eventID, n int64) error {
	e, err := t.GetEventForUpdate(ctx, eventID)
	if err != nil {
		return err
	}
	e.ConfirmedRequests = n
	t.events[eventID] = e
	return nil
}

// snapshot merges committed requests with the staged ones.
func (t *tx) snapshot(keep func(*domain.ParticipationRequest) bool) []*domain.ParticipationRequest {
	seen := make(map[int64]struct{}, len(t.requests))
	out := make([]*domain.ParticipationRequest, 0)
	for id, r := range t.requests {
		seen[id] = struct{}{}
		if keep(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	t.s.mu.RLock()
	for id, r := range t.s.requests {
		if _, ok := seen[id]; ok {
			continue
		}
		if keep(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	t.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *tx) GetRequestForUpdate(_ context.Context, id int64) (*domain.ParticipationRequest, error) {
	found := t.snapshot(func(r *domain.ParticipationRequest) bool { return r.ID == id })
	if len(found) == 0 {
		return nil, domain.ErrNotFound("request not found")
	}
	return found[0], nil
}

func (t *tx) GetRequestsForUpdate(_ context.Context, eventID int64, ids []int64) ([]*domain.ParticipationRequest, error) {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return t.snapshot(func(r *domain.ParticipationRequest) bool {
		_, ok := want[r.ID]
		return ok && r.EventID == eventID
	}), nil
}

func (t *tx) FindActiveRequest(_ context.Context, requesterID, eventID int64) (*domain.ParticipationRequest, error) {
	found := t.snapshot(func(r *domain.ParticipationRequest) bool {
		return r.RequesterID == requesterID && r.EventID == eventID && r.Status.Active()
	})
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (t *tx) InsertRequest(_ context.Context, r *domain.ParticipationRequest) error {
	r.ID = t.s.requestSeq.Add(1)
	cp := *r
	t.requests[r.ID] = &cp
	return nil
}

func (t *tx) SetRequestStatus(ctx context.Context, ids []int64, status domain.RequestStatus) error {
	for _, id := range ids {
		r, err := t.GetRequestForUpdate(ctx, id)
		if err != nil {
			return err
		}
		r.Status = status
		t.requests[id] = r
	}
	return nil
}

func (t *tx) CountConfirmed(_ context.Context, eventID int64) (int64, error) {
	n := len(t.snapshot(func(r *domain.ParticipationRequest) bool {
		return r.EventID == eventID && r.Status == domain.RequestConfirmed
	}))
	return int64(n), nil
}

func (t *tx) InsertOutbox(_ context.Context, msg contracts.OutboxMessage) error {
	t.outbox = append(t.outbox, msg)
	return nil
}
