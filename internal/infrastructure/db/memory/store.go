// Package memory is an in-process implementation of the storage ports. It
// keeps the same locking and atomicity guarantees as the postgres store and
// backs local runs and service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/store"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/contracts"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

type Store struct {
	mu         sync.RWMutex
	events     map[int64]*domain.Event
	requests   map[int64]*domain.ParticipationRequest
	users      map[int64]struct{}
	categories map[int64]struct{}
	outbox     []contracts.OutboxMessage

	locksMu sync.Mutex
	locks   map[int64]chan struct{}

	eventSeq   atomic.Int64
	requestSeq atomic.Int64
}

func New() *Store {
	return &Store{
		events:     make(map[int64]*domain.Event),
		requests:   make(map[int64]*domain.ParticipationRequest),
		users:      make(map[int64]struct{}),
		categories: make(map[int64]struct{}),
		locks:      make(map[int64]chan struct{}),
	}
}

var _ store.Directory = (*Store)(nil)

func (s *Store) AddUser(id int64) {
	s.mu.Lock()
	s.users[id] = struct{}{}
	s.mu.Unlock()
}

func (s *Store) AddCategory(id int64) {
	s.mu.Lock()
	s.categories[id] = struct{}{}
	s.mu.Unlock()
}

func (s *Store) UserExists(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *Store) CategoryExists(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.categories[id]
	return ok, nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Outbox returns a snapshot of the committed outbox rows.
func (s *Store) Outbox() []contracts.OutboxMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]contracts.OutboxMessage(nil), s.outbox...)
}

// ---- events ----

func (s *Store) Create(_ context.Context, e *domain.Event) error {
	e.ID = s.eventSeq.Add(1)
	s.mu.Lock()
	s.events[e.ID] = cloneEvent(e)
	s.mu.Unlock()
	return nil
}

func (s *Store) GetByID(_ context.Context, id int64) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, domain.ErrNotFound("event not found")
	}
	return cloneEvent(e), nil
}

func (s *Store) Find(_ context.Context, c domain.Criteria, p domain.Page, o domain.Order) ([]*domain.Event, error) {
	p = p.Normalize()

	s.mu.RLock()
	matched := make([]*domain.Event, 0)
	for _, e := range s.events {
		if c.Match(e) {
			matched = append(matched, cloneEvent(e))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if o == domain.OrderEventDateAsc && !matched[i].EventDate.Equal(matched[j].EventDate) {
			return matched[i].EventDate.Before(matched[j].EventDate)
		}
		return matched[i].ID < matched[j].ID
	})

	if p.From >= len(matched) {
		return []*domain.Event{}, nil
	}
	end := p.From + p.Size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[p.From:end], nil
}

// ---- requests ----

func (s *Store) GetRequest(_ context.Context, id int64) (*domain.ParticipationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, domain.ErrNotFound("request not found")
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListByRequester(_ context.Context, requesterID int64) ([]*domain.ParticipationRequest, error) {
	return s.listRequests(func(r *domain.ParticipationRequest) bool { return r.RequesterID == requesterID }), nil
}

func (s *Store) ListByEvent(_ context.Context, eventID int64) ([]*domain.ParticipationRequest, error) {
	return s.listRequests(func(r *domain.ParticipationRequest) bool { return r.EventID == eventID }), nil
}

func (s *Store) listRequests(keep func(*domain.ParticipationRequest) bool) []*domain.ParticipationRequest {
	s.mu.RLock()
	out := make([]*domain.ParticipationRequest, 0)
	for _, r := range s.requests {
		if keep(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ---- locking ----

// lockEvent blocks until the event lock is free or ctx is done.
func (s *Store) lockEvent(ctx context.Context, id int64) error {
	s.locksMu.Lock()
	ch, ok := s.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[id] = ch
	}
	s.locksMu.Unlock()

	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) unlockEvent(id int64) {
	s.locksMu.Lock()
	ch := s.locks[id]
	s.locksMu.Unlock()
	<-ch
}

func cloneEvent(e *domain.Event) *domain.Event {
	cp := *e
	if e.PublishedOn != nil {
		t := *e.PublishedOn
		cp.PublishedOn = &t
	}
	return &cp
}
