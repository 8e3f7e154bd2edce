package admission

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/store"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

type Service struct {
	repo   RequestRepo
	events EventReader
	dir    store.Directory
	clock  Clock

	cache   Invalidator
	metrics Recorder
}

type Option func(*Service)

func WithInvalidator(i Invalidator) Option {
	return func(s *Service) {
		if i != nil {
			s.cache = i
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

func New(repo RequestRepo, events EventReader, dir store.Directory, clock Clock, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		events:  events,
		dir:     dir,
		clock:   clock,
		cache:   noopInvalidator{},
		metrics: noopRecorder{},
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

// syncConfirmed recomputes the confirmed counter inside tx and stores it on the event.
func syncConfirmed(ctx context.Context, tx store.Tx, ev *domain.Event) error {
	n, err := tx.CountConfirmed(ctx, ev.ID)
	if err != nil {
		return err
	}
	if ev.ParticipantLimit != 0 && n > ev.ParticipantLimit {
		return domain.ErrCapacityExhausted()
	}
	if err := tx.SetConfirmedRequests(ctx, ev.ID, n); err != nil {
		return err
	}
	ev.ConfirmedRequests = n
	return nil
}

// refreshConfirmed loads the exact counter into ev before any capacity check.
func refreshConfirmed(ctx context.Context, tx store.Tx, ev *domain.Event) error {
	n, err := tx.CountConfirmed(ctx, ev.ID)
	if err != nil {
		return err
	}
	ev.ConfirmedRequests = n
	return nil
}

func outcomeOf(err error) string {
	if domain.IsCapacityExhausted(err) {
		return OutcomeFull
	}
	switch domain.CodeOf(err) {
	case domain.CodeConflict, domain.CodeValidation, domain.CodeNotFound, domain.CodeForbidden:
		return OutcomeRefused
	default:
		return OutcomeError
	}
}
