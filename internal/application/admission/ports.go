package admission

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/store"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

type Clock interface{ Now() time.Time }

type RequestRepo interface {
	store.Transactor

	GetRequest(ctx context.Context, id int64) (*domain.ParticipationRequest, error)
	ListByRequester(ctx context.Context, requesterID int64) ([]*domain.ParticipationRequest, error)
	ListByEvent(ctx context.Context, eventID int64) ([]*domain.ParticipationRequest, error)
}

// EventReader is the read-only view of the event lifecycle used for ownership checks.
type EventReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Event, error)
}

// Invalidator drops every cached view of an event once a committed decision changed its counter.
type Invalidator interface {
	SeatsChanged(ctx context.Context, eventID int64)
}

// Recorder counts admission outcomes.
type Recorder interface {
	RecordAdmission(outcome string)
}

const (
	OutcomeConfirmed = "confirmed"
	OutcomePending   = "pending"
	OutcomeFull      = "capacity_exhausted"
	OutcomeRefused   = "refused"
	OutcomeError     = "error"
)

type noopRecorder struct{}

func (noopRecorder) RecordAdmission(string) {}

type noopInvalidator struct{}

func (noopInvalidator) SeatsChanged(context.Context, int64) {}
