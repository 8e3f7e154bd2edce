// Package store declares the transactional storage contract shared by the
// event lifecycle and admission services.
package store

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/contracts"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

// Tx is one atomic unit of work. Every event read through GetEventForUpdate
// stays locked until the unit commits or rolls back, which serializes
// admission decisions and state changes per event.
type Tx interface {
	GetEventForUpdate(ctx context.Context, id int64) (*domain.Event, error)
	UpdateEvent(ctx context.Context, e *domain.Event) error
	SetConfirmedRequests(ctx context.Context, eventID, n int64) error

	GetRequestForUpdate(ctx context.Context, id int64) (*domain.ParticipationRequest, error)
	GetRequestsForUpdate(ctx context.Context, eventID int64, ids []int64) ([]*domain.ParticipationRequest, error)
	FindActiveRequest(ctx context.Context, requesterID, eventID int64) (*domain.ParticipationRequest, error)
	InsertRequest(ctx context.Context, r *domain.ParticipationRequest) error
	SetRequestStatus(ctx context.Context, ids []int64, status domain.RequestStatus) error
	CountConfirmed(ctx context.Context, eventID int64) (int64, error)

	InsertOutbox(ctx context.Context, msg contracts.OutboxMessage) error
}

type Transactor interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Directory resolves references owned by the user and category stores.
type Directory interface {
	UserExists(ctx context.Context, id int64) (bool, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)
}
