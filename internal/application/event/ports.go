package event

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/store"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

type Clock interface {
	Now() time.Time
}

type EventRepo interface {
	store.Transactor

	Create(ctx context.Context, e *domain.Event) error
	GetByID(ctx context.Context, id int64) (*domain.Event, error)
	Find(ctx context.Context, c domain.Criteria, p domain.Page, o domain.Order) ([]*domain.Event, error)
}

// ViewStats is the query side of the stats collector.
type ViewStats interface {
	QueryHits(ctx context.Context, start, end time.Time, uris []string, unique bool) (map[string]int64, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, val any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}
