package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
)

// Repo implements the event, request and directory ports on Postgres.
type Repo struct {
	db    *sql.DB
	retry RetryPolicy
}

type Option func(*Repo)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(r *Repo) { r.retry = p }
}

func New(db *sql.DB, opts ...Option) *Repo {
	r := &Repo{db: db, retry: DefaultRetryPolicy()}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Repo) Create(ctx context.Context, e *domain.Event) error {
	err := r.db.QueryRowContext(ctx, insertEventSQL,
		e.Annotation, e.Description, e.Title, e.CategoryID, e.InitiatorID,
		e.Location.Lat, e.Location.Lon, e.EventDate.UTC(), e.CreatedOn.UTC(), nullTime(e.PublishedOn), e.Paid,
		e.ParticipantLimit, e.RequestModeration, e.ConfirmedRequests, string(e.State),
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert event: %w", mapErr(err))
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	var e *domain.Event
	err := withRetry(ctx, r.retry, "get_event", func() error {
		var err error
		e, err = scanEvent(r.db.QueryRowContext(ctx, getEventSQL, id))
		return err
	})
	return e, err
}

func (r *Repo) Find(ctx context.Context, c domain.Criteria, p domain.Page, o domain.Order) ([]*domain.Event, error) {
	q, args := buildFindQuery(c, p.Normalize(), o)

	var out []*domain.Event
	err := withRetry(ctx, r.retry, "find_events", func() error {
		rows, err := r.db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]*domain.Event, 0)
		for rows.Next() {
			e, err := scanEvent(rows)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	return out, err
}

func (r *Repo) GetRequest(ctx context.Context, id int64) (*domain.ParticipationRequest, error) {
	var req *domain.ParticipationRequest
	err := withRetry(ctx, r.retry, "get_request", func() error {
		var err error
		req, err = scanRequest(r.db.QueryRowContext(ctx, getRequestSQL, id))
		return err
	})
	return req, err
}

func (r *Repo) ListByRequester(ctx context.Context, requesterID int64) ([]*domain.ParticipationRequest, error) {
	return r.listRequests(ctx, "list_by_requester", listByRequesterSQL, requesterID)
}

func (r *Repo) ListByEvent(ctx context.Context, eventID int64) ([]*domain.ParticipationRequest, error) {
	return r.listRequests(ctx, "list_by_event", listByEventSQL, eventID)
}

func (r *Repo) listRequests(ctx context.Context, op, q string, arg int64) ([]*domain.ParticipationRequest, error) {
	var out []*domain.ParticipationRequest
	err := withRetry(ctx, r.retry, op, func() error {
		rows, err := r.db.QueryContext(ctx, q, arg)
		if err != nil {
			return err
		}
		out, err = scanRequests(rows)
		return err
	})
	return out, err
}

func (r *Repo) UserExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "user_exists", userExistsSQL, id)
}

func (r *Repo) CategoryExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "category_exists", categoryExistsSQL, id)
}

func (r *Repo) exists(ctx context.Context, op, q string, id int64) (bool, error) {
	var ok bool
	err := withRetry(ctx, r.retry, op, func() error {
		return r.db.QueryRowContext(ctx, q, id).Scan(&ok)
	})
	return ok, err
}

// Ping reports whether the database answers. Used by the readiness probe.
func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
