package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/application/store"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/contracts"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/lib/pq"
)

// WithTx runs fn in a READ COMMITTED transaction. Only BEGIN is retried;
// a failure after the first statement rolls back and is returned as is.
func (r *Repo) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	var tx *sql.Tx
	err := withRetry(ctx, r.retry, "begin", func() error {
		var err error
		tx, err = r.db.BeginTx(ctx, &sql.TxOptions{
			Isolation: sql.LevelReadCommitted,
			ReadOnly:  false,
		})
		return err
	})
	if err != nil {
		return err
	}

	tr := &txRepo{tx: tx}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tr); err != nil {
		_ = tx.Rollback()
		return mapErr(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", mapErr(err))
	}
	return nil
}

type txRepo struct {
	tx *sql.Tx
}

var _ store.Tx = (*txRepo)(nil)

func (t *txRepo) GetEventForUpdate(ctx context.Context, id int64) (*domain.Event, error) {
	return scanEvent(t.tx.QueryRowContext(ctx, selectEventForUpdateSQL, id))
}

func (t *txRepo) UpdateEvent(ctx context.Context, e *domain.Event) error {
	_, err := t.tx.ExecContext(ctx, updateEventSQL,
		e.ID,
		e.Annotation, e.Description, e.Title, e.CategoryID,
		e.Location.Lat, e.Location.Lon, e.EventDate.UTC(), nullTime(e.PublishedOn), e.Paid,
		e.ParticipantLimit, e.RequestModeration, string(e.State),
	)
	return err
}

func (t *txRepo) SetConfirmedRequests(ctx context.Context, eventID, n int64) error {
	_, err := t.tx.ExecContext(ctx, setConfirmedSQL, eventID, n)
	return err
}

func (t *txRepo) GetRequestForUpdate(ctx context.Context, id int64) (*domain.ParticipationRequest, error) {
	return scanRequest(t.tx.QueryRowContext(ctx, selectRequestForUpdateSQL, id))
}

func (t *txRepo) GetRequestsForUpdate(ctx context.Context, eventID int64, ids []int64) ([]*domain.ParticipationRequest, error) {
	rows, err := t.tx.QueryContext(ctx, selectRequestsForUpdateSQL, eventID, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

func (t *txRepo) FindActiveRequest(ctx context.Context, requesterID, eventID int64) (*domain.ParticipationRequest, error) {
	r, err := scanRequest(t.tx.QueryRowContext(ctx, findActiveRequestSQL, requesterID, eventID))
	if domain.IsCode(err, domain.CodeNotFound) {
		return nil, nil
	}
	return r, err
}

func (t *txRepo) InsertRequest(ctx context.Context, r *domain.ParticipationRequest) error {
	return t.tx.QueryRowContext(ctx, insertRequestSQL,
		r.RequesterID, r.EventID, r.Created.UTC(), string(r.Status),
	).Scan(&r.ID)
}

func (t *txRepo) SetRequestStatus(ctx context.Context, ids []int64, status domain.RequestStatus) error {
	_, err := t.tx.ExecContext(ctx, setRequestStatusSQL, pq.Array(ids), string(status))
	return err
}

func (t *txRepo) CountConfirmed(ctx context.Context, eventID int64) (int64, error) {
	var n int64
	err := t.tx.QueryRowContext(ctx, countConfirmedSQL, eventID).Scan(&n)
	return n, err
}

const insertOutboxSQL = `
INSERT INTO event_outbox (
  message_id, routing_key, body, created_at, status, next_retry_at
) VALUES ($1, $2, $3::jsonb, $4, 'pending', $4)
`

func (t *txRepo) InsertOutbox(ctx context.Context, msg contracts.OutboxMessage) error {
	// jsonb goes in as text for lib/pq.
	_, err := t.tx.ExecContext(ctx, insertOutboxSQL,
		msg.MessageID,
		msg.RoutingKey,
		string(msg.Body),
		msg.CreatedAt.UTC(),
	)
	return err
}
