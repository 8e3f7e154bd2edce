package postgres

import (
	"context"
	"database/sql"
	"math"
	"math/rand"
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/metrics"
	zlog "github.com/rs/zerolog/log"
)

// Publisher delivers one outbox row to the broker.
type Publisher interface {
	PublishEvent(ctx context.Context, routingKey, messageID string, body []byte) error
}

type outboxRow struct {
	ID         int64
	MessageID  string
	RoutingKey string
	Body       []byte
	Attempts   int
}

// SKIP LOCKED lets several instances poll the same table.
const selectOutboxClaimsSQL = `
SELECT id, message_id, routing_key, body, attempts
FROM event_outbox
WHERE status = 'pending'
  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
ORDER BY next_retry_at ASC, created_at ASC
LIMIT $1
FOR UPDATE SKIP LOCKED
`

const updateOutboxClaimSQL = `
UPDATE event_outbox
SET next_retry_at = $2,
    status = 'processing'
WHERE id = $1
`

const markOutboxSentSQL = `
UPDATE event_outbox
SET status = 'sent',
    sent_at = $2,
    last_error = NULL
WHERE id = $1
`

const markOutboxFailedSQL = `
UPDATE event_outbox
SET status = 'pending',
    attempts = attempts + 1,
    next_retry_at = $2,
    last_error = $3
WHERE id = $1
`

const markOutboxDeadSQL = `
UPDATE event_outbox
SET status = 'dead',
    attempts = attempts + 1,
    last_error = $2
WHERE id = $1
`

// Rows left in 'processing' by a crashed worker become claimable again.
const reclaimStaleOutboxSQL = `
UPDATE event_outbox
SET status = 'pending'
WHERE status = 'processing' AND next_retry_at <= NOW()
`

const (
	maxOutboxAttempts = 10
	outboxBatchSize   = 20
	outboxReservation = 30 * time.Second
)

// StartOutboxWorker polls the outbox until ctx is done. Each round claims a
// batch in a short transaction, publishes outside of it and records the result.
func (r *Repo) StartOutboxWorker(ctx context.Context, pub Publisher, interval time.Duration) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	go func() {
		// spread instances that start together
		time.Sleep(time.Duration(rand.Intn(1000)) * time.Millisecond)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		zlog.Info().Dur("interval", interval).Msg("outbox worker started")
		for {
			select {
			case <-ctx.Done():
				zlog.Info().Msg("outbox worker stopped")
				return
			case <-ticker.C:
				if _, err := r.processOutboxBatch(ctx, pub, outboxBatchSize); err != nil && ctx.Err() == nil {
					zlog.Warn().Err(err).Msg("outbox batch failed")
				}
			}
		}
	}()
}

// processOutboxBatch returns the number of rows it claimed.
func (r *Repo) processOutboxBatch(ctx context.Context, pub Publisher, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}

	claimCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.db.ExecContext(claimCtx, reclaimStaleOutboxSQL); err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(claimCtx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(claimCtx, selectOutboxClaimsSQL, limit)
	if err != nil {
		return 0, err
	}
	var batch []outboxRow
	for rows.Next() {
		var item outboxRow
		if err := rows.Scan(&item.ID, &item.MessageID, &item.RoutingKey, &item.Body, &item.Attempts); err != nil {
			rows.Close()
			return 0, err
		}
		batch = append(batch, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	if len(batch) == 0 {
		return 0, tx.Commit()
	}

	reservation := time.Now().UTC().Add(outboxReservation)
	for _, item := range batch {
		if _, err := tx.ExecContext(claimCtx, updateOutboxClaimSQL, item.ID, reservation); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	for _, item := range batch {
		r.publishOutboxRow(ctx, pub, item)
	}
	return len(batch), nil
}

func (r *Repo) publishOutboxRow(ctx context.Context, pub Publisher, item outboxRow) {
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := pub.PublishEvent(pubCtx, item.RoutingKey, item.MessageID, item.Body)

	resCtx, cancelRes := context.WithTimeout(ctx, 3*time.Second)
	defer cancelRes()

	log := zlog.With().
		Int64("outbox_id", item.ID).
		Str("message_id", item.MessageID).
		Str("routing_key", item.RoutingKey).
		Logger()

	if err != nil {
		errMsg := err.Error()
		if item.Attempts+1 >= maxOutboxAttempts {
			metrics.RecordOutbox("dead")
			log.Error().Err(err).Int("attempts", item.Attempts+1).Msg("outbox message dead")
			if _, uerr := r.db.ExecContext(resCtx, markOutboxDeadSQL, item.ID, errMsg); uerr != nil {
				log.Warn().Err(uerr).Msg("outbox mark dead failed")
			}
			return
		}
		nextRetry := time.Now().UTC().Add(outboxBackoff(item.Attempts))
		metrics.RecordOutbox("retry")
		log.Warn().Err(err).Time("next_retry_at", nextRetry).Msg("outbox publish failed")
		if _, uerr := r.db.ExecContext(resCtx, markOutboxFailedSQL, item.ID, nextRetry, errMsg); uerr != nil {
			log.Warn().Err(uerr).Msg("outbox mark failed failed")
		}
		return
	}

	metrics.RecordOutbox("sent")
	if _, err := r.db.ExecContext(resCtx, markOutboxSentSQL, item.ID, time.Now().UTC()); err != nil {
		log.Warn().Err(err).Msg("outbox mark sent failed")
		return
	}
	log.Debug().Msg("outbox message sent")
}

func outboxBackoff(attempts int) time.Duration {
	backoff := time.Duration(math.Pow(2, float64(attempts))) * time.Second
	return backoff + time.Duration(rand.Intn(1000))*time.Millisecond
}
