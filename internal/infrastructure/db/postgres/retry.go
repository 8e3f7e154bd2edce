package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"math"
	"math/rand"
	"net"
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/lib/pq"
	zlog "github.com/rs/zerolog/log"
)

// RetryPolicy bounds the backoff applied to plain reads and to BEGIN.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second}
}

// CalculateDelay returns the exponential delay before retry number attempt+1, with up to 20% jitter.
func (p RetryPolicy) CalculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(p.InitialDelay) * math.Pow(2, float64(attempt)))
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}
	if j := int64(delay) / 5; j > 0 {
		delay += time.Duration(rand.Int63n(j))
	}
	return delay
}

// IsTransient reports whether err is a connection or serialization failure worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08": // connection_exception
			return true
		}
		switch pqErr.Code {
		case "40001", "40P01", "57P01", "53300":
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// withRetry runs fn until it succeeds, fails permanently or the policy is spent.
// A transient failure that survives the policy is reported as unavailable.
func withRetry(ctx context.Context, p RetryPolicy, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.CalculateDelay(attempt - 1)):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		lastErr = err
		zlog.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Msg("transient storage error")
	}
	zlog.Error().Err(lastErr).Str("op", op).Msg("storage retries exhausted")
	return domain.ErrUnavailable("storage unavailable")
}

// mapErr classifies errors leaving a transaction.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var ae *domain.AppError
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return domain.ErrConflict("request already exists")
	}
	if IsTransient(err) {
		zlog.Error().Err(err).Msg("transient storage error inside transaction")
		return domain.ErrUnavailable("storage unavailable")
	}
	return err
}
