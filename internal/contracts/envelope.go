package contracts

import (
	"context"
	"encoding/json"
	"time"

	appCtx "github.com/baechuer/real-time-ressys/services/ewm-service/internal/pkg/context"
	"github.com/google/uuid"
)

const (
	EnvelopeVersion = 1
	Producer        = "ewm-service"
)

// Routing keys on the topic exchange.
const (
	RKEventPublished  = "event.published"
	RKEventCanceled   = "event.canceled"
	RKRequestCreated  = "request.created"
	RKRequestCanceled = "request.canceled"
	RKRequestsDecided = "request.decided"
)

// DomainEventEnvelope is the stable contract for all messages emitted by this service.
type DomainEventEnvelope[T any] struct {
	Version    int       `json:"version"`
	Producer   string    `json:"producer"`
	MessageID  string    `json:"message_id"`
	TraceID    string    `json:"trace_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    T         `json:"payload"`
}

// EventStatePayload goes out on event.published and event.canceled.
type EventStatePayload struct {
	EventID          int64      `json:"event_id"`
	InitiatorID      int64      `json:"initiator_id"`
	CategoryID       int64      `json:"category_id"`
	Title            string     `json:"title"`
	EventDate        time.Time  `json:"event_date"`
	ParticipantLimit int64      `json:"participant_limit"`
	State            string     `json:"state"`
	PublishedOn      *time.Time `json:"published_on,omitempty"`
}

type RequestPayload struct {
	RequestID   int64  `json:"request_id"`
	EventID     int64  `json:"event_id"`
	RequesterID int64  `json:"requester_id"`
	Status      string `json:"status"`
}

// RequestsDecidedPayload goes out once per bulk decision.
type RequestsDecidedPayload struct {
	EventID           int64   `json:"event_id"`
	Status            string  `json:"status"`
	RequestIDs        []int64 `json:"request_ids"`
	ConfirmedRequests int64   `json:"confirmed_requests"`
}

// OutboxMessage is one row of the transactional outbox.
type OutboxMessage struct {
	MessageID  string
	RoutingKey string
	Body       []byte
	CreatedAt  time.Time
}

// NewMessage wraps payload in an envelope and encodes it for the outbox.
func NewMessage[T any](ctx context.Context, routingKey string, now time.Time, payload T) (OutboxMessage, error) {
	env := DomainEventEnvelope[T]{
		Version:    EnvelopeVersion,
		Producer:   Producer,
		MessageID:  uuid.NewString(),
		TraceID:    appCtx.GetRequestID(ctx),
		OccurredAt: now.UTC(),
		Payload:    payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return OutboxMessage{}, err
	}
	return OutboxMessage{
		MessageID:  env.MessageID,
		RoutingKey: routingKey,
		Body:       body,
		CreatedAt:  now.UTC(),
	}, nil
}
