package rabbitmq

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	zlog "github.com/rs/zerolog/log"
)

const (
	DefaultExchange = "ewm.events"

	defaultConfirmWait = 2 * time.Second
)

var (
	ErrNoRoute     = errors.New("rabbitmq: message returned (no route)")
	ErrNack        = errors.New("rabbitmq: publish nack")
	ErrNotReady    = errors.New("rabbitmq: publisher channel not ready")
	ErrConfirmWait = errors.New("rabbitmq: confirm not received in time")
)

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends outbox rows to a topic exchange with mandatory routing and
// publisher confirms. It redials once when the channel has gone away.
type Publisher struct {
	url         string
	exchange    string
	confirmWait time.Duration

	mu sync.Mutex

	conn *amqp.Connection
	ch   channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
	closeCh   <-chan *amqp.Error
}

func NewPublisher(url, exchange string, confirmWait time.Duration) (*Publisher, error) {
	p := newPublisher(url, exchange, confirmWait)
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func newPublisher(url, exchange string, confirmWait time.Duration) *Publisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if confirmWait <= 0 {
		confirmWait = defaultConfirmWait
	}
	return &Publisher{url: url, exchange: exchange, confirmWait: confirmWait}
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	// enable publisher confirms
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	p.conn = conn
	p.ch = ch
	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))
	p.closeCh = ch.NotifyClose(make(chan *amqp.Error, 1))

	zlog.Info().Str("exchange", p.exchange).Msg("rabbitmq publisher connected")
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// ensureLocked redials when the broker closed the channel.
func (p *Publisher) ensureLocked() error {
	if p.ch != nil && p.closeCh != nil {
		select {
		case err := <-p.closeCh:
			zlog.Warn().Err(err).Msg("rabbitmq channel closed, redialing")
			p.closeLocked()
		default:
		}
	}
	if p.ch != nil {
		return nil
	}
	if p.url == "" {
		return ErrNotReady
	}
	return p.connect()
}

// PublishEvent publishes a JSON envelope and waits for the broker's verdict.
// messageID must be stable across retries so consumers can deduplicate.
func (p *Publisher) PublishEvent(ctx context.Context, routingKey, messageID string, body []byte) error {
	if routingKey == "" {
		return errors.New("missing routingKey")
	}
	if strings.TrimSpace(messageID) == "" {
		return errors.New("missing messageID")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureLocked(); err != nil {
		return err
	}

	err := p.ch.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			MessageId:    messageID,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return err
	}

	timer := time.NewTimer(p.confirmWait)
	defer timer.Stop()

	// A return always precedes the confirm of the same message.
	select {
	case ret := <-p.returnCh:
		// consume the matching confirm so the next publish does not read it
		select {
		case <-p.confirmCh:
		case <-timer.C:
		}
		zlog.Warn().Str("routing_key", ret.RoutingKey).Str("message_id", messageID).Msg("message returned")
		return ErrNoRoute
	case conf := <-p.confirmCh:
		select {
		case ret := <-p.returnCh:
			zlog.Warn().Str("routing_key", ret.RoutingKey).Str("message_id", messageID).Msg("message returned")
			return ErrNoRoute
		default:
		}
		if !conf.Ack {
			return ErrNack
		}
		return nil
	case <-timer.C:
		return ErrConfirmWait
	case <-ctx.Done():
		return ctx.Err()
	}
}
