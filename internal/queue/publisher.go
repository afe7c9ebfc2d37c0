package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher publishes order events over one long-lived connection,
// redialing when the broker drops it. It is safe for concurrent use.
type Publisher struct {
	url string
	lg  *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a publisher for url. The connection is opened on
// first use.
func NewPublisher(url string, lg *zap.Logger) *Publisher {
	return &Publisher{url: url, lg: lg}
}

// channel returns an open channel with the queue declared, dialing if
// needed. Callers must hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.closeLocked()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, errors.Wrap(err, "dial broker")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(OrderPaidQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrap(err, "declare queue")
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

// PublishOrderPaid publishes ev as a persistent JSON message.
func (p *Publisher) PublishOrderPaid(ctx context.Context, ev OrderPaidEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", OrderPaidQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    ev.RefCode,
		Body:         body,
	})
	if err != nil {
		p.closeLocked()
		return errors.Wrap(err, "publish")
	}
	p.lg.Debug("Published order event", zap.String("ref_code", ev.RefCode), zap.Uint64("order_id", ev.OrderID))
	return nil
}

// Close releases the connection.
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
