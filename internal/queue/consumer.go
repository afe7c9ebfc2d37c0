package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler processes one decoded event. A returned error rejects the
// message without requeueing it.
type Handler func(ctx context.Context, ev OrderPaidEvent) error

// Consumer reads the order.paid queue with manual acknowledgements.
type Consumer struct {
	URL      string
	Prefetch int
	Handle   Handler
	Log      *zap.Logger
}

// Run connects and consumes until ctx is cancelled, reconnecting with
// exponential backoff (capped at 30s) whenever the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("Dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("Consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "channel open")
	}
	defer func() { _ = ch.Close() }()

	prefetch := c.Prefetch
	if prefetch <= 0 {
		prefetch = 50
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		c.Log.Warn("Set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(OrderPaidQueue, true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "queue declare")
	}
	msgs, err := ch.Consume(OrderPaidQueue, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "queue consume")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.dispatch(ctx, d.Body); err != nil {
				c.Log.Error("Handle message failed", zap.Error(err), zap.String("message_id", d.MessageId))
				// Reject without requeue to avoid tight redelivery loops.
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, body []byte) error {
	var ev OrderPaidEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return errors.Wrap(err, "unmarshal")
	}
	return c.Handle(ctx, ev)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// FileLog appends one human-readable line per event to a log file.
type FileLog struct {
	Path string
}

// Handle implements Handler.
func (f FileLog) Handle(_ context.Context, ev OrderPaidEvent) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir logs")
	}
	file, err := os.OpenFile(f.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "open log file")
	}
	defer file.Close()

	if _, err := file.WriteString(FormatLine(ev)); err != nil {
		return errors.Wrap(err, "write log")
	}
	return nil
}

// FormatLine renders ev as a single log line.
func FormatLine(ev OrderPaidEvent) string {
	promo := "-"
	if ev.PromoCode != "" {
		promo = ev.PromoCode
	}
	return fmt.Sprintf("[%s] Order paid | order_id=%d | ref=%s | showtime_id=%d | buyer=%q | seats=[%s] | discount=%s | promo=%s | total=%s | email_sent=%t\n",
		ev.PaidAt, ev.OrderID, ev.RefCode, ev.ShowtimeID, ev.BuyerEmail,
		strings.Join(ev.Seats, ","), ev.DiscountAmount.StringFixed(2), promo, ev.TotalAmount.StringFixed(2), ev.EmailSent)
}
