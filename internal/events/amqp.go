// AngelaMos | 2026
// amqp.go

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

const exchangeKind = "topic"

type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	mu       sync.Mutex
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, exchangeKind, true, false, false, false, nil); err != nil {
		_ = ch.Close()   //nolint:errcheck // already failing
		_ = conn.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	event, err := NewEvent(routingKey, payload)
	if err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         routingKey,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	return nil
}

var ErrConnectionClosed = errors.New("amqp connection closed")

// Ping fails once the broker connection has been lost.
func (p *AMQPPublisher) Ping(context.Context) error {
	if p.conn == nil || p.conn.IsClosed() {
		return ErrConnectionClosed
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close() //nolint:errcheck // closing connection anyway
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type Consumer struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	logger *slog.Logger
}

// NewConsumer declares the exchange and a durable queue bound to keys.
func NewConsumer(url, exchange, queue string, keys []string, logger *slog.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("open channel: %w", err)
	}

	fail := func(step string, err error) (*Consumer, error) {
		_ = ch.Close()   //nolint:errcheck // already failing
		_ = conn.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("%s: %w", step, err)
	}

	if err := ch.ExchangeDeclare(exchange, exchangeKind, true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}

	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fail("declare queue", err)
	}

	for _, key := range keys {
		if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			return fail("bind "+key, err)
		}
	}

	if err := ch.Qos(16, 0, false); err != nil {
		return fail("set qos", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{conn: conn, ch: ch, queue: q.Name, logger: logger}, nil
}

// Run consumes until ctx is cancelled or the channel closes.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	deliveries, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("delivery channel closed")
			}
			handleDelivery(ctx, d, handler, c.logger)
		}
	}
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close() //nolint:errcheck // closing connection anyway
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// handleDelivery acks processed messages. Malformed messages are dropped;
// other failures are requeued once.
func handleDelivery(ctx context.Context, d amqp.Delivery, handler Handler, logger *slog.Logger) {
	var event Event
	if err := json.Unmarshal(d.Body, &event); err != nil || event.Type == "" {
		logger.Warn("dropping malformed event", "message_id", d.MessageId, "routing_key", d.RoutingKey)
		_ = d.Nack(false, false) //nolint:errcheck // broker reconnect handles it
		return
	}

	err := handler(ctx, event)
	switch {
	case err == nil:
		_ = d.Ack(false) //nolint:errcheck // broker reconnect handles it
	case errors.Is(err, ErrMalformed):
		logger.Warn("dropping unprocessable event", "event_id", event.ID, "type", event.Type, "error", err)
		_ = d.Nack(false, false) //nolint:errcheck // broker reconnect handles it
	default:
		logger.Error("event handler failed",
			"event_id", event.ID,
			"type", event.Type,
			"redelivered", d.Redelivered,
			"error", err,
		)
		_ = d.Nack(false, !d.Redelivered) //nolint:errcheck // broker reconnect handles it
	}
}
