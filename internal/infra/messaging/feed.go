// Package messaging carries change events over RabbitMQ. Every write is
// published to a topic exchange under "changes.<userID>"; each subscriber
// binds its own exclusive queue to the routing key of one user.
package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/finance-tracker-go/internal/domain"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	publishTimeout   = 5 * time.Second
	subscriberBuffer = 8
)

// Feed implements port.ChangeFeed on an AMQP connection.
type Feed struct {
	conn        *amqp091.Connection
	exchange    string
	queuePrefix string
	logger      *zap.Logger

	pubMu sync.Mutex
	pub   *amqp091.Channel

	closeOnce sync.Once
}

// Dial connects to the broker and declares the exchange.
func Dial(url, exchange, queuePrefix string, logger *zap.Logger) (*Feed, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	pub, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = pub.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		pub.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	logger.Info("amqp change feed connected", zap.String("exchange", exchange))
	return &Feed{
		conn:        conn,
		exchange:    exchange,
		queuePrefix: queuePrefix,
		logger:      logger,
		pub:         pub,
	}, nil
}

// PublishChange sends ev to the user's routing key.
func (f *Feed) PublishChange(ctx context.Context, ev domain.ChangeEvent) error {
	body, err := encodeChange(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	f.pubMu.Lock()
	defer f.pubMu.Unlock()

	err = f.pub.PublishWithContext(
		ctx,
		f.exchange,            // exchange
		routingKey(ev.UserID), // routing key
		false,                 // mandatory
		false,                 // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Transient,
			Timestamp:    ev.At,
			Type:         string(ev.Type),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish change: %w", err)
	}

	f.logger.Debug("published change",
		zap.String("user_id", ev.UserID),
		zap.String("collection", string(ev.Collection)),
		zap.String("type", string(ev.Type)),
	)
	return nil
}

// SubscribeChanges consumes the user's events on a private queue until ctx
// is done. Events arriving while the buffer is full are dropped.
func (f *Feed) SubscribeChanges(ctx context.Context, userID string) (<-chan domain.ChangeEvent, error) {
	ch, err := f.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName(f.queuePrefix, userID), // name
		false,                            // durable
		true,                             // delete when unused
		true,                             // exclusive
		false,                            // no-wait
		nil,                              // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey(userID), f.exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	deliveries, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("start consuming: %w", err)
	}

	out := make(chan domain.ChangeEvent, subscriberBuffer)
	go f.forward(ctx, ch, deliveries, userID, out)
	return out, nil
}

func (f *Feed) forward(ctx context.Context, ch *amqp091.Channel, deliveries <-chan amqp091.Delivery, userID string, out chan<- domain.ChangeEvent) {
	defer close(out)
	defer ch.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				f.logger.Warn("change feed delivery channel closed", zap.String("user_id", userID))
				return
			}
			ev, err := decodeChange(d.Body)
			if err != nil {
				f.logger.Warn("discarding malformed change event", zap.Error(err))
				continue
			}
			if ev.UserID != userID {
				continue
			}
			select {
			case out <- ev:
			default:
			}
		}
	}
}

// Close shuts the publishing channel and the connection. Subscriptions end
// when their channels observe the closed connection.
func (f *Feed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		f.pubMu.Lock()
		f.pub.Close()
		f.pubMu.Unlock()
		err = f.conn.Close()
	})
	return err
}

func routingKey(userID string) string {
	return "changes." + userID
}

func queueName(prefix, userID string) string {
	return fmt.Sprintf("%s.%s.%s", prefix, userID, uuid.NewString()[:8])
}
