package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/payhuk02/payhula-sub010/internal/resilience"
)

// LogNotifier writes every event to the logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	n.Logger.Info().
		Str("event_id", ev.ID.String()).
		Str("topic", ev.Topic).
		Str("aggregate_id", ev.AggregateID.String()).
		RawJSON("payload", ev.Payload).
		Msg("domain event")
	return nil
}

// Publisher is the subset of *amqp.Channel used by AMQPNotifier.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes events to a topic exchange using the event topic as routing key.
type AMQPNotifier struct {
	Channel  Publisher
	Exchange string
	// Topics restricts publishing; empty means DefaultTopics.
	Topics []string
	// Breaker, when set, stops publishing while the broker keeps failing.
	Breaker *resilience.Breaker
	Retry   resilience.RetryPolicy
}

// Notify implements Notifier.
func (n AMQPNotifier) Notify(ctx context.Context, ev Event) error {
	if n.Channel == nil {
		return errors.New("events: amqp channel not configured")
	}
	topics := n.Topics
	if len(topics) == 0 {
		topics = DefaultTopics()
	}
	if !slices.Contains(topics, ev.Topic) {
		return nil
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: encode amqp message: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID.String(),
		Timestamp:    ev.OccurredAt,
		Type:         ev.Topic,
		Body:         body,
	}
	publish := func(ctx context.Context) error {
		return n.Channel.PublishWithContext(ctx, n.Exchange, ev.Topic, false, false, msg)
	}
	return n.Retry.Do(ctx, func(ctx context.Context) error {
		if n.Breaker == nil {
			return publish(ctx)
		}
		return n.Breaker.Do(ctx, publish)
	})
}

// DialAMQP connects to the broker and declares a durable topic exchange. The returned close
// function releases the channel and connection.
func DialAMQP(url, exchange string) (*amqp.Channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("events: dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("events: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("events: declare exchange: %w", err)
	}
	closeFn := func() error {
		return errors.Join(ch.Close(), conn.Close())
	}
	return ch, closeFn, nil
}
