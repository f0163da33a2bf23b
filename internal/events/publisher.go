package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/freshmart/storefront/internal/order"
)

// SequenceRepository hands out monotonically increasing sequence numbers per
// partition key so consumers can detect gaps and reordering.
type SequenceRepository interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

// Publisher emits storefront events to the topic exchange.
type Publisher struct {
	ch        *amqp.Channel
	sequences SequenceRepository // optional
	logger    *log.Logger
}

func NewPublisher(conn *amqp.Connection, sequences SequenceRepository, logger *log.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Publisher{ch: ch, sequences: sequences, logger: logger}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// PublishOrderConfirmed emits an enveloped OrderConfirmed event for a backend
// confirmation received during checkout.
func (p *Publisher) PublishOrderConfirmed(ctx context.Context, conf *order.Confirmation) error {
	var seq *int64
	if p.sequences != nil {
		n, err := p.sequences.NextSequence(ctx, strconv.FormatInt(conf.OrderID, 10))
		if err != nil {
			// A missing sequence degrades the envelope, it does not block the event.
			p.logger.Printf("next sequence for order %d: %v", conf.OrderID, err)
		} else {
			seq = &n
		}
	}

	env := BuildOrderConfirmedEnvelope(conf, seq, EnvelopeMetadata{})

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal OrderConfirmed: %w", err)
	}

	return p.publishJSON(ctx, OrderConfirmedRoutingKey, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
