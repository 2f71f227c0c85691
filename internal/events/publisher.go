package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/Nagulan13/oboma/internal/middleware"
	"github.com/Nagulan13/oboma/internal/order"
	"github.com/Nagulan13/oboma/internal/sequence"
)

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends enveloped events to the events exchange. Every event gets
// the next sequence of its partition so consumers can drop stale deliveries.
type Publisher struct {
	ch       Channel
	seq      sequence.Repository
	producer string
	logger   zerolog.Logger
	now      func() time.Time
}

func NewPublisher(conn *amqp.Connection, seq sequence.Repository, producer string, logger zerolog.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	return newPublisher(ch, seq, producer, logger), nil
}

func newPublisher(ch Channel, seq sequence.Repository, producer string, logger zerolog.Logger) *Publisher {
	if producer == "" {
		producer = "oboma-storefront"
	}
	return &Publisher{ch: ch, seq: seq, producer: producer, logger: logger, now: time.Now}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// Notify publishes the current state of a document as DocumentChanged.
func (p *Publisher) Notify(ctx context.Context, path string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return p.publishDocument(ctx, DocumentChangedPayload{Path: path, Data: data})
}

func (p *Publisher) NotifyDeleted(ctx context.Context, path string) error {
	return p.publishDocument(ctx, DocumentChangedPayload{Path: path, Deleted: true})
}

func (p *Publisher) publishDocument(ctx context.Context, payload DocumentChangedPayload) error {
	meta, err := p.meta(ctx, EventTypeDocumentChanged, documentChangedSchema, payload.Path)
	if err != nil {
		return err
	}
	return p.publish(ctx, DocumentChangedRoutingKey, newEnvelope(meta, payload))
}

func (p *Publisher) PublishOrderCreated(ctx context.Context, o order.Order) error {
	meta, err := p.meta(ctx, EventTypeOrderCreated, orderCreatedSchema, o.ID)
	if err != nil {
		return err
	}
	return p.publish(ctx, OrderCreatedRoutingKey, newEnvelope(meta, orderCreatedPayload(o)))
}

func (p *Publisher) PublishOrderStatusChanged(ctx context.Context, o order.Order, from order.Status) error {
	meta, err := p.meta(ctx, EventTypeOrderStatusChanged, orderStatusChangedSchema, o.ID)
	if err != nil {
		return err
	}
	payload := orderStatusChangedPayload(o, from, meta.OccurredAt)
	return p.publish(ctx, OrderStatusChangedRoutingKey, newEnvelope(meta, payload))
}

func (p *Publisher) meta(ctx context.Context, name, schema, partitionKey string) (envelopeMeta, error) {
	seq, err := p.seq.NextSequence(ctx, partitionKey)
	if err != nil {
		return envelopeMeta{}, fmt.Errorf("reserve sequence: %w", err)
	}
	return envelopeMeta{
		Name:          name,
		Schema:        schema,
		Producer:      p.producer,
		PartitionKey:  partitionKey,
		CorrelationID: middleware.GetCorrelationID(ctx),
		Sequence:      seq,
		OccurredAt:    p.now().UTC(),
	}, nil
}

func (p *Publisher) publish(ctx context.Context, routingKey string, env any) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", routingKey, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(
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
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	p.logger.Debug().Str("routing_key", routingKey).Msg("event published")
	return nil
}

// LogPublisher stands in for Publisher when RabbitMQ is not configured:
// order events are only logged.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) LogPublisher {
	return LogPublisher{logger: logger}
}

func (l LogPublisher) PublishOrderCreated(_ context.Context, o order.Order) error {
	l.logger.Info().Str("event", EventTypeOrderCreated).Str("order_id", o.ID).Msg("order event")
	return nil
}

func (l LogPublisher) PublishOrderStatusChanged(_ context.Context, o order.Order, from order.Status) error {
	l.logger.Info().Str("event", EventTypeOrderStatusChanged).Str("order_id", o.ID).
		Str("from", string(from)).Str("to", string(o.Status)).Msg("order event")
	return nil
}
