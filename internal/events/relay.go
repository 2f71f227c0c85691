package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/Nagulan13/oboma/internal/realtime"
)

// Sink receives relayed snapshots; *realtime.Hub satisfies it.
type Sink interface {
	Publish(s realtime.Snapshot) bool
}

// Relay binds an exclusive queue to DocumentChanged events and feeds every
// delivery into the local hub.
type Relay struct {
	conn   *amqp.Connection
	sink   Sink
	logger zerolog.Logger
}

func NewRelay(conn *amqp.Connection, sink Sink, logger zerolog.Logger) *Relay {
	return &Relay{conn: conn, sink: sink, logger: logger}
}

// Run consumes until ctx is done or the channel closes.
func (r *Relay) Run(ctx context.Context) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := declareEventsExchange(ch); err != nil {
		return fmt.Errorf("declare events exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, DocumentChangedRoutingKey, EventsExchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",    // consumer tag
		true,  // autoAck
		true,  // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	r.logger.Info().Str("queue", q.Name).Msg("document relay started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("stopping document relay")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("document relay: deliveries channel closed")
			}
			if err := r.handle(msg.Body); err != nil {
				r.logger.Warn().Err(err).Msg("drop document event")
			}
		}
	}
}

func (r *Relay) handle(body []byte) error {
	s, err := decodeDocumentChanged(body)
	if err != nil {
		return err
	}
	r.sink.Publish(s)
	return nil
}

func decodeDocumentChanged(body []byte) (realtime.Snapshot, error) {
	var env EventEnvelope[DocumentChangedPayload]
	if err := json.Unmarshal(body, &env); err != nil {
		return realtime.Snapshot{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := env.Validate(EventTypeDocumentChanged, 1); err != nil {
		return realtime.Snapshot{}, err
	}
	if env.Payload.Path != env.PartitionKey {
		return realtime.Snapshot{}, fmt.Errorf("path %q does not match partitionKey %q", env.Payload.Path, env.PartitionKey)
	}
	return realtime.Snapshot{
		Path:     env.Payload.Path,
		Data:     env.Payload.Data,
		Deleted:  env.Payload.Deleted,
		Sequence: env.Sequence,
		At:       env.OccurredAt,
	}, nil
}
