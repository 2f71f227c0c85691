// Package events carries document and order changes between storefront
// processes over the RabbitMQ topic exchange.
package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventEnvelope represents the common envelope for all events.
// It is generic to allow strongly typed payloads per event.
type EventEnvelope[T any] struct {
	EventName     string    `json:"eventName"`
	EventVersion  int       `json:"eventVersion"`
	EventID       string    `json:"eventId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Producer      string    `json:"producer"`
	PartitionKey  string    `json:"partitionKey"`
	Sequence      int64     `json:"sequence"`
	OccurredAt    time.Time `json:"occurredAt"`
	Schema        string    `json:"schema"`
	Payload       T         `json:"payload"`
}

// Validate ensures the envelope contains the expected event identity.
func (e EventEnvelope[T]) Validate(expectedName string, expectedVersion int) error {
	if e.EventName != expectedName {
		return fmt.Errorf("unexpected eventName: %s", e.EventName)
	}
	if e.EventVersion != expectedVersion {
		return fmt.Errorf("unexpected eventVersion: %d", e.EventVersion)
	}
	if e.PartitionKey == "" {
		return fmt.Errorf("missing partitionKey")
	}
	if e.Sequence <= 0 {
		return fmt.Errorf("missing sequence")
	}
	return nil
}

type envelopeMeta struct {
	Name          string
	Schema        string
	Producer      string
	PartitionKey  string
	CorrelationID string
	Sequence      int64
	OccurredAt    time.Time
}

func newEnvelope[T any](meta envelopeMeta, payload T) EventEnvelope[T] {
	return EventEnvelope[T]{
		EventName:     meta.Name,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: meta.CorrelationID,
		Producer:      meta.Producer,
		PartitionKey:  meta.PartitionKey,
		Sequence:      meta.Sequence,
		OccurredAt:    meta.OccurredAt,
		Schema:        meta.Schema,
		Payload:       payload,
	}
}
