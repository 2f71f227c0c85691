package order

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nagulan13/oboma/internal/apperr"
)

// Notifier publishes document snapshots to subscribers.
type Notifier interface {
	Notify(ctx context.Context, path string, doc any) error
}

// EventPublisher emits integration events for status changes.
type EventPublisher interface {
	PublishOrderStatusChanged(ctx context.Context, o Order, from Status) error
}

// StatusService moves orders through the fulfilment state machine.
type StatusService struct {
	repo      Repository
	notifier  Notifier
	publisher EventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

func NewStatusService(repo Repository, notifier Notifier, publisher EventPublisher, logger zerolog.Logger) *StatusService {
	return &StatusService{repo: repo, notifier: notifier, publisher: publisher, logger: logger, now: time.Now}
}

// Advance moves the order to target, which must be the immediate successor
// of its current status. A concurrent writer that moved the order first
// makes this call fail with ErrInvalidTransition and no write.
func (s *StatusService) Advance(ctx context.Context, orderID string, target Status) (Order, error) {
	if !target.Valid() || target == StatusCancelled {
		return Order{}, apperr.Invalid("status", fmt.Sprintf("unknown target status %q", target))
	}
	return s.transition(ctx, orderID, target, "staff")
}

// Cancel is the administrative path from pending or preparing.
func (s *StatusService) Cancel(ctx context.Context, orderID string) (Order, error) {
	return s.transition(ctx, orderID, StatusCancelled, "admin")
}

func (s *StatusService) transition(ctx context.Context, orderID string, target Status, by string) (Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if err := ValidateTransition(o.Status, target); err != nil {
		return Order{}, err
	}

	now := s.now().UTC()
	changed, err := s.repo.UpdateStatus(ctx, Transition{OrderID: o.ID, From: o.Status, To: target, UpdatedBy: by, At: now})
	if err != nil {
		return Order{}, err
	}
	if !changed {
		return Order{}, fmt.Errorf("%w: order %s is no longer %q", apperr.ErrInvalidTransition, o.ID, o.Status)
	}

	from := o.Status
	o.Status = target
	o.UpdatedAt = &now
	o.UpdatedBy = by
	if target == StatusCompleted && o.PickedUpAt == nil {
		o.PickedUpAt = &now
	}

	s.logger.Info().Str("order_id", o.ID).Str("from", string(from)).Str("to", string(target)).Str("by", by).Msg("order status changed")

	if err := s.notifier.Notify(ctx, Path(o.ID), o); err != nil {
		s.logger.Warn().Err(err).Str("order_id", o.ID).Msg("notify order change")
	}
	if err := s.publisher.PublishOrderStatusChanged(ctx, o, from); err != nil {
		s.logger.Warn().Err(err).Str("order_id", o.ID).Msg("publish OrderStatusChanged")
	}
	return o, nil
}
