package feedback

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Nagulan13/oboma/internal/apperr"
	"github.com/Nagulan13/oboma/internal/order"
)

type OrderLookup interface {
	GetByID(ctx context.Context, orderID string) (order.Order, error)
}

// Notifier publishes document snapshots to subscribers.
type Notifier interface {
	Notify(ctx context.Context, path string, doc any) error
	NotifyDeleted(ctx context.Context, path string) error
}

type Service struct {
	repo     Repository
	orders   OrderLookup
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, orders OrderLookup, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{repo: repo, orders: orders, notifier: notifier, logger: logger, now: time.Now}
}

// Eligible reports whether customerID may rate itemID of orderID: the order is
// theirs, completed, contains the item and has not been rated for it yet.
func (s *Service) Eligible(ctx context.Context, customerID, orderID, itemID string) (bool, error) {
	if customerID == "" {
		return false, apperr.ErrUnauthenticated
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if o.CustomerID != customerID || o.Status != order.StatusCompleted || !o.HasItem(itemID) {
		return false, nil
	}
	exists, err := s.repo.Exists(ctx, orderID, itemID)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

type Submission struct {
	OrderID string `json:"orderId"`
	ItemID  string `json:"itemId"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (s *Service) Submit(ctx context.Context, customerID string, in Submission) (Feedback, error) {
	switch {
	case in.OrderID == "":
		return Feedback{}, apperr.Invalid("orderId", "is required")
	case in.ItemID == "":
		return Feedback{}, apperr.Invalid("itemId", "is required")
	case in.Rating < 1 || in.Rating > 5:
		return Feedback{}, apperr.Invalid("rating", "must be between 1 and 5")
	}

	ok, err := s.Eligible(ctx, customerID, in.OrderID, in.ItemID)
	if err != nil {
		return Feedback{}, err
	}
	if !ok {
		return Feedback{}, apperr.Invalid("orderId", "item is not eligible for feedback")
	}

	f := Feedback{
		ID:         uuid.NewString(),
		ItemID:     in.ItemID,
		OrderID:    in.OrderID,
		CustomerID: customerID,
		Rating:     in.Rating,
		Comment:    strings.TrimSpace(in.Comment),
		CreatedAt:  s.now().UTC(),
		Visible:    true,
	}
	written, err := s.repo.Insert(ctx, f)
	if err != nil {
		return Feedback{}, err
	}
	if !written {
		return Feedback{}, apperr.Invalid("orderId", "feedback already submitted for this item")
	}

	s.publish(ctx, f)
	return f, nil
}

// SetVisible hides or shows feedback on the menu.
func (s *Service) SetVisible(ctx context.Context, id string, visible bool) (Feedback, error) {
	f, err := s.repo.SetVisible(ctx, id, visible)
	if err != nil {
		return Feedback{}, err
	}
	s.publish(ctx, f)
	return f, nil
}

// ListVisible returns the public view of an item's visible feedback.
func (s *Service) ListVisible(ctx context.Context, itemID string) ([]PublicFeedback, error) {
	rows, err := s.repo.ListByItem(ctx, itemID, true)
	if err != nil {
		return nil, err
	}
	out := make([]PublicFeedback, 0, len(rows))
	for _, f := range rows {
		out = append(out, f.Public())
	}
	return out, nil
}

func (s *Service) List(ctx context.Context) ([]Feedback, error) {
	return s.repo.List(ctx)
}

// publish feeds the public feedback stream; hidden feedback leaves it.
func (s *Service) publish(ctx context.Context, f Feedback) {
	var err error
	if f.Visible {
		err = s.notifier.Notify(ctx, Path(f.ID), f.Public())
	} else {
		err = s.notifier.NotifyDeleted(ctx, Path(f.ID))
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("feedback_id", f.ID).Msg("notify feedback change")
	}
}
