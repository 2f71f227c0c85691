// Package checkout drives a payment attempt from cart to committed order.
//
// The commit sequence writes the order, then the payment, then deletes the
// cart. These are independent writes: when the payment write fails after the
// order exists the order is flagged for manual reconciliation and the attempt
// fails with ErrCommit. Nothing is retried.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Nagulan13/oboma/internal/apperr"
	"github.com/Nagulan13/oboma/internal/cart"
	"github.com/Nagulan13/oboma/internal/clients"
	"github.com/Nagulan13/oboma/internal/money"
	"github.com/Nagulan13/oboma/internal/order"
	"github.com/Nagulan13/oboma/internal/payment"
)

type Carts interface {
	Get(ctx context.Context, userID string) (cart.Cart, error)
	Clear(ctx context.Context, userID string) error
}

type Gateway interface {
	CreatePaymentSheet(ctx context.Context, amount int64) (clients.PaymentSession, error)
	PublishableKey(ctx context.Context) (string, error)
}

type Orders interface {
	Create(ctx context.Context, o *order.Order) error
	FlagReconciliation(ctx context.Context, orderID, reason string) error
}

type Payments interface {
	Create(ctx context.Context, p payment.Payment) error
}

// Notifier publishes document snapshots to subscribers.
type Notifier interface {
	Notify(ctx context.Context, path string, doc any) error
}

type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, o order.Order) error
}

type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeCancelled
	OutcomeFailed
)

// PaymentResult is what the hosted payment UI reports back.
type PaymentResult struct {
	Outcome Outcome
	// TransactionID is the gateway id of the captured payment. Empty means
	// the id is derived from the session's payment intent.
	TransactionID string
	Message       string
}

// PaymentPresenter shows the hosted payment sheet for a session and blocks
// until the user finishes or dismisses it.
type PaymentPresenter interface {
	Present(ctx context.Context, s clients.PaymentSession) (PaymentResult, error)
}

type Deps struct {
	Carts    Carts
	Gateway  Gateway
	Orders   Orders
	Payments Payments
	Notifier Notifier
	Events   EventPublisher
}

type Orchestrator struct {
	deps     Deps
	attempts *registry
	logger   zerolog.Logger
	now      func() time.Time
}

func NewOrchestrator(deps Deps, attemptTTL time.Duration, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		deps:     deps,
		attempts: newRegistry(attemptTTL),
		logger:   logger,
		now:      time.Now,
	}
}

func (o *Orchestrator) PublishableKey(ctx context.Context) (string, error) {
	return o.deps.Gateway.PublishableKey(ctx)
}

// Run drives one attempt end to end with the given presenter.
func (o *Orchestrator) Run(ctx context.Context, userID string, presenter PaymentPresenter) (Attempt, error) {
	a, err := o.start(ctx, userID)
	if err != nil {
		return a, err
	}

	res, err := presenter.Present(ctx, *a.Session)
	switch {
	case ctx.Err() != nil, err == nil && res.Outcome == OutcomeCancelled:
		return o.fail(a, ReasonUserCancelled, apperr.ErrUserCancelled)
	case err != nil:
		return o.fail(a, ReasonPaymentSession, fmt.Errorf("%w: %v", apperr.ErrPaymentSession, err))
	case res.Outcome != OutcomeCompleted:
		return o.fail(a, ReasonPaymentSession, fmt.Errorf("%w: %s", apperr.ErrPaymentSession, res.Message))
	}

	a.State = StateConfirming
	return o.commit(ctx, a, res.TransactionID)
}

// Begin starts an attempt whose payment sheet is presented by the client
// app. The attempt waits in the registry for Confirm or Cancel.
func (o *Orchestrator) Begin(ctx context.Context, userID string) (Attempt, error) {
	a, err := o.start(ctx, userID)
	if a.ID != "" {
		o.attempts.put(a)
	}
	return a, err
}

// Confirm commits an awaiting attempt after the client reports a successful
// payment. A non-empty paymentIntentID must be the intent of the attempt's own
// session. Confirming a committed attempt returns it unchanged.
func (o *Orchestrator) Confirm(ctx context.Context, userID, attemptID, paymentIntentID string) (Attempt, error) {
	if userID == "" {
		return Attempt{}, apperr.ErrUnauthenticated
	}
	existing, err := o.owned(userID, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if paymentIntentID != "" && existing.Session != nil && paymentIntentID != intentID(existing.Session.PaymentIntent) {
		return existing, apperr.Invalid("paymentIntentId", "does not belong to this checkout attempt")
	}
	if existing.State == StateCommitted {
		return existing, nil
	}

	a, ok := o.attempts.claim(attemptID, StateAwaitingPayment, StateConfirming, o.now())
	if !ok {
		return existing, apperr.Invalid("attemptId", fmt.Sprintf("attempt is %s", existing.State))
	}
	a.State = StateConfirming

	a, err = o.commit(ctx, a, paymentIntentID)
	o.attempts.put(a)
	return a, err
}

// Cancel records that the user dismissed the payment sheet.
func (o *Orchestrator) Cancel(_ context.Context, userID, attemptID string) (Attempt, error) {
	if userID == "" {
		return Attempt{}, apperr.ErrUnauthenticated
	}
	existing, err := o.owned(userID, attemptID)
	if err != nil {
		return Attempt{}, err
	}

	a, ok := o.attempts.claim(attemptID, StateAwaitingPayment, StateFailed, o.now())
	if !ok {
		return existing, apperr.Invalid("attemptId", fmt.Sprintf("attempt is %s", existing.State))
	}
	a, _ = o.fail(a, ReasonUserCancelled, apperr.ErrUserCancelled)
	o.attempts.put(a)
	return a, nil
}

// Get returns an attempt owned by userID.
func (o *Orchestrator) Get(userID, attemptID string) (Attempt, error) {
	if userID == "" {
		return Attempt{}, apperr.ErrUnauthenticated
	}
	return o.owned(userID, attemptID)
}

// SweepExpired drops attempts idle for longer than the TTL.
func (o *Orchestrator) SweepExpired() int {
	return o.attempts.sweep(o.now())
}

// RunSweeper sweeps expired attempts every interval until ctx is done.
func (o *Orchestrator) RunSweeper(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := o.SweepExpired(); n > 0 {
				o.logger.Debug().Int("count", n).Msg("expired checkout attempts removed")
			}
		}
	}
}

func (o *Orchestrator) owned(userID, attemptID string) (Attempt, error) {
	a, ok := o.attempts.get(attemptID)
	if !ok || a.UserID != userID {
		return Attempt{}, fmt.Errorf("checkout attempt %s: %w", attemptID, apperr.ErrNotFound)
	}
	return a, nil
}

// start runs Idle -> FetchingSession -> AwaitingPayment.
func (o *Orchestrator) start(ctx context.Context, userID string) (Attempt, error) {
	now := o.now()
	a := Attempt{ID: uuid.NewString(), UserID: userID, State: StateIdle, CreatedAt: now, UpdatedAt: now}
	if userID == "" {
		return o.fail(a, ReasonUnauthenticated, apperr.ErrUnauthenticated)
	}

	c, err := o.deps.Carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return o.fail(a, ReasonNotFound, err)
		}
		return o.fail(a, ReasonPaymentSession, err)
	}
	a.cart = c
	a.Amount = cart.PayableAmount(c)
	if a.Amount <= 0 {
		return o.fail(a, ReasonValidation, apperr.Invalid("amount", "payable amount must be positive"))
	}

	a.State = StateFetchingSession
	s, err := o.deps.Gateway.CreatePaymentSheet(ctx, a.Amount)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			return o.fail(a, ReasonValidation, err)
		}
		if !errors.Is(err, apperr.ErrPaymentSession) {
			err = fmt.Errorf("%w: %v", apperr.ErrPaymentSession, err)
		}
		return o.fail(a, ReasonPaymentSession, err)
	}

	a.Session = &s
	a.State = StateAwaitingPayment
	a.UpdatedAt = o.now()
	o.logger.Info().Str("attempt_id", a.ID).Str("user_id", userID).Int64("amount", a.Amount).Msg("payment session ready")
	return a, nil
}

// commit runs the Confirming step for an attempt whose payment succeeded.
func (o *Orchestrator) commit(ctx context.Context, a Attempt, transactionID string) (Attempt, error) {
	if transactionID == "" && a.Session != nil {
		transactionID = intentID(a.Session.PaymentIntent)
	}
	now := o.now().UTC()
	log := o.logger.With().Str("attempt_id", a.ID).Str("user_id", a.UserID).Str("payment_id", transactionID).Logger()

	ord := order.Order{
		ID:         uuid.NewString(),
		CustomerID: a.UserID,
		Items:      snapshotLines(a.cart),
		TotalPrice: money.FromMinor(a.Amount),
		OrderDate:  now,
		Status:     order.StatusPending,
	}
	if err := o.deps.Orders.Create(ctx, &ord); err != nil {
		// Money is captured but nothing records it.
		log.Error().Err(err).Int64("amount", a.Amount).Msg("order write failed after payment capture")
		return o.fail(a, ReasonCommit, fmt.Errorf("%w: write order: %v", apperr.ErrCommit, err))
	}
	a.OrderID = ord.ID
	log = log.With().Str("order_id", ord.ID).Logger()

	pay := payment.Payment{
		ID:              transactionID,
		CustomerID:      a.UserID,
		OrderID:         ord.ID,
		TotalAmount:     ord.TotalPrice,
		PaymentStatus:   payment.StatusPaid,
		PaymentDate:     now,
		InvoiceID:       ord.ID,
		PaymentIntentID: transactionID,
	}
	if err := o.deps.Payments.Create(ctx, pay); err != nil {
		reason := fmt.Sprintf("payment %s not recorded: %v", transactionID, err)
		if ferr := o.deps.Orders.FlagReconciliation(ctx, ord.ID, reason); ferr != nil {
			log.Error().Err(ferr).Msg("flag order for reconciliation")
		}
		log.Error().Err(err).Msg("payment write failed after order write; order flagged for reconciliation")
		return o.fail(a, ReasonCommit, fmt.Errorf("%w: write payment: %v", apperr.ErrCommit, err))
	}

	if err := o.deps.Carts.Clear(ctx, a.UserID); err != nil {
		log.Error().Err(err).Msg("cart not deleted after committed order")
	}

	a.State = StateCommitted
	a.UpdatedAt = o.now()
	log.Info().Float64("total_price", ord.TotalPrice).Msg("order committed")

	if err := o.deps.Notifier.Notify(ctx, order.Path(ord.ID), ord); err != nil {
		log.Warn().Err(err).Msg("notify order")
	}
	if err := o.deps.Notifier.Notify(ctx, payment.Path(pay.ID), pay); err != nil {
		log.Warn().Err(err).Msg("notify payment")
	}
	if err := o.deps.Events.PublishOrderCreated(ctx, ord); err != nil {
		log.Warn().Err(err).Msg("publish OrderCreated")
	}
	return a, nil
}

func (o *Orchestrator) fail(a Attempt, reason FailureReason, err error) (Attempt, error) {
	a.State = StateFailed
	a.Reason = reason
	a.Message = err.Error()
	a.UpdatedAt = o.now()
	if reason == ReasonUserCancelled {
		o.logger.Info().Str("attempt_id", a.ID).Msg("payment sheet dismissed")
	} else if reason != ReasonCommit {
		o.logger.Warn().Err(err).Str("attempt_id", a.ID).Str("reason", string(reason)).Msg("checkout failed")
	}
	return a, err
}

func snapshotLines(c cart.Cart) []order.Item {
	items := make([]order.Item, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, order.Item{
			MenuItemID:     it.MenuItemID,
			Name:           it.Name,
			UnitPrice:      it.UnitPrice,
			Quantity:       it.Quantity,
			SpecialRequest: it.SpecialRequest,
			ImageURL:       it.ImageURL,
		})
	}
	return items
}

// intentID strips the client secret suffix: "pi_123_secret_abc" -> "pi_123".
func intentID(clientSecret string) string {
	if i := strings.Index(clientSecret, "_secret_"); i > 0 {
		return clientSecret[:i]
	}
	return clientSecret
}
