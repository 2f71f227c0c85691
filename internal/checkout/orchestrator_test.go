package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nagulan13/oboma/internal/apperr"
	"github.com/Nagulan13/oboma/internal/cart"
	"github.com/Nagulan13/oboma/internal/clients"
	"github.com/Nagulan13/oboma/internal/order"
	"github.com/Nagulan13/oboma/internal/payment"
)

type fakeCarts struct {
	carts    map[string]cart.Cart
	clearErr error
	cleared  []string
}

func (f *fakeCarts) Get(_ context.Context, userID string) (cart.Cart, error) {
	c, ok := f.carts[userID]
	if !ok {
		return cart.Cart{}, apperr.ErrNotFound
	}
	return c, nil
}

func (f *fakeCarts) Clear(_ context.Context, userID string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared = append(f.cleared, userID)
	delete(f.carts, userID)
	return nil
}

type fakeGateway struct {
	calls   int
	amounts []int64
	err     error
}

func (g *fakeGateway) CreatePaymentSheet(_ context.Context, amount int64) (clients.PaymentSession, error) {
	g.calls++
	g.amounts = append(g.amounts, amount)
	if g.err != nil {
		return clients.PaymentSession{}, g.err
	}
	return clients.PaymentSession{PaymentIntent: "pi_123_secret_abc", EphemeralKey: "ek_1", Customer: "cus_1"}, nil
}

func (g *fakeGateway) PublishableKey(context.Context) (string, error) { return "pk_test", nil }

type fakeOrders struct {
	created []order.Order
	flagged map[string]string
	err     error
}

func (f *fakeOrders) Create(_ context.Context, o *order.Order) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *o)
	return nil
}

func (f *fakeOrders) FlagReconciliation(_ context.Context, orderID, reason string) error {
	if f.flagged == nil {
		f.flagged = map[string]string{}
	}
	f.flagged[orderID] = reason
	return nil
}

type fakePayments struct {
	created []payment.Payment
	err     error
}

func (f *fakePayments) Create(_ context.Context, p payment.Payment) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, p)
	return nil
}

type recordingNotifier struct{ paths []string }

func (n *recordingNotifier) Notify(_ context.Context, path string, _ any) error {
	n.paths = append(n.paths, path)
	return nil
}

type fakeEvents struct{ created []string }

func (e *fakeEvents) PublishOrderCreated(_ context.Context, o order.Order) error {
	e.created = append(e.created, o.ID)
	return nil
}

type presenterFunc func(context.Context, clients.PaymentSession) (PaymentResult, error)

func (f presenterFunc) Present(ctx context.Context, s clients.PaymentSession) (PaymentResult, error) {
	return f(ctx, s)
}

func completed(id string) PaymentPresenter {
	return presenterFunc(func(context.Context, clients.PaymentSession) (PaymentResult, error) {
		return PaymentResult{Outcome: OutcomeCompleted, TransactionID: id}, nil
	})
}

type fixture struct {
	carts    *fakeCarts
	gateway  *fakeGateway
	orders   *fakeOrders
	payments *fakePayments
	notifier *recordingNotifier
	events   *fakeEvents
	orch     *Orchestrator
}

func newFixture() *fixture {
	f := &fixture{
		carts: &fakeCarts{carts: map[string]cart.Cart{
			"u1": {UserID: "u1", Items: []cart.Item{
				{MenuItemID: "burger", Name: "Burger", UnitPrice: 8.00, Quantity: 2},
				{MenuItemID: "tea", Name: "Teh Tarik", UnitPrice: 2.00, Quantity: 2, SpecialRequest: "less sugar"},
			}},
			"empty": {UserID: "empty"},
		}},
		gateway:  &fakeGateway{},
		orders:   &fakeOrders{},
		payments: &fakePayments{},
		notifier: &recordingNotifier{},
		events:   &fakeEvents{},
	}
	f.orch = NewOrchestrator(Deps{
		Carts:    f.carts,
		Gateway:  f.gateway,
		Orders:   f.orders,
		Payments: f.payments,
		Notifier: f.notifier,
		Events:   f.events,
	}, 30*time.Minute, zerolog.Nop())
	return f
}

func TestRunCommitsOrderAndPayment(t *testing.T) {
	f := newFixture()

	a, err := f.orch.Run(context.Background(), "u1", completed("pi_123"))
	require.NoError(t, err)

	assert.Equal(t, StateCommitted, a.State)
	assert.Equal(t, int64(2000), a.Amount)
	assert.Equal(t, []int64{2000}, f.gateway.amounts)

	require.Len(t, f.orders.created, 1)
	o := f.orders.created[0]
	assert.Equal(t, a.OrderID, o.ID)
	assert.Equal(t, "u1", o.CustomerID)
	assert.Equal(t, 20.0, o.TotalPrice)
	assert.Equal(t, order.StatusPending, o.Status)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "less sugar", o.Items[1].SpecialRequest)

	require.Len(t, f.payments.created, 1)
	p := f.payments.created[0]
	assert.Equal(t, "pi_123", p.ID)
	assert.Equal(t, o.ID, p.InvoiceID)
	assert.Equal(t, o.ID, p.OrderID)
	assert.Equal(t, payment.StatusPaid, p.PaymentStatus)
	assert.Equal(t, 20.0, p.TotalAmount)

	assert.Equal(t, []string{"u1"}, f.carts.cleared)
	assert.Equal(t, []string{order.Path(o.ID), payment.Path("pi_123")}, f.notifier.paths)
	assert.Equal(t, []string{o.ID}, f.events.created)
}

func TestRunDerivesTransactionIDFromIntent(t *testing.T) {
	f := newFixture()

	_, err := f.orch.Run(context.Background(), "u1", completed(""))
	require.NoError(t, err)
	require.Len(t, f.payments.created, 1)
	assert.Equal(t, "pi_123", f.payments.created[0].ID)
}

func TestRunUserCancelledWritesNothing(t *testing.T) {
	f := newFixture()
	cancel := presenterFunc(func(context.Context, clients.PaymentSession) (PaymentResult, error) {
		return PaymentResult{Outcome: OutcomeCancelled}, nil
	})

	a, err := f.orch.Run(context.Background(), "u1", cancel)
	require.ErrorIs(t, err, apperr.ErrUserCancelled)
	assert.Equal(t, StateFailed, a.State)
	assert.Equal(t, ReasonUserCancelled, a.Reason)
	assert.Empty(t, f.orders.created)
	assert.Empty(t, f.payments.created)
	assert.Contains(t, f.carts.carts, "u1")
}

func TestRunContextCancelledIsUserCancelled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	p := presenterFunc(func(ctx context.Context, _ clients.PaymentSession) (PaymentResult, error) {
		cancel()
		return PaymentResult{}, ctx.Err()
	})

	a, err := f.orch.Run(ctx, "u1", p)
	require.ErrorIs(t, err, apperr.ErrUserCancelled)
	assert.Equal(t, ReasonUserCancelled, a.Reason)
}

func TestRunPresenterFailure(t *testing.T) {
	f := newFixture()
	p := presenterFunc(func(context.Context, clients.PaymentSession) (PaymentResult, error) {
		return PaymentResult{Outcome: OutcomeFailed, Message: "card declined"}, nil
	})

	a, err := f.orch.Run(context.Background(), "u1", p)
	require.ErrorIs(t, err, apperr.ErrPaymentSession)
	assert.Equal(t, ReasonPaymentSession, a.Reason)
	assert.Empty(t, f.orders.created)
}

func TestRunGatewayError(t *testing.T) {
	f := newFixture()
	f.gateway.err = errors.New("connection refused")

	a, err := f.orch.Run(context.Background(), "u1", completed("pi_123"))
	require.ErrorIs(t, err, apperr.ErrPaymentSession)
	assert.Equal(t, StateFailed, a.State)
	assert.Equal(t, ReasonPaymentSession, a.Reason)
	assert.Empty(t, f.orders.created)
}

func TestRunEmptyCartNeverCallsGateway(t *testing.T) {
	f := newFixture()

	a, err := f.orch.Run(context.Background(), "empty", completed("pi_123"))
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, ReasonValidation, a.Reason)
	assert.Zero(t, f.gateway.calls)
}

func TestRunMissingCartAndUser(t *testing.T) {
	f := newFixture()

	a, err := f.orch.Run(context.Background(), "nobody", completed("pi_123"))
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, ReasonNotFound, a.Reason)

	a, err = f.orch.Run(context.Background(), "", completed("pi_123"))
	require.ErrorIs(t, err, apperr.ErrUnauthenticated)
	assert.Equal(t, ReasonUnauthenticated, a.Reason)
	assert.Zero(t, f.gateway.calls)
}

func TestRunPaymentWriteFailureFlagsOrder(t *testing.T) {
	f := newFixture()
	f.payments.err = errors.New("db down")

	a, err := f.orch.Run(context.Background(), "u1", completed("pi_123"))
	require.ErrorIs(t, err, apperr.ErrCommit)
	assert.Equal(t, ReasonCommit, a.Reason)

	require.Len(t, f.orders.created, 1)
	orderID := f.orders.created[0].ID
	assert.Equal(t, orderID, a.OrderID)
	assert.Contains(t, f.orders.flagged[orderID], "pi_123")
	assert.Empty(t, f.carts.cleared)
	assert.Empty(t, f.events.created)
}

func TestRunOrderWriteFailure(t *testing.T) {
	f := newFixture()
	f.orders.err = errors.New("db down")

	a, err := f.orch.Run(context.Background(), "u1", completed("pi_123"))
	require.ErrorIs(t, err, apperr.ErrCommit)
	assert.Empty(t, a.OrderID)
	assert.Empty(t, f.payments.created)
	assert.Empty(t, f.carts.cleared)
}

func TestRunCartDeleteFailureStillCommits(t *testing.T) {
	f := newFixture()
	f.carts.clearErr = errors.New("db down")

	a, err := f.orch.Run(context.Background(), "u1", completed("pi_123"))
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, a.State)
	assert.Len(t, f.payments.created, 1)
}

func TestBeginConfirmIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.orch.Begin(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingPayment, a.State)
	require.NotNil(t, a.Session)

	first, err := f.orch.Confirm(ctx, "u1", a.ID, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, first.State)

	second, err := f.orch.Confirm(ctx, "u1", a.ID, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Len(t, f.orders.created, 1)
	assert.Len(t, f.payments.created, 1)
}

func TestConfirmForeignAttemptIsNotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.orch.Begin(ctx, "u1")
	require.NoError(t, err)

	_, err = f.orch.Confirm(ctx, "u2", a.ID, "pi_123")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.orch.Confirm(ctx, "u1", "missing", "pi_123")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, f.orders.created)
}

func TestConfirmRejectsForeignPaymentIntent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.orch.Begin(ctx, "u1")
	require.NoError(t, err)

	_, err = f.orch.Confirm(ctx, "u1", a.ID, "pi_someone_else")
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, f.orders.created)
	assert.Empty(t, f.payments.created)

	still, err := f.orch.Get("u1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingPayment, still.State)

	done, err := f.orch.Confirm(ctx, "u1", a.ID, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, done.State)
	require.Len(t, f.payments.created, 1)
	assert.Equal(t, "pi_123", f.payments.created[0].ID)
}

func TestCancelThenConfirmIsRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.orch.Begin(ctx, "u1")
	require.NoError(t, err)

	cancelled, err := f.orch.Cancel(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, cancelled.State)
	assert.Equal(t, ReasonUserCancelled, cancelled.Reason)

	_, err = f.orch.Confirm(ctx, "u1", a.ID, "pi_123")
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, f.orders.created)
}

func TestConfirmUsesCartSnapshot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.orch.Begin(ctx, "u1")
	require.NoError(t, err)

	c := f.carts.carts["u1"]
	c.Items = append(c.Items, cart.Item{MenuItemID: "cake", UnitPrice: 5, Quantity: 1})
	f.carts.carts["u1"] = c

	_, err = f.orch.Confirm(ctx, "u1", a.ID, "pi_123")
	require.NoError(t, err)
	require.Len(t, f.orders.created, 1)
	assert.Len(t, f.orders.created[0].Items, 2)
	assert.Equal(t, 20.0, f.orders.created[0].TotalPrice)
}

func TestSweepExpired(t *testing.T) {
	f := newFixture()
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	f.orch.now = func() time.Time { return now }

	a, err := f.orch.Begin(context.Background(), "u1")
	require.NoError(t, err)

	assert.Zero(t, f.orch.SweepExpired())

	now = now.Add(31 * time.Minute)
	assert.Equal(t, 1, f.orch.SweepExpired())
	_, err = f.orch.Get("u1", a.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestIntentID(t *testing.T) {
	assert.Equal(t, "pi_123", intentID("pi_123_secret_abc"))
	assert.Equal(t, "pi_123", intentID("pi_123"))
}
