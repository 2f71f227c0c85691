package checkout

import (
	"sync"
	"time"

	"github.com/Nagulan13/oboma/internal/cart"
	"github.com/Nagulan13/oboma/internal/clients"
)

type State string

const (
	StateIdle            State = "idle"
	StateFetchingSession State = "fetching_session"
	StateAwaitingPayment State = "awaiting_payment"
	StateConfirming      State = "confirming"
	StateCommitted       State = "committed"
	StateFailed          State = "failed"
)

func (s State) Terminal() bool { return s == StateCommitted || s == StateFailed }

type FailureReason string

const (
	ReasonPaymentSession  FailureReason = "payment_session_error"
	ReasonUserCancelled   FailureReason = "user_cancelled"
	ReasonCommit          FailureReason = "commit_error"
	ReasonValidation      FailureReason = "validation_error"
	ReasonUnauthenticated FailureReason = "unauthenticated"
	ReasonNotFound        FailureReason = "not_found"
)

// Attempt is one pass through the checkout state machine.
type Attempt struct {
	ID      string                  `json:"attemptId"`
	UserID  string                  `json:"userId"`
	State   State                   `json:"state"`
	Reason  FailureReason           `json:"reason,omitempty"`
	Message string                  `json:"message,omitempty"`
	Amount  int64                   `json:"amount"`
	Session *clients.PaymentSession `json:"session,omitempty"`
	// OrderID is the invoice key once an order was written.
	OrderID   string    `json:"orderId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// cart is the snapshot the amount was computed from; the order is
	// written from it, not from the live cart.
	cart cart.Cart
}

// registry holds in-flight attempts of the HTTP driven flow.
type registry struct {
	mu       sync.Mutex
	attempts map[string]*Attempt
	ttl      time.Duration
}

func newRegistry(ttl time.Duration) *registry {
	return &registry{attempts: make(map[string]*Attempt), ttl: ttl}
}

func (r *registry) put(a Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[a.ID] = &a
}

func (r *registry) get(id string) (Attempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return Attempt{}, false
	}
	return *a, true
}

// claim moves an attempt from one state to another atomically and returns
// the attempt as it was before the move.
func (r *registry) claim(id string, from, to State, at time.Time) (Attempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok || a.State != from {
		return Attempt{}, false
	}
	prev := *a
	a.State = to
	a.UpdatedAt = at
	return prev, true
}

// sweep drops attempts older than the TTL and reports how many went.
func (r *registry) sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, a := range r.attempts {
		if now.Sub(a.UpdatedAt) > r.ttl && a.State != StateConfirming {
			delete(r.attempts, id)
			n++
		}
	}
	return n
}
