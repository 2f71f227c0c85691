package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Nagulan13/oboma/internal/apperr"
)

const StatusPaid = "Paid"

// Payment records a captured charge. ID is the gateway transaction id and
// InvoiceID equals the order id. Payments are append-only.
type Payment struct {
	ID              string    `json:"paymentId"`
	CustomerID      string    `json:"customerId"`
	OrderID         string    `json:"orderId"`
	TotalAmount     float64   `json:"totalAmount"`
	PaymentStatus   string    `json:"paymentStatus"`
	PaymentDate     time.Time `json:"paymentDate"`
	InvoiceID       string    `json:"invoiceId"`
	PaymentIntentID string    `json:"paymentIntentId,omitempty"`
}

func Path(id string) string { return "payment/" + id }

type Repository interface {
	Create(ctx context.Context, p Payment) error
	GetByOrder(ctx context.Context, orderID string) (Payment, error)
	// ListByCustomer returns the customer's latest payments, newest first.
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]Payment, error)
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, p Payment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (id, order_id, customer_id, amount, payment_status, invoice_id, payment_intent_id, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.OrderID, p.CustomerID, p.TotalAmount, p.PaymentStatus, p.InvoiceID, p.PaymentIntentID, p.PaymentDate,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

const selectPayment = `SELECT id, order_id, customer_id, amount, payment_status, invoice_id, payment_intent_id, created_at
         FROM payments`

type scanner interface {
	Scan(dest ...any) error
}

func scanPayment(row scanner) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.CustomerID, &p.TotalAmount, &p.PaymentStatus, &p.InvoiceID, &p.PaymentIntentID, &p.PaymentDate)
	return p, err
}

func (r *repo) GetByOrder(ctx context.Context, orderID string) (Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, selectPayment+` WHERE order_id = $1`, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Payment{}, fmt.Errorf("payment for order %s: %w", orderID, apperr.ErrNotFound)
		}
		return Payment{}, fmt.Errorf("select payment: %w", err)
	}
	return p, nil
}

func (r *repo) ListByCustomer(ctx context.Context, customerID string, limit int) ([]Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		selectPayment+` WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2`,
		customerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	out := []Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
