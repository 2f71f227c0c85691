// Package feedback stores ratings customers leave for items of completed orders.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Nagulan13/oboma/internal/apperr"
	"github.com/Nagulan13/oboma/internal/db"
)

type Feedback struct {
	ID         string    `json:"feedbackId"`
	ItemID     string    `json:"itemId"`
	OrderID    string    `json:"orderId"`
	CustomerID string    `json:"customerId"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"createdAt"`
	Visible    bool      `json:"visible"`
}

// PublicFeedback is what the menu shows: no customer or order identifiers.
type PublicFeedback struct {
	ID        string    `json:"feedbackId"`
	ItemID    string    `json:"itemId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

func (f Feedback) Public() PublicFeedback {
	return PublicFeedback{ID: f.ID, ItemID: f.ItemID, Rating: f.Rating, Comment: f.Comment, CreatedAt: f.CreatedAt}
}

func Path(id string) string { return "feedback/" + id }

type Repository interface {
	// Insert stores f unless feedback for the same order line exists and
	// reports whether a row was written.
	Insert(ctx context.Context, f Feedback) (bool, error)
	Exists(ctx context.Context, orderID, itemID string) (bool, error)
	SetVisible(ctx context.Context, id string, visible bool) (Feedback, error)
	ListByItem(ctx context.Context, itemID string, visibleOnly bool) ([]Feedback, error)
	List(ctx context.Context) ([]Feedback, error)
}

type PostgresRepository struct {
	pool db.DBPool
}

func NewPostgresRepository(pool db.DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectFeedback = `SELECT id, item_id, order_id, customer_id, rating, comment, created_at, visible FROM feedback`

func scanFeedback(row pgx.Row) (Feedback, error) {
	var f Feedback
	err := row.Scan(&f.ID, &f.ItemID, &f.OrderID, &f.CustomerID, &f.Rating, &f.Comment, &f.CreatedAt, &f.Visible)
	return f, err
}

func (r *PostgresRepository) Insert(ctx context.Context, f Feedback) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO feedback (id, item_id, order_id, customer_id, rating, comment, created_at, visible)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (order_id, item_id) DO NOTHING
	`, f.ID, f.ItemID, f.OrderID, f.CustomerID, f.Rating, f.Comment, f.CreatedAt, f.Visible)
	if err != nil {
		return false, fmt.Errorf("insert feedback: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, orderID, itemID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM feedback WHERE order_id=$1 AND item_id=$2)`, orderID, itemID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check feedback: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) SetVisible(ctx context.Context, id string, visible bool) (Feedback, error) {
	f, err := scanFeedback(r.pool.QueryRow(ctx, `
		UPDATE feedback SET visible=$2 WHERE id=$1
		RETURNING id, item_id, order_id, customer_id, rating, comment, created_at, visible
	`, id, visible))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Feedback{}, fmt.Errorf("feedback %s: %w", id, apperr.ErrNotFound)
		}
		return Feedback{}, fmt.Errorf("update feedback visibility: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) ListByItem(ctx context.Context, itemID string, visibleOnly bool) ([]Feedback, error) {
	if visibleOnly {
		return r.list(ctx, selectFeedback+` WHERE item_id=$1 AND visible ORDER BY created_at DESC`, itemID)
	}
	return r.list(ctx, selectFeedback+` WHERE item_id=$1 ORDER BY created_at DESC`, itemID)
}

func (r *PostgresRepository) List(ctx context.Context) ([]Feedback, error) {
	return r.list(ctx, selectFeedback+` ORDER BY created_at DESC`)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]Feedback, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select feedback: %w", err)
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
