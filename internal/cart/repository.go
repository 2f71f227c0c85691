package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Nagulan13/oboma/internal/apperr"
	"github.com/Nagulan13/oboma/internal/db"
)

type Repository interface {
	Get(ctx context.Context, userID string) (Cart, error)
	Replace(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, userID string) error
}

type PostgresRepository struct {
	pool db.DBPool
}

func NewPostgresRepository(pool db.DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (Cart, error) {
	c := Cart{UserID: userID}
	err := r.pool.QueryRow(ctx, `SELECT updated_at FROM carts WHERE user_id=$1`, userID).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cart{}, fmt.Errorf("cart for %s: %w", userID, apperr.ErrNotFound)
		}
		return Cart{}, fmt.Errorf("select cart: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT menu_item_id, name, unit_price, quantity, special_request, image_url
		FROM cart_items WHERE user_id=$1 ORDER BY position`, userID)
	if err != nil {
		return Cart{}, fmt.Errorf("select cart_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.MenuItemID, &it.Name, &it.UnitPrice, &it.Quantity, &it.SpecialRequest, &it.ImageURL); err != nil {
			return Cart{}, fmt.Errorf("scan cart_item: %w", err)
		}
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return Cart{}, fmt.Errorf("rows: %w", err)
	}
	return c, nil
}

// Replace writes the whole cart document: the line array is replaced, never
// patched, so concurrent writers resolve as last-write-wins.
func (r *PostgresRepository) Replace(ctx context.Context, c *Cart) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx, `
		INSERT INTO carts (user_id, updated_at) VALUES ($1, now())
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
		RETURNING updated_at`, c.UserID).Scan(&c.UpdatedAt); err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, c.UserID); err != nil {
		return fmt.Errorf("clear cart_items: %w", err)
	}

	for pos, it := range c.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO cart_items (user_id, position, menu_item_id, name, unit_price, quantity, special_request, image_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.UserID, pos, it.MenuItemID, it.Name, it.UnitPrice, it.Quantity, it.SpecialRequest, it.ImageURL,
		); err != nil {
			return fmt.Errorf("insert cart_item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Delete removes the cart document; deleting a missing cart is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
