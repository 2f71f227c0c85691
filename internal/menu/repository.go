package menu

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Nagulan13/oboma/internal/apperr"
	"github.com/Nagulan13/oboma/internal/db"
)

type Repository interface {
	Get(ctx context.Context, id string) (Item, error)
	List(ctx context.Context) ([]Item, error)
	Upsert(ctx context.Context, item Item) (Item, error)
	Delete(ctx context.Context, id string) error
}

type PostgresRepository struct {
	pool db.DBPool
}

func NewPostgresRepository(pool db.DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectItem = `SELECT id, name, description, category, price, image_url, available, updated_at FROM menu_items`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Category, &it.Price, &it.ImageURL, &it.Available, &it.UpdatedAt)
	return it, err
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, selectItem+` WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, fmt.Errorf("menu item %s: %w", id, apperr.ErrNotFound)
		}
		return Item{}, fmt.Errorf("select menu item: %w", err)
	}
	return it, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, selectItem+` ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("select menu: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return items, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, item Item) (Item, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO menu_items (id, name, description, category, price, image_url, available, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name, description=EXCLUDED.description, category=EXCLUDED.category,
			price=EXCLUDED.price, image_url=EXCLUDED.image_url, available=EXCLUDED.available, updated_at=now()
		RETURNING updated_at
	`, item.ID, item.Name, item.Description, item.Category, item.Price, item.ImageURL, item.Available).Scan(&item.UpdatedAt)
	if err != nil {
		return Item{}, fmt.Errorf("upsert menu item: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_items WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("menu item %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
