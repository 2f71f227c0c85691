package menu

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nagulan13/oboma/internal/apperr"
)

var itemColumns = []string{"id", "name", "description", "category", "price", "image_url", "available", "updated_at"}

func TestPostgresRepository_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, name, .* FROM menu_items WHERE id=\$1`).
		WithArgs("m1").
		WillReturnRows(mock.NewRows(itemColumns).AddRow("m1", "Nasi Lemak", "", "Mains", 8.5, "", true, now))

	it, err := NewPostgresRepository(mock).Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Nasi Lemak", it.Name)
	assert.Equal(t, 8.5, it.Price)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM menu_items WHERE id=\$1`).
		WithArgs("nope").
		WillReturnRows(mock.NewRows(itemColumns))

	_, err = NewPostgresRepository(mock).Get(context.Background(), "nope")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPostgresRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM menu_items ORDER BY category, name`).
		WillReturnRows(mock.NewRows(itemColumns).
			AddRow("m1", "Nasi Lemak", "", "Mains", 8.5, "", true, now).
			AddRow("d1", "Teh Tarik", "", "Drinks", 3.0, "", true, now))

	items, err := NewPostgresRepository(mock).List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "d1", items[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	in := Item{ID: "m1", Name: "Nasi Lemak", Category: "Mains", Price: 9, Available: true}
	mock.ExpectQuery(`INSERT INTO menu_items`).
		WithArgs(in.ID, in.Name, in.Description, in.Category, in.Price, in.ImageURL, in.Available).
		WillReturnRows(mock.NewRows([]string{"updated_at"}).AddRow(now))

	saved, err := NewPostgresRepository(mock).Upsert(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, now, saved.UpdatedAt)

	mock.ExpectQuery(`INSERT INTO menu_items`).
		WithArgs(in.ID, in.Name, in.Description, in.Category, in.Price, in.ImageURL, in.Available).
		WillReturnError(errors.New("down"))
	_, err = NewPostgresRepository(mock).Upsert(context.Background(), in)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM menu_items WHERE id=\$1`).
		WithArgs("m1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM menu_items WHERE id=\$1`).
		WithArgs("nope").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewPostgresRepository(mock)
	require.NoError(t, repo.Delete(context.Background(), "m1"))
	require.ErrorIs(t, repo.Delete(context.Background(), "nope"), apperr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
