package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nagulan13/oboma/internal/apperr"
)

func TestNext(t *testing.T) {
	cases := map[Status]Status{
		StatusPending:        StatusPreparing,
		StatusPreparing:      StatusReadyForPickup,
		StatusReadyForPickup: StatusCompleted,
	}
	for from, want := range cases {
		got, ok := Next(from)
		require.True(t, ok, from)
		assert.Equal(t, want, got)
	}

	_, ok := Next(StatusCompleted)
	assert.False(t, ok)
	_, ok = Next(StatusCancelled)
	assert.False(t, ok)
}

func TestValidateTransition(t *testing.T) {
	require.NoError(t, ValidateTransition(StatusPending, StatusPreparing))
	require.NoError(t, ValidateTransition(StatusReadyForPickup, StatusCompleted))
	require.NoError(t, ValidateTransition(StatusPending, StatusCancelled))
	require.NoError(t, ValidateTransition(StatusPreparing, StatusCancelled))

	rejected := [][2]Status{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusReadyForPickup},
		{StatusPreparing, StatusPending},
		{StatusCompleted, StatusCompleted},
		{StatusReadyForPickup, StatusCancelled},
		{StatusCancelled, StatusPending},
	}
	for _, tr := range rejected {
		require.ErrorIs(t, ValidateTransition(tr[0], tr[1]), apperr.ErrInvalidTransition, "%s -> %s", tr[0], tr[1])
	}
}

func TestStatusColor(t *testing.T) {
	assert.Equal(t, "#FFA500", StatusColor(StatusPending))
	assert.Equal(t, "#1E90FF", StatusColor(StatusPreparing))
	assert.Equal(t, "#32CD32", StatusColor(StatusReadyForPickup))
	assert.Equal(t, "#8B4513", StatusColor(StatusCompleted))
	assert.Equal(t, "#808080", StatusColor(StatusCancelled))
}
