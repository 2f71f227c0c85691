package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorUnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("submit application: %w", Invalid("email", "invalid email format"))

	require.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "email", ve.Field)
	assert.Equal(t, "email: invalid email format", ve.Error())
}

func TestValidationErrorWithoutField(t *testing.T) {
	err := Invalid("", "amount must be positive")
	assert.Equal(t, "amount must be positive", err.Error())
}
