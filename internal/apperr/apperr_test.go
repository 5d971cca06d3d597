package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("fulfill: %w", InsufficientStock("product %s has %d", "8991", 3))

	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.False(t, errors.Is(err, ErrInsufficientAvailableStock))
	assert.True(t, Is(err, KindInsufficientStock))
	assert.Equal(t, KindInsufficientStock, KindOf(err))
}

func TestStorageMessageIsOpaque(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.3:5432: connection refused")
	err := Storage(cause)

	assert.Equal(t, "internal storage error", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, errors.Is(err, ErrStorage))
}

func TestKindOfUnknownErrorIsStorage(t *testing.T) {
	assert.Equal(t, KindStorage, KindOf(errors.New("boom")))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil))

	nf := NotFound("product not found")
	assert.Same(t, nf, Wrap(nf))

	wrapped := Wrap(errors.New("disk full"))
	assert.True(t, Is(wrapped, KindStorage))
}

func TestConflictKeepsCause(t *testing.T) {
	cause := errors.New("lock timeout")
	err := Conflict(cause, "product %d is busy", 7)

	assert.Equal(t, "product 7 is busy: lock timeout", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrValidation))
}

func TestValidationSentinel(t *testing.T) {
	err := fmt.Errorf("reset: %w", Validation("password must be at least %d characters", 8))

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrNotFound))
}
