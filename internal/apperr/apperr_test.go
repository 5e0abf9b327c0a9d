package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageWrapsCause(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Storage(cause)

	assert.ErrorIs(t, err, ErrStorage)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsBusiness(t *testing.T) {
	assert.True(t, IsBusiness(ErrEmptyCart))
	assert.True(t, IsBusiness(ErrInsufficientStock))
	assert.True(t, IsBusiness(fmt.Errorf("checkout: %w", ErrInvalidTransition)))

	assert.False(t, IsBusiness(ErrNotFound))
	assert.False(t, IsBusiness(ErrUnauthenticated))
	assert.False(t, IsBusiness(Storage(errors.New("boom"))))
}
