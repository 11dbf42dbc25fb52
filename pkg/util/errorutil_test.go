package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError_PassesThroughWrapped(t *testing.T) {
	wrapped := fmt.Errorf("guard: %w", NewUnauthorized("Invalid token."))

	de := ToDomainError(wrapped)
	require.NotNil(t, de)
	assert.Equal(t, http.StatusUnauthorized, de.HTTPStatus)
	assert.Equal(t, map[string]any{"message": "Unauthorized", "reason": "Invalid token."}, de.Body())
}

func TestToDomainError_CollapsesUnknownToInternal(t *testing.T) {
	cause := errors.New("pq: connection refused")

	de := ToDomainError(cause)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.ErrorIs(t, de, cause)
	assert.Equal(t, map[string]any{"message": MessageInternal}, de.Body())
	assert.NotContains(t, fmt.Sprint(de.Body()), "connection refused")
}

func TestToDomainError_Nil(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
}
