package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorUnwrapsWrapped(t *testing.T) {
	base := NewInvalidToken("bad token", nil)
	wrapped := fmt.Errorf("validate: %w", base)

	de := ToDomainError(wrapped)
	require.NotNil(t, de)
	assert.Equal(t, CodeInvalidToken, de.Code)
	assert.Equal(t, http.StatusUnauthorized, de.HTTPStatus)
}

func TestToDomainErrorDefaultsToInternal(t *testing.T) {
	de := ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Nil(t, ToDomainError(nil))
}

func TestRateLimitExceededCarriesRetryAfter(t *testing.T) {
	de := ToDomainError(NewRateLimitExceeded("login", 1500*time.Millisecond, nil))
	assert.Equal(t, http.StatusTooManyRequests, de.HTTPStatus)
	assert.Equal(t, "2", de.RetryAfterSeconds())
	assert.EqualValues(t, 2, de.Details["retry_after_seconds"])
	assert.Equal(t, "login", de.Details["operation"])
}
