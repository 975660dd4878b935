package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError_PassesThroughDomainErrors(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewConflict("dup", nil))

	de := ToDomainError(err)

	assert.Equal(t, "CONFLICT", de.Code)
	assert.Equal(t, http.StatusConflict, de.HTTPStatus)
}

func TestToDomainError_MapsNoRowsToNotFound(t *testing.T) {
	de := ToDomainError(fmt.Errorf("lookup: %w", pgx.ErrNoRows))

	assert.Equal(t, CodeNotFound, de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
}

func TestToDomainError_DefaultsToInternal(t *testing.T) {
	de := ToDomainError(errors.New("boom"))

	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Nil(t, ToDomainError(nil))
}

func TestNewRateLimited_RoundsRetryAfterUp(t *testing.T) {
	de := ToDomainError(NewRateLimited(1500*time.Millisecond, "identity"))

	assert.Equal(t, CodeRateLimited, de.Code)
	assert.Equal(t, http.StatusTooManyRequests, de.HTTPStatus)
	assert.Equal(t, 2, de.Details["retry_after"])
	assert.Equal(t, "identity", de.Details["scope"])
}

func TestRetryAfterSeconds_FloorsAtOne(t *testing.T) {
	assert.Equal(t, 1, RetryAfterSeconds(0))
	assert.Equal(t, 1, RetryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, 3, RetryAfterSeconds(3*time.Second))
}

func TestPersistenceFailure_Unwraps(t *testing.T) {
	cause := errors.New("commit failed")
	err := NewPersistenceFailure(cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodePersistenceFailure))
	assert.False(t, HasCode(err, CodeRateLimited))
}
