package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("nil cause stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("cause is reachable through errors.Is", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeUnavailable, "failed to persist")
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "failed to persist: connection refused", err.Error())
	})
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeValidation, "cvv must be exactly 3 digits"))

	assert.True(t, HasCode(err, CodeValidation))
	assert.True(t, Is(err, CodeValidation))
	assert.False(t, HasCode(err, CodeInternal))
	assert.False(t, HasCode(errors.New("plain"), CodeValidation))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(CodeUnavailable, "store down")))
	assert.True(t, Retryable(New(CodeTimeout, "slow")))
	assert.False(t, Retryable(New(CodeValidation, "bad input")))
	assert.False(t, Retryable(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:   http.StatusBadRequest,
		CodeValidation:   http.StatusUnprocessableEntity,
		CodeNotFound:     http.StatusNotFound,
		CodeInvalidState: http.StatusConflict,
		CodeExpired:      http.StatusGone,
		CodeRateLimited:  http.StatusTooManyRequests,
		CodeUnavailable:  http.StatusServiceUnavailable,
		CodeInternal:     http.StatusInternalServerError,
		Code("unknown"):  http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), "code %s", code)
	}
}
