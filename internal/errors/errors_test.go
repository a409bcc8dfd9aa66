package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesCodeAndMessage(t *testing.T) {
	sentinel := NotFoundError("No token found.", nil)

	assert.True(t, errors.Is(NotFoundError("No token found.", errors.New("no rows")), sentinel))
	assert.True(t, errors.Is(fmt.Errorf("revoke: %w", sentinel), sentinel))
	assert.False(t, errors.Is(NotFoundError("No application found.", nil), sentinel))
	assert.False(t, errors.Is(ConflictError("No token found.", nil), sentinel))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternalError, "ignored"))

	wrapped := Wrap(errors.New("boom"), CodeNotFound, "missing")
	assert.Equal(t, http.StatusNotFound, wrapped.HTTPCode)
	assert.True(t, IsType(wrapped, CodeNotFound))

	rewrapped := Wrap(ConflictError("taken", nil), CodeInternalError, "signup")
	assert.Equal(t, CodeConflict, rewrapped.Code)
	assert.Equal(t, "signup: taken", rewrapped.Message)
	assert.Equal(t, http.StatusConflict, GetHTTPCode(rewrapped))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPCode(errors.New("plain")))
}

func TestConstructorStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, GetHTTPCode(ValidationError("username cannot be empty", nil)))
	assert.Equal(t, http.StatusUnauthorized, GetHTTPCode(UnauthorizedError("bad password", nil)))
	assert.Equal(t, http.StatusServiceUnavailable, GetHTTPCode(fmt.Errorf("get session: %w", CacheUnavailableError("redis down", nil))))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPCode(InternalError("hash", nil)))
}
