package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesOriginalCode(t *testing.T) {
	inner := New(CodeChainConflict, "head moved")
	wrapped := Wrap(inner, CodeInternal, "append failed")

	assert.True(t, HasCode(wrapped, CodeChainConflict))
	assert.False(t, HasCode(wrapped, CodeInternal))
	assert.Equal(t, "append failed", wrapped.Error())
}

func TestWrapPlainError(t *testing.T) {
	wrapped := Wrap(fmt.Errorf("dial tcp: refused"), CodeStoreUnavailable, "counter store unreachable")

	assert.True(t, HasCode(wrapped, CodeStoreUnavailable))
	assert.ErrorContains(t, errors.Unwrap(wrapped), "dial tcp")
}

func TestIsMatchesByCode(t *testing.T) {
	err := Wrap(New(CodeTokenExpired, "exp in the past"), CodeUnauthorized, "verify failed")
	assert.True(t, errors.Is(err, &Error{Code: CodeTokenExpired}))
	assert.False(t, errors.Is(err, &Error{Code: CodeTokenMalformed}))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(CodeChainConflict, "")))
	assert.True(t, IsRetryable(New(CodeStoreUnavailable, "")))
	assert.True(t, IsRetryable(New(CodeTimeout, "")))
	assert.False(t, IsRetryable(New(CodeQuotaExceeded, "")))
	assert.False(t, IsRetryable(errors.New("plain")))
}
