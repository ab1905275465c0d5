package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		code int
		kind Kind
	}{
		{401, KindAuth},
		{403, KindAuth},
		{404, KindNotFound},
		{429, KindRateLimit},
		{500, KindServerError},
		{503, KindServerError},
		{418, KindHTTP},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.code), func(t *testing.T) {
			err := FromStatus("fetch", tt.code)
			assert.Equal(t, tt.kind, err.Kind)
			assert.Equal(t, tt.code, err.Code)
			assert.Contains(t, err.Error(), fmt.Sprintf("code %d", tt.code))
		})
	}
}

func TestKindOfUnwrapsChain(t *testing.T) {
	base := Wrap(KindIO, "write", io.ErrShortWrite)
	wrapped := fmt.Errorf("post 3: %w", base)

	assert.Equal(t, KindIO, KindOf(wrapped))
	assert.True(t, stderrors.Is(wrapped, io.ErrShortWrite))
	assert.Equal(t, KindUnknown, KindOf(io.EOF))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(KindNetwork))
	assert.True(t, IsRetryable(KindRateLimit))
	assert.True(t, IsRetryable(KindServerError))
	assert.False(t, IsRetryable(KindAuth))
	assert.False(t, IsRetryable(KindNotFound))
	assert.False(t, IsRetryable(KindActorFailed))

	assert.True(t, IsRetryableStatusCode(0))
	assert.True(t, IsRetryableStatusCode(502))
	assert.False(t, IsRetryableStatusCode(404))
	assert.False(t, IsRetryableStatusCode(400))
}

func TestErrorMessage(t *testing.T) {
	err := New(KindActorFailed, "apify.run", "run %s finished with status %s", "abc", "FAILED")
	assert.Equal(t, "apify.run: actor_failed error: run abc finished with status FAILED", err.Error())
}
