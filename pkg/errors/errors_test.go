package errors

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDetailDoesNotMutateSentinel(t *testing.T) {
	first := ErrValidation.WithDetail("message", "event has no id")
	second := ErrValidation.WithDetail("message", "event has no author screen name")

	assert.Equal(t, "event has no id", first.Details["message"])
	assert.Equal(t, "event has no author screen name", second.Details["message"])
	assert.Empty(t, ErrValidation.Details)
}

func TestWithCauseDoesNotShareDetails(t *testing.T) {
	derived := ErrValidation.WithCause(fmt.Errorf("boom"))
	derived.Details["message"] = "local only"

	assert.Empty(t, ErrValidation.Details)
}

func TestWithDetailConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = ErrValidation.WithDetail("message", fmt.Sprintf("worker %d", n))
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, ErrValidation.Details)
}

func TestErrorStringUsesDetailMessage(t *testing.T) {
	err := ErrValidation.WithDetail("message", "event has no id")
	assert.Equal(t, "VALIDATION_ERROR: event has no id", err.Error())
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, ErrValidation.WithDetail("message", "bad").IsRetryable())
	assert.True(t, ErrInternal.WithCause(fmt.Errorf("boom")).IsRetryable())
	assert.False(t, ErrInternal.WithCause(fmt.Errorf("boom")).AsFatal().IsRetryable())
}

func TestRecoverPanic(t *testing.T) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = RecoverPanic(r)
			}
		}()
		panic("handler blew up")
	}()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler blew up")

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.False(t, appErr.IsRetryable())
	assert.Equal(t, true, appErr.Details["panic"])
}
