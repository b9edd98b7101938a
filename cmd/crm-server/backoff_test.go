package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestRetryWithBackoff(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		attempts := 0
		err := retryWithBackoff(func() error {
			attempts++
			if attempts < 3 {
				return errors.New("connection refused")
			}
			return nil
		}, 5, time.Millisecond, zaptest.NewLogger(t), "test dependency")

		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		attempts := 0
		cause := errors.New("connection refused")
		err := retryWithBackoff(func() error {
			attempts++
			return cause
		}, 3, time.Millisecond, zaptest.NewLogger(t), "test dependency")

		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "test dependency failed after 3 attempts")
		assert.Equal(t, 3, attempts)
	})
}
