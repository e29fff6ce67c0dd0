package scrobbler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLastFMRequiresSessionKey(t *testing.T) {
	_, err := NewLastFM("key", "secret", "", "user")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestCallWithTimeoutReturnsResult(t *testing.T) {
	sentinel := errors.New("api says no")
	err := callWithTimeout(context.Background(), time.Second, func() error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	err = callWithTimeout(context.Background(), time.Second, func() error {
		return nil
	})
	assert.NoError(t, err)
}

func TestCallWithTimeoutAbandonsStalledCall(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	err := callWithTimeout(context.Background(), 10*time.Millisecond, func() error {
		<-block
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCallWithTimeoutHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	block := make(chan struct{})
	defer close(block)

	err := callWithTimeout(ctx, time.Minute, func() error {
		<-block
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
