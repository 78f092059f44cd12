package redisclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerRunsFn(t *testing.T) {
	l := NewLocalLocker()

	ran := false
	err := l.WithLock(context.Background(), "queue:a", func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestLocalLockerPropagatesFnError(t *testing.T) {
	l := NewLocalLocker()

	want := errors.New("boom")
	err := l.WithLock(context.Background(), "queue:a", func(ctx context.Context) error {
		return want
	})
	assert.ErrorIs(t, err, want)
}

func TestLocalLockerContention(t *testing.T) {
	l := NewLocalLocker()

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- l.WithLock(context.Background(), "queue:a", func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()

	<-held

	// same key contends, other keys do not
	err := l.WithLock(context.Background(), "queue:a", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	err = l.WithLock(context.Background(), "queue:b", func(ctx context.Context) error { return nil })
	assert.NoError(t, err)

	close(release)
	require.NoError(t, <-done)

	// released locks can be taken again
	err = l.WithLock(context.Background(), "queue:a", func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
}
