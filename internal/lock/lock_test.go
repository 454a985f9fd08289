package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Exclusive(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()

	release, err := m.Acquire(ctx, "draft-1")
	require.NoError(t, err)

	_, err = m.Acquire(ctx, "draft-1")
	assert.ErrorIs(t, err, ErrHeld)

	other, err := m.Acquire(ctx, "draft-2")
	require.NoError(t, err, "keys are independent")
	other()

	release()
	release()

	again, err := m.Acquire(ctx, "draft-1")
	require.NoError(t, err)
	again()
}

func TestMemory_HoldLapses(t *testing.T) {
	m := NewMemory(time.Minute)
	now := time.Now()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	stale, err := m.Acquire(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	fresh, err := m.Acquire(ctx, "k")
	require.NoError(t, err)

	stale()
	_, err = m.Acquire(ctx, "k")
	assert.ErrorIs(t, err, ErrHeld, "a lapsed holder must not release the new hold")
	fresh()
}

func TestMemory_Concurrent(t *testing.T) {
	m := NewMemory(time.Minute)
	var wins int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := m.Acquire(context.Background(), "same"); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}
