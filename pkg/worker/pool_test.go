package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool("test", 2, nil)

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.Run(context.Background(), func(context.Context) error {
				cur := atomic.AddInt32(&active, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPoolRespectsContextWhileQueued(t *testing.T) {
	pool := NewPool("test", 1, nil)

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = pool.Run(context.Background(), func(context.Context) error {
			close(started)
			<-done
			return nil
		})
	}()
	<-started
	defer close(done)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pool.Run(ctx, func(context.Context) error {
		t.Fatal("queued task must not start after deadline")
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
