package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPollerGroup_StartStop(t *testing.T) {
	var fast, failing atomic.Int32
	group := NewPollerGroup(
		NewPoller("fast", 5*time.Millisecond, func(context.Context) error {
			fast.Add(1)
			return nil
		}),
		NewPoller("failing", 5*time.Millisecond, func(context.Context) error {
			failing.Add(1)
			return errors.New("rpc unavailable")
		}),
		NewPoller("disabled", 0, func(context.Context) error { return nil }),
	)
	require.Len(t, group.pollers, 2)

	group.Start(context.Background())
	group.Start(context.Background())
	require.Eventually(t, func() bool {
		return fast.Load() >= 3 && failing.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	group.Stop()
	stopped := fast.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, stopped, fast.Load())

	group.Stop()
}

func TestPoller_RunsImmediately(t *testing.T) {
	ran := make(chan struct{}, 1)
	p := NewPoller("once", time.Hour, func(context.Context) error {
		ran <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("poller did not refresh on start")
	}
	cancel()
	<-done
}
