package netwatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/danielmvs/fleetsync/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStatus_SetNotifiesOnTransitionOnly(t *testing.T) {
	s := NewStatus(true, testLogger())
	ctx := context.Background()

	var transitions []bool
	s.Subscribe(func(online bool) { transitions = append(transitions, online) })

	s.Set(ctx, true) // no transition
	s.Set(ctx, false)
	s.Set(ctx, false) // no transition
	s.Set(ctx, true)

	assert.Equal(t, []bool{false, true}, transitions)
	assert.True(t, s.Online())
}

func TestStatus_WatchFlipsOnProbeResult(t *testing.T) {
	s := NewStatus(true, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	fail := true
	probe := func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return errors.New("unreachable")
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Watch(ctx, 5*time.Millisecond, probe)
	}()

	require.Eventually(t, func() bool { return !s.Online() }, time.Second, time.Millisecond)

	mu.Lock()
	fail = false
	mu.Unlock()

	require.Eventually(t, func() bool { return s.Online() }, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestAllocator_NegativeAndDistinct(t *testing.T) {
	a := NewAllocator()

	seen := make(map[int64]struct{})
	for i := 0; i < 1000; i++ {
		id := a.Next()
		assert.Negative(t, id)
		_, dup := seen[id]
		assert.False(t, dup, "id %d allocated twice", id)
		seen[id] = struct{}{}
	}
}

func TestAllocator_SameMillisecondStepsDown(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	a := &Allocator{now: func() time.Time { return fixed }}

	assert.Equal(t, int64(-1700000000000), a.Next())
	assert.Equal(t, int64(-1700000000001), a.Next())
	assert.Equal(t, int64(-1700000000002), a.Next())
}
