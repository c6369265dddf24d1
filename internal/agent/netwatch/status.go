// Package netwatch owns the agent's view of connectivity: an explicitly
// constructed online/offline flag flipped by a periodic server probe, and the
// allocator that mints temporary identifiers for records created offline.
package netwatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danielmvs/fleetsync/internal/logging"
)

// Status is the process-wide connectivity flag. It is passed to the
// components that need it instead of living in package-level state, and is
// rebuilt fresh on every start: a stale "offline" bit after a restart would
// only cause a safe cache-read fallback.
type Status struct {
	online atomic.Bool
	log    logging.Logger

	mu          sync.Mutex
	subscribers []func(online bool)
}

func NewStatus(initial bool, logger logging.Logger) *Status {
	s := &Status{log: logger}
	s.online.Store(initial)
	return s
}

// Online reports the current connectivity state.
func (s *Status) Online() bool {
	return s.online.Load()
}

// Subscribe registers fn to run on every online/offline transition. Used by
// the reconciler (drain on reconnect) and the gateway hub (UI toasts).
func (s *Status) Subscribe(fn func(online bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Set flips the flag, notifying subscribers only on an actual transition.
func (s *Status) Set(ctx context.Context, online bool) {
	if s.online.Swap(online) == online {
		return
	}

	mode := "offline"
	if online {
		mode = "online"
	}
	s.log.Info(ctx, "switched mode", "mode", mode)

	s.mu.Lock()
	subs := make([]func(bool), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
}

// Watch probes the server every interval and flips the flag accordingly.
// It blocks until ctx is done; callers run it on its own goroutine.
func (s *Status) Watch(ctx context.Context, interval time.Duration, probe func(ctx context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := probe(probeCtx)
			cancel()

			s.Set(ctx, err == nil)

		case <-ctx.Done():
			return
		}
	}
}
