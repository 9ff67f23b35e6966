// Package monitor runs the background health loop for long-lived sessions.
// The agent loop publishes immutable Snapshot values on a channel; the
// monitor keeps only the most recent one, logs health on a wall-clock tick,
// and triggers memory eviction. No state is shared mutably with the loop.
package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/drover/internal/memory"
)

// Snapshot is one immutable view of loop progress.
type Snapshot struct {
	Goal     string
	Step     int
	Ceiling  int
	Progress float64
	Errors   int
}

// Monitor owns the snapshot channel and the periodic tick.
type Monitor struct {
	interval time.Duration
	store    *memory.Store
	logger   *zap.Logger

	snapshots chan Snapshot

	mu     sync.Mutex
	latest Snapshot
	seen   bool

	done chan struct{}
	stop context.CancelFunc
	once sync.Once
}

// New builds a Monitor. Start must be called before snapshots are consumed.
func New(interval time.Duration, store *memory.Store, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Monitor{
		interval:  interval,
		store:     store,
		logger:    logger.Named("monitor"),
		snapshots: make(chan Snapshot, 16),
		done:      make(chan struct{}),
	}
}

// Snapshots is the send side handed to the agent loop.
func (m *Monitor) Snapshots() chan<- Snapshot {
	return m.snapshots
}

// Latest returns the most recent snapshot and whether one has arrived yet.
func (m *Monitor) Latest() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest, m.seen
}

// Start launches the monitor goroutine. It runs until Stop is called or the
// context is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.stop = context.WithCancel(ctx)

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-m.snapshots:
				m.mu.Lock()
				m.latest = snap
				m.seen = true
				m.mu.Unlock()
			case <-ticker.C:
				m.tick()
			}
		}
	}()
}

// Stop requests shutdown and waits for the goroutine to exit.
func (m *Monitor) Stop() {
	m.once.Do(func() {
		if m.stop != nil {
			m.stop()
		}
		<-m.done
	})
}

func (m *Monitor) tick() {
	snap, ok := m.Latest()
	if ok {
		m.logger.Info("Health check",
			zap.String("goal", snap.Goal),
			zap.Int("step", snap.Step),
			zap.Int("ceiling", snap.Ceiling),
			zap.Float64("progress", snap.Progress),
			zap.Int("errors", snap.Errors))
	} else {
		m.logger.Info("Health check", zap.String("status", "idle"))
	}

	if m.store != nil {
		if n, err := m.store.Cleanup(); err != nil {
			m.logger.Warn("Memory eviction failed", zap.Error(err))
		} else if n > 0 {
			m.logger.Info("Memory eviction", zap.Int64("evicted", n))
		}
	}
}
