package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// IdleChecker is the engine side of idle detection.
type IdleChecker interface {
	CheckIdle(now time.Time) error
}

// IdleMonitor asks the engine on a fixed interval whether it has been idle
// long enough to pause the output.
type IdleMonitor struct {
	mu       sync.Mutex
	checker  IdleChecker
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewIdleMonitor creates a monitor polling checker every interval.
func NewIdleMonitor(checker IdleChecker, interval time.Duration, logger *slog.Logger) *IdleMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdleMonitor{
		checker:  checker,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start begins polling. A non-positive interval disables the monitor.
func (m *IdleMonitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running || m.interval <= 0 {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go m.loop(ctx, m.stopCh, m.doneCh)
	m.logger.Debug("idle monitor started", "interval", m.interval)
}

// Stop stops polling and waits for the loop to exit.
func (m *IdleMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	done := m.doneCh
	m.mu.Unlock()

	<-done
	m.logger.Debug("idle monitor stopped")
}

func (m *IdleMonitor) loop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if err := m.checker.CheckIdle(m.now()); err != nil {
				m.logger.Debug("idle check skipped", "error", err)
			}
		}
	}
}
