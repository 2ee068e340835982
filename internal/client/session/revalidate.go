package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultRevalidateInterval is how often a mounted session rechecks its token.
const DefaultRevalidateInterval = 10 * time.Minute

// Revalidator is the periodic validation task of a mounted session.
type Revalidator struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// StartRevalidation validates the session once, synchronously, and then
// every interval in the background until Stop is called or ctx is done.
// A non-positive interval selects DefaultRevalidateInterval.
func (m *Manager) StartRevalidation(ctx context.Context, interval time.Duration) *Revalidator {
	if interval <= 0 {
		interval = DefaultRevalidateInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	r := &Revalidator{cancel: cancel, done: make(chan struct{})}

	_ = m.Validate(ctx)

	ticker := time.NewTicker(interval)
	go func() {
		defer close(r.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.log.Debug("revalidating session")
				if err := m.Validate(ctx); err != nil {
					m.log.Info("periodic validation failed", zap.Error(err))
				}
			}
		}
	}()
	return r
}

// Stop cancels the task and waits for it to exit. It is safe to call more than once.
func (r *Revalidator) Stop() {
	r.once.Do(r.cancel)
	<-r.done
}

// Done is closed once the task has exited.
func (r *Revalidator) Done() <-chan struct{} {
	return r.done
}
