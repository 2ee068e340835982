// Package status holds the client's shared activity indicators: a loading
// flag and the last error and informational messages shown to the user.
package status

import (
	"sync"

	"go.uber.org/zap"
)

// Snapshot is a point-in-time copy of the indicators.
type Snapshot struct {
	Loading bool
	Error   string
	Message string
}

// Status is safe for concurrent use. Loading is reference counted so that
// overlapping operations keep the flag raised until the last one finishes.
type Status struct {
	log *zap.Logger

	mu      sync.RWMutex
	busy    int
	errMsg  string
	infoMsg string
}

// New creates an idle Status. A nil logger disables logging.
func New(log *zap.Logger) *Status {
	if log == nil {
		log = zap.NewNop()
	}
	return &Status{log: log}
}

// Begin raises the loading flag and returns the function that lowers it.
// The returned function may be called more than once; only the first call counts.
func (s *Status) Begin() (done func()) {
	s.mu.Lock()
	s.busy++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.busy--
			s.mu.Unlock()
		})
	}
}

// Loading reports whether any operation is in progress.
func (s *Status) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy > 0
}

// SetError records msg as the last error.
func (s *Status) SetError(msg string) {
	s.log.Warn("error surfaced", zap.String("message", msg))
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
}

// SetMessage records msg as the last informational message.
func (s *Status) SetMessage(msg string) {
	s.log.Info("message surfaced", zap.String("message", msg))
	s.mu.Lock()
	s.infoMsg = msg
	s.mu.Unlock()
}

// Error returns the last error message, or "".
func (s *Status) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// Message returns the last informational message, or "".
func (s *Status) Message() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.infoMsg
}

// Snapshot returns all indicators at once.
func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Loading: s.busy > 0, Error: s.errMsg, Message: s.infoMsg}
}

// Drain returns the pending messages and clears them.
func (s *Status) Drain() (errMsg, infoMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	errMsg, infoMsg = s.errMsg, s.infoMsg
	s.errMsg, s.infoMsg = "", ""
	return errMsg, infoMsg
}
