package spacedupdate

import (
	"context"
	"sync"
	"time"

	"notenav/internal/logging"
)

const DefaultInterval = time.Second

type State string

const (
	StateUnsaved State = "unsaved"
	StateSaving  State = "saving"
	StateSaved   State = "saved"
	StateError   State = "error"
)

// UpdateFunc persists whatever changed since the last call.
type UpdateFunc func(ctx context.Context) error

type Option func(*SpacedUpdate)

func WithInterval(interval time.Duration) Option {
	return func(s *SpacedUpdate) {
		if interval >= 0 {
			s.interval = interval
		}
	}
}

// WithStateCallback reports save progress, e.g. to drive an unsaved marker.
func WithStateCallback(fn func(State)) Option {
	return func(s *SpacedUpdate) {
		s.onState = fn
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(s *SpacedUpdate) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// SpacedUpdate coalesces change notifications into at most one call of the
// update function per interval. Calls of the update function never overlap,
// and a failed call leaves the state dirty so the change is retried.
type SpacedUpdate struct {
	update  UpdateFunc
	onState func(State)
	logger  logging.Logger
	now     func() time.Time

	flushMu sync.Mutex

	mu              sync.Mutex
	interval        time.Duration
	changed         bool
	changeForbidden bool
	lastUpdated     time.Time
	timer           *time.Timer
	closed          bool
}

func New(update UpdateFunc, opts ...Option) *SpacedUpdate {
	s := &SpacedUpdate{
		update:   update,
		logger:   logging.Nop(),
		now:      time.Now,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.lastUpdated = s.now()
	return s
}

// ScheduleUpdate marks the state dirty and arranges a flush once the interval
// since the last flush has elapsed. It is ignored inside AllowUpdateWithoutChange.
func (s *SpacedUpdate) ScheduleUpdate() {
	s.mu.Lock()
	if s.changeForbidden || s.closed {
		s.mu.Unlock()
		return
	}
	s.changed = true
	s.armLocked(s.remainingLocked())
	s.mu.Unlock()
	s.setState(StateUnsaved)
}

// UpdateNowIfNecessary flushes immediately when dirty. On failure the state
// stays dirty and the error is returned.
func (s *SpacedUpdate) UpdateNowIfNecessary(ctx context.Context) error {
	return s.flush(ctx)
}

// IsAllSaved reports whether there is no pending change.
func (s *SpacedUpdate) IsAllSaved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.changed
}

// IsAllSavedAndTriggerUpdate reports whether everything was saved before the
// call, then flushes any pending change.
func (s *SpacedUpdate) IsAllSavedAndTriggerUpdate(ctx context.Context) bool {
	allSaved := s.IsAllSaved()
	if err := s.flush(ctx); err != nil {
		s.logger.Warn("spaced_update_flush_failed", logging.Err(err))
	}
	return allSaved
}

// AllowUpdateWithoutChange runs fn while ScheduleUpdate is ignored, so state
// loaded by fn is not written straight back.
func (s *SpacedUpdate) AllowUpdateWithoutChange(ctx context.Context, fn func(context.Context) error) error {
	s.mu.Lock()
	s.changeForbidden = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.changeForbidden = false
		s.mu.Unlock()
	}()
	return fn(ctx)
}

// ResetUpdateTimer restarts the interval as if a flush just happened.
func (s *SpacedUpdate) ResetUpdateTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUpdated = s.now()
}

func (s *SpacedUpdate) SetUpdateInterval(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if interval < 0 {
		interval = 0
	}
	s.interval = interval
	if s.changed {
		s.armLocked(s.remainingLocked())
	}
}

// Close stops the pending timer. Pending changes are not flushed.
func (s *SpacedUpdate) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *SpacedUpdate) triggerUpdate() {
	s.mu.Lock()
	if !s.changed || s.closed {
		s.mu.Unlock()
		return
	}
	if remaining := s.remainingLocked(); remaining > 0 {
		s.armLocked(remaining)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.flush(context.Background()); err != nil {
		s.logger.Warn("spaced_update_flush_failed", logging.Err(err))
		s.mu.Lock()
		if !s.closed {
			s.armLocked(s.interval)
		}
		s.mu.Unlock()
	}
}

func (s *SpacedUpdate) flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if !s.changed {
		s.mu.Unlock()
		return nil
	}
	s.changed = false
	s.mu.Unlock()

	s.setState(StateSaving)
	err := s.update(ctx)

	s.mu.Lock()
	s.lastUpdated = s.now()
	if err != nil {
		s.changed = true
	}
	dirty := s.changed
	s.mu.Unlock()

	if err != nil {
		s.setState(StateError)
		return err
	}
	if !dirty {
		s.setState(StateSaved)
	}
	return nil
}

func (s *SpacedUpdate) remainingLocked() time.Duration {
	remaining := s.interval - s.now().Sub(s.lastUpdated)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *SpacedUpdate) armLocked(delay time.Duration) {
	if s.timer == nil {
		s.timer = time.AfterFunc(delay, s.triggerUpdate)
		return
	}
	s.timer.Reset(delay)
}

func (s *SpacedUpdate) setState(state State) {
	if s.onState != nil {
		s.onState(state)
	}
}
