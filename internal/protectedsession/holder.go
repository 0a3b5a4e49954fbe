package protectedsession

import (
	"context"
	"sync"
	"time"

	"notenav/internal/logging"
)

const checkInterval = 10 * time.Second

// Protected is implemented by notes that may require the protected session.
type Protected interface {
	IsProtected() bool
}

// Holder tracks whether a protected session is open and closes it after a
// period without protected-note activity.
type Holder struct {
	mu           sync.Mutex
	available    bool
	lastActivity time.Time
	timeout      time.Duration
	now          func() time.Time
	logger       logging.Logger
	onExpire     func()
}

type Option func(*Holder)

func WithLogger(logger logging.Logger) Option {
	return func(h *Holder) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithExpireCallback runs fn after an idle session was closed.
func WithExpireCallback(fn func()) Option {
	return func(h *Holder) {
		h.onExpire = fn
	}
}

func withClock(now func() time.Time) Option {
	return func(h *Holder) {
		h.now = now
	}
}

func NewHolder(timeout time.Duration, opts ...Option) *Holder {
	h := &Holder{
		timeout: timeout,
		now:     time.Now,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Enable opens the protected session.
func (h *Holder) Enable() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.available = true
	h.lastActivity = h.now()
}

func (h *Holder) Reset() {
	h.mu.Lock()
	h.available = false
	h.lastActivity = time.Time{}
	h.mu.Unlock()
}

func (h *Holder) IsAvailable() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.available
}

func (h *Holder) Touch() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.available {
		h.lastActivity = h.now()
	}
}

// TouchIfNecessary extends the session when note is protected.
func (h *Holder) TouchIfNecessary(note Protected) {
	if h == nil || note == nil || !note.IsProtected() {
		return
	}
	h.Touch()
}

// ExpireIfIdle closes the session when it has been idle longer than the
// timeout. It reports whether the session was closed.
func (h *Holder) ExpireIfIdle() bool {
	h.mu.Lock()
	if !h.available || h.timeout <= 0 || h.now().Sub(h.lastActivity) <= h.timeout {
		h.mu.Unlock()
		return false
	}
	h.available = false
	h.lastActivity = time.Time{}
	h.mu.Unlock()

	h.logger.Info("protected_session_expired")
	if h.onExpire != nil {
		h.onExpire()
	}
	return true
}

// Run checks for idleness until ctx is done.
func (h *Holder) Run(ctx context.Context) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.ExpireIfIdle()
		}
	}
}
