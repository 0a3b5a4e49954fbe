package recent

import (
	"context"
	"sync"
	"time"

	"notenav/internal/logging"
	"notenav/internal/store"
	"notenav/internal/types"
)

// DefaultDelay is how long a note must stay open before it counts as visited.
const DefaultDelay = 5 * time.Second

// Recorder registers visited notes in the recent notes list once the user has
// stayed on them for the dwell delay.
type Recorder struct {
	store    store.RecentNoteStore
	readOnly func() bool
	delay    time.Duration
	logger   logging.Logger
	now      func() time.Time

	wg sync.WaitGroup
}

type Option func(*Recorder)

func WithDelay(delay time.Duration) Option {
	return func(r *Recorder) {
		if delay >= 0 {
			r.delay = delay
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithReadOnly makes the recorder skip registration while fn returns true.
func WithReadOnly(fn func() bool) Option {
	return func(r *Recorder) {
		r.readOnly = fn
	}
}

func NewRecorder(recentStore store.RecentNoteStore, opts ...Option) *Recorder {
	r := &Recorder{
		store:  recentStore,
		delay:  DefaultDelay,
		logger: logging.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Schedule registers notePath after the dwell delay if isCurrent still
// reports true then. The returned function cancels the pending registration.
// Nothing is scheduled while the store is read-only.
func (r *Recorder) Schedule(noteID, notePath string, isCurrent func(notePath string) bool) (cancel func()) {
	if r == nil || r.store == nil || notePath == "" {
		return func() {}
	}
	if r.readOnly != nil && r.readOnly() {
		return func() {}
	}
	ctx, stop := context.WithCancel(context.Background())
	r.wg.Add(1)
	timer := time.AfterFunc(r.delay, func() {
		defer r.wg.Done()
		if ctx.Err() != nil {
			return
		}
		if isCurrent != nil && !isCurrent(notePath) {
			return
		}
		if err := r.Add(ctx, noteID, notePath); err != nil {
			r.logger.Warn("recent_note_save_failed", logging.F("note_path", notePath), logging.Err(err))
		}
	})
	return func() {
		stop()
		if timer.Stop() {
			r.wg.Done()
		}
	}
}

func (r *Recorder) Add(ctx context.Context, noteID, notePath string) error {
	return r.store.AddRecentNote(ctx, &types.RecentNote{
		NoteID:    noteID,
		NotePath:  notePath,
		CreatedAt: r.now().UTC(),
	})
}

func (r *Recorder) List(ctx context.Context, limit int) ([]*types.RecentNote, error) {
	return r.store.ListRecentNotes(ctx, limit)
}

// Wait blocks until every registration that already started has finished.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
