package store

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"notenav/internal/types"
)

// MaxRecentNotes bounds how many recent notes are retained.
const MaxRecentNotes = 100

type RecentNoteStore interface {
	AddRecentNote(ctx context.Context, note *types.RecentNote) error
	ListRecentNotes(ctx context.Context, limit int) ([]*types.RecentNote, error)
}

type FileRecentNoteStore struct {
	path string
	mu   sync.Mutex
}

type recentNoteFile struct {
	Notes []*types.RecentNote `json:"notes"`
}

func NewFileRecentNoteStore(path string) *FileRecentNoteStore {
	return &FileRecentNoteStore{path: path}
}

func (s *FileRecentNoteStore) AddRecentNote(ctx context.Context, note *types.RecentNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized, err := normalizeRecentNote(note)
	if err != nil {
		return err
	}
	file := &recentNoteFile{}
	if err := readJSON(s.path, file); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	file.Notes = mergeRecentNote(file.Notes, normalized)
	return writeJSONAtomic(s.path, file)
}

func (s *FileRecentNoteStore) ListRecentNotes(ctx context.Context, limit int) ([]*types.RecentNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := &recentNoteFile{}
	if err := readJSON(s.path, file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*types.RecentNote{}, nil
		}
		return nil, err
	}
	return limitRecentNotes(file.Notes, limit), nil
}

func normalizeRecentNote(note *types.RecentNote) (*types.RecentNote, error) {
	if note == nil {
		return nil, errors.New("recent note is required")
	}
	normalized := *note
	normalized.NoteID = strings.TrimSpace(normalized.NoteID)
	normalized.NotePath = strings.TrimSpace(normalized.NotePath)
	if normalized.NoteID == "" {
		return nil, errors.New("recent note id is required")
	}
	if normalized.CreatedAt.IsZero() {
		normalized.CreatedAt = time.Now().UTC()
	}
	return &normalized, nil
}

// mergeRecentNote replaces any previous entry for the same note, keeps the
// newest first, and trims to MaxRecentNotes.
func mergeRecentNote(existing []*types.RecentNote, note *types.RecentNote) []*types.RecentNote {
	out := make([]*types.RecentNote, 0, len(existing)+1)
	out = append(out, note)
	for _, item := range existing {
		if item == nil || item.NoteID == note.NoteID {
			continue
		}
		out = append(out, item)
	}
	sortRecentNotes(out)
	if len(out) > MaxRecentNotes {
		out = out[:MaxRecentNotes]
	}
	return out
}

func limitRecentNotes(notes []*types.RecentNote, limit int) []*types.RecentNote {
	out := make([]*types.RecentNote, 0, len(notes))
	for _, item := range notes {
		if item == nil {
			continue
		}
		copy := *item
		out = append(out, &copy)
	}
	sortRecentNotes(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortRecentNotes(notes []*types.RecentNote) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
}
