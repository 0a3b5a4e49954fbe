package recent

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"notenav/internal/store"
)

func newTestStore(t *testing.T) store.RecentNoteStore {
	t.Helper()
	return store.NewFileRecentNoteStore(filepath.Join(t.TempDir(), "recent_notes.json"))
}

func TestScheduleRegistersAfterDwell(t *testing.T) {
	recentStore := newTestStore(t)
	recorder := NewRecorder(recentStore, WithDelay(20*time.Millisecond))
	recorder.Schedule("b", "root/a/b", func(string) bool { return true })
	recorder.Schedule("c", "root/c", func(string) bool { return false })

	time.Sleep(60 * time.Millisecond)
	recorder.Wait()

	notes, err := recorder.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notes) != 1 || notes[0].NotePath != "root/a/b" {
		t.Fatalf("expected only the note still open to be recorded, got %#v", notes)
	}
}

func TestScheduleCancel(t *testing.T) {
	recorder := NewRecorder(newTestStore(t), WithDelay(20*time.Millisecond))
	cancel := recorder.Schedule("b", "root/b", nil)
	cancel()
	cancel()
	time.Sleep(50 * time.Millisecond)
	recorder.Wait()

	notes, err := recorder.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notes) != 0 {
		t.Fatalf("cancelled registration was saved: %#v", notes)
	}
}

func TestScheduleSkippedWhenReadOnly(t *testing.T) {
	called := false
	recorder := NewRecorder(newTestStore(t), WithDelay(0), WithReadOnly(func() bool { return true }))
	recorder.Schedule("b", "root/b", func(string) bool {
		called = true
		return true
	})
	time.Sleep(20 * time.Millisecond)
	recorder.Wait()
	if called {
		t.Fatalf("read-only store must not schedule anything")
	}
	notes, _ := recorder.List(context.Background(), 0)
	if len(notes) != 0 {
		t.Fatalf("unexpected notes: %#v", notes)
	}
}
