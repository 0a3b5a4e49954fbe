package app

import (
	"strings"
	"testing"
	"time"
)

func TestQueuedToastsWaitForTheCurrentOne(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m := &Model{now: func() time.Time { return now }}
	m.enqueueToast(toastLevelInfo, "first")
	m.enqueueToast(toastLevelError, "second")
	if m.toastText != "first" || len(m.queuedToasts) != 1 {
		t.Fatalf("expected first shown and second queued, got %q (%d queued)", m.toastText, len(m.queuedToasts))
	}

	now = now.Add(toastDuration + time.Millisecond)
	m.showNextQueuedToast()
	if m.toastText != "second" || m.toastLevel != toastLevelError {
		t.Fatalf("expected the queued error toast, got %q", m.toastText)
	}
	if line := m.toastLine(40); !strings.Contains(line, "second") {
		t.Fatalf("toast line should show the toast: %q", line)
	}

	now = now.Add(toastDuration + time.Millisecond)
	if m.toastLine(40) != "" {
		t.Fatalf("expired toast should not render")
	}
}
