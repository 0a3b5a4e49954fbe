package app

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const toastDuration = 3 * time.Second

type toastLevel int

const (
	toastLevelInfo toastLevel = iota
	toastLevelWarning
	toastLevelError
)

type queuedToast struct {
	level   toastLevel
	message string
}

func (m *Model) showInfoToast(message string) {
	m.showToast(toastLevelInfo, message)
}

func (m *Model) showWarningToast(message string) {
	m.showToast(toastLevelWarning, message)
}

func (m *Model) showErrorToast(message string) {
	m.showToast(toastLevelError, message)
}

func (m *Model) showToast(level toastLevel, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	m.toastText = message
	m.toastLevel = level
	m.toastUntil = m.now().Add(toastDuration)
}

// enqueueToast shows message after the current toast has expired.
func (m *Model) enqueueToast(level toastLevel, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	m.queuedToasts = append(m.queuedToasts, queuedToast{level: level, message: message})
	m.showNextQueuedToast()
}

func (m *Model) showNextQueuedToast() {
	if len(m.queuedToasts) == 0 || m.toastActive() {
		return
	}
	next := m.queuedToasts[0]
	m.queuedToasts = m.queuedToasts[1:]
	m.showToast(next.level, next.message)
}

func (m *Model) toastActive() bool {
	return m.toastText != "" && m.now().Before(m.toastUntil)
}

func (m *Model) toastLine(width int) string {
	if !m.toastActive() || width <= 0 {
		return ""
	}
	text := truncateToWidth(m.toastText, max(1, width-4))
	pill := m.toastStyle().Render(" " + text + " ")
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, pill)
}

func (m *Model) toastStyle() lipgloss.Style {
	switch m.toastLevel {
	case toastLevelWarning:
		return toastWarningStyle
	case toastLevelError:
		return toastErrorStyle
	default:
		return toastInfoStyle
	}
}
