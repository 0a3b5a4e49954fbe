package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"notenav/internal/notecontext"
	"notenav/internal/tabs"
	"notenav/internal/types"
)

const (
	actionTimeout  = 30 * time.Second
	tickInterval   = time.Second
	recentListSize = 20
)

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) snapshotCmd() tea.Cmd {
	builder := m.builder
	ctx := m.ctx
	return func() tea.Msg {
		snap, err := builder.build(ctx)
		return snapshotMsg{snapshot: snap, err: err}
	}
}

// actionCmd runs fn off the update loop. Navigation may block on a hoisting
// prompt that the loop itself has to display.
func (m *Model) actionCmd(action string, fn func(ctx context.Context) (string, error)) tea.Cmd {
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, actionTimeout)
		defer cancel()
		info, err := fn(ctx)
		return actionDoneMsg{action: action, info: info, err: err}
	}
}

func (m *Model) navigateCmd(notePath string, scope types.ViewScope) tea.Cmd {
	manager := m.tabs
	return m.actionCmd("navigate", func(ctx context.Context) (string, error) {
		active := manager.ActiveContext()
		if active == nil {
			_, err := manager.OpenContextWithNote(ctx, notePath, tabs.OpenOptions{Activate: true})
			return "", err
		}
		return "", active.SetNote(ctx, notePath, notecontext.WithViewScope(scope))
	})
}

func (m *Model) recentNotesCmd() tea.Cmd {
	recent := m.recent
	parent := m.ctx
	return func() tea.Msg {
		if recent == nil {
			return recentNotesMsg{}
		}
		notes, err := recent.List(parent, recentListSize)
		return recentNotesMsg{notes: notes, err: err}
	}
}
