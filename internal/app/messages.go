package app

import (
	"time"

	"notenav/internal/events"
	"notenav/internal/types"
)

type snapshotMsg struct {
	seq      uint64
	snapshot viewSnapshot
	err      error
}

type actionDoneMsg struct {
	action string
	info   string
	err    error
}

type refreshRequestMsg struct {
	reason events.Name
}

type confirmRequestMsg struct {
	message string
	reply   chan<- bool
}

type activeScreenMsg struct {
	screen string
}

type recentNotesMsg struct {
	notes []*types.RecentNote
	err   error
}

type tickMsg time.Time
