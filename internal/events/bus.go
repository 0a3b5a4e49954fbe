package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"notenav/internal/logging"
)

type Name string

const (
	BeforeNoteSwitch            Name = "beforeNoteSwitch"
	NoteSwitched                Name = "noteSwitched"
	ContextDataChanged          Name = "contextDataChanged"
	HoistedNoteChanged          Name = "hoistedNoteChanged"
	ReadOnlyTemporarilyDisabled Name = "readOnlyTemporarilyDisabled"
	EntitiesReloaded            Name = "entitiesReloaded"
	ActiveContextChanged        Name = "activeContextChanged"
	NewNoteContextCreated       Name = "newNoteContextCreated"
	BeforeNoteContextRemove     Name = "beforeNoteContextRemove"
	NoteContextRemoved          Name = "noteContextRemoved"
	NoteSwitchedAndActivated    Name = "noteSwitchedAndActivated"
	TabReorder                  Name = "tabReorder"
)

// Commands are addressed to a single handler rather than broadcast.
const (
	SetActiveScreenCommand       = "setActiveScreen"
	ExecuteWithTextEditorCommand = "executeWithTextEditor"
	ExecuteWithCodeEditorCommand = "executeWithCodeEditor"
	ExecuteWithContentElement    = "executeWithContentElement"
	ExecuteWithTypeWidget        = "executeWithTypeWidget"
)

type Event struct {
	Name    Name
	Payload any
}

type Listener func(ctx context.Context, event Event) error

type CommandHandler func(ctx context.Context, payload any) error

type subscription struct {
	id       int
	listener Listener
}

// Bus delivers events to every subscriber and commands to their single handler.
type Bus struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[Name][]subscription
	commands  map[string]CommandHandler
	logger    logging.Logger
}

func NewBus(logger logging.Logger) *Bus {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Bus{
		listeners: map[Name][]subscription{},
		commands:  map[string]CommandHandler{},
		logger:    logger,
	}
}

// Subscribe registers listener for name and returns a function removing it.
func (b *Bus) Subscribe(name Name, listener Listener) func() {
	if b == nil || listener == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners[name] = append(b.listeners[name], subscription{id: id, listener: listener})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.listeners[name]
		for i, sub := range subs {
			if sub.id == id {
				b.listeners[name] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// TriggerEvent runs every listener of name in subscription order and waits for
// all of them. Listener failures do not stop delivery; they are joined.
func (b *Bus) TriggerEvent(ctx context.Context, name Name, payload any) error {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	subs := append([]subscription(nil), b.listeners[name]...)
	b.mu.RUnlock()

	event := Event{Name: name, Payload: payload}
	var triggerErr error
	for _, sub := range subs {
		if err := sub.listener(ctx, event); err != nil {
			b.logger.Warn("event_listener_failed",
				logging.F("event", string(name)),
				logging.Err(err),
			)
			triggerErr = errors.Join(triggerErr, fmt.Errorf("%s listener: %w", name, err))
		}
	}
	return triggerErr
}

// HandleCommand installs handler for name, replacing any previous handler.
func (b *Bus) HandleCommand(name string, handler CommandHandler) func() {
	if b == nil || handler == nil {
		return func() {}
	}
	b.mu.Lock()
	b.commands[name] = handler
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.commands, name)
	}
}

// TriggerCommand runs the handler for name. A command nobody handles is a no-op.
func (b *Bus) TriggerCommand(ctx context.Context, name string, payload any) error {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	handler := b.commands[name]
	b.mu.RUnlock()
	if handler == nil {
		b.logger.Debug("command_unhandled", logging.F("command", name))
		return nil
	}
	return handler(ctx, payload)
}
