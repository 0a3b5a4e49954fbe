package app

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"notenav/internal/events"
	"notenav/internal/notecontext"
)

const inboxSize = 32

// Inbox carries messages produced outside the bubbletea loop into it: bus
// events, widget requests and hoisting prompts raised while a navigation
// runs in a command goroutine.
type Inbox struct {
	ch             chan tea.Msg
	refreshPending atomic.Bool
}

func NewInbox() *Inbox {
	return &Inbox{ch: make(chan tea.Msg, inboxSize)}
}

// Confirm asks the user and blocks until they answer or ctx ends. It makes
// the inbox usable as the hoisting prompter.
func (i *Inbox) Confirm(ctx context.Context, message string) (bool, error) {
	reply := make(chan bool, 1)
	select {
	case i.ch <- confirmRequestMsg{message: message, reply: reply}:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// requestRefresh queues one refresh; further requests coalesce until it has
// been received.
func (i *Inbox) requestRefresh(reason events.Name) {
	if !i.refreshPending.CompareAndSwap(false, true) {
		return
	}
	select {
	case i.ch <- refreshRequestMsg{reason: reason}:
	default:
		i.refreshPending.Store(false)
	}
}

func (i *Inbox) post(msg tea.Msg) {
	select {
	case i.ch <- msg:
	default:
	}
}

func (i *Inbox) wait() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-i.ch
		if !ok {
			return nil
		}
		if _, isRefresh := msg.(refreshRequestMsg); isRefresh {
			i.refreshPending.Store(false)
		}
		return msg
	}
}

var refreshEvents = []events.Name{
	events.NoteSwitched,
	events.NoteSwitchedAndActivated,
	events.ActiveContextChanged,
	events.HoistedNoteChanged,
	events.NewNoteContextCreated,
	events.NoteContextRemoved,
	events.TabReorder,
	events.ReadOnlyTemporarilyDisabled,
	events.EntitiesReloaded,
}

// attach subscribes the inbox to bus and installs the UI's command
// handlers. The returned function detaches everything.
func (i *Inbox) attach(bus *events.Bus, content *contentElements) func() {
	detach := make([]func(), 0, len(refreshEvents)+2)
	for _, name := range refreshEvents {
		detach = append(detach, bus.Subscribe(name, func(ctx context.Context, event events.Event) error {
			i.requestRefresh(event.Name)
			return nil
		}))
	}
	detach = append(detach,
		bus.HandleCommand(events.SetActiveScreenCommand, func(ctx context.Context, payload any) error {
			if screen, ok := payload.(notecontext.SetActiveScreenPayload); ok {
				i.post(activeScreenMsg{screen: screen.Screen})
			}
			return nil
		}),
		bus.HandleCommand(events.ExecuteWithContentElement, func(ctx context.Context, payload any) error {
			request, ok := payload.(notecontext.WidgetRequest)
			if !ok || request.Resolve == nil {
				return nil
			}
			if rendered, found := content.get(request.NtxID); found {
				request.Resolve(rendered)
			}
			return nil
		}),
	)
	return func() {
		for _, fn := range detach {
			fn()
		}
	}
}
