package events

import (
	"context"
	"errors"
	"testing"
)

func TestTriggerEventRunsAllListenersAndJoinsErrors(t *testing.T) {
	bus := NewBus(nil)
	errA := errors.New("a failed")
	var order []string
	bus.Subscribe(NoteSwitched, func(ctx context.Context, event Event) error {
		order = append(order, "a")
		return errA
	})
	bus.Subscribe(NoteSwitched, func(ctx context.Context, event Event) error {
		order = append(order, "b:"+event.Payload.(string))
		return nil
	})
	bus.Subscribe(ContextDataChanged, func(ctx context.Context, event Event) error {
		t.Fatalf("unexpected delivery to another event")
		return nil
	})

	err := bus.TriggerEvent(context.Background(), NoteSwitched, "root/a")
	if !errors.Is(err, errA) {
		t.Fatalf("expected joined listener error, got %v", err)
	}
	if len(order) != 2 || order[0] != "a" || order[1] != "b:root/a" {
		t.Fatalf("unexpected delivery order: %#v", order)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(nil)
	calls := 0
	unsubscribe := bus.Subscribe(HoistedNoteChanged, func(ctx context.Context, event Event) error {
		calls++
		return nil
	})
	_ = bus.TriggerEvent(context.Background(), HoistedNoteChanged, nil)
	unsubscribe()
	_ = bus.TriggerEvent(context.Background(), HoistedNoteChanged, nil)
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

func TestTriggerCommand(t *testing.T) {
	bus := NewBus(nil)
	if err := bus.TriggerCommand(context.Background(), SetActiveScreenCommand, nil); err != nil {
		t.Fatalf("unhandled command should be a no-op, got %v", err)
	}
	var got any
	remove := bus.HandleCommand(SetActiveScreenCommand, func(ctx context.Context, payload any) error {
		got = payload
		return nil
	})
	if err := bus.TriggerCommand(context.Background(), SetActiveScreenCommand, "detail"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if got != "detail" {
		t.Fatalf("unexpected payload: %#v", got)
	}
	remove()
	got = nil
	_ = bus.TriggerCommand(context.Background(), SetActiveScreenCommand, "tree")
	if got != nil {
		t.Fatalf("expected removed handler not to run")
	}
}

func TestNilBusIsSafe(t *testing.T) {
	var bus *Bus
	if err := bus.TriggerEvent(context.Background(), NoteSwitched, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bus.Subscribe(NoteSwitched, func(ctx context.Context, event Event) error { return nil })()
}
