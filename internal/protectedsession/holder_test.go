package protectedsession

import (
	"testing"
	"time"
)

type fakeNote bool

func (n fakeNote) IsProtected() bool { return bool(n) }

func TestTouchIfNecessaryExtendsSession(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	expired := 0
	holder := NewHolder(time.Minute, withClock(func() time.Time { return now }), WithExpireCallback(func() { expired++ }))
	holder.Enable()

	now = now.Add(50 * time.Second)
	holder.TouchIfNecessary(fakeNote(false))
	now = now.Add(20 * time.Second)
	if !holder.ExpireIfIdle() {
		t.Fatalf("unprotected notes must not extend the session")
	}
	if holder.IsAvailable() || expired != 1 {
		t.Fatalf("expected expired session, available=%v expired=%d", holder.IsAvailable(), expired)
	}

	holder.Enable()
	now = now.Add(50 * time.Second)
	holder.TouchIfNecessary(fakeNote(true))
	now = now.Add(20 * time.Second)
	if holder.ExpireIfIdle() {
		t.Fatalf("protected note should have kept the session alive")
	}
	if !holder.IsAvailable() {
		t.Fatalf("expected session to stay available")
	}
}

func TestTouchWithoutSessionIsNoop(t *testing.T) {
	holder := NewHolder(time.Minute)
	holder.TouchIfNecessary(fakeNote(true))
	if holder.IsAvailable() {
		t.Fatalf("touch must not open a session")
	}
	if holder.ExpireIfIdle() {
		t.Fatalf("nothing to expire")
	}
	var nilHolder *Holder
	nilHolder.TouchIfNecessary(fakeNote(true))
}
