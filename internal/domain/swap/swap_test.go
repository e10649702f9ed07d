package swap

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewDefaults(t *testing.T) {
	requester := uuid.New()
	counterpart := uuid.New()
	offered := uuid.New()
	requested := uuid.New()

	r := New(requester, counterpart, offered, requested, nil, 0)
	if r.Status != StatusPending {
		t.Fatalf("expected pending, got %s", r.Status)
	}
	window := r.ExpiresAt.Sub(r.CreatedAt)
	if window != DefaultTTL {
		t.Fatalf("expected 7 day expiry window, got %v", window)
	}
	if !r.IsParty(requester) || !r.IsParty(counterpart) {
		t.Fatal("both participants should be parties")
	}
	if r.IsParty(uuid.New()) {
		t.Fatal("stranger should not be a party")
	}
	if !r.References(offered) || !r.References(requested) {
		t.Fatal("both slots should be referenced")
	}
}

func TestResolveIsTerminalOnce(t *testing.T) {
	r := New(uuid.New(), uuid.New(), uuid.New(), uuid.New(), nil, time.Hour)
	msg := "sounds good"
	if err := r.Resolve(StatusAccepted, &msg, time.Now()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.Status != StatusAccepted || r.RespondedAt == nil {
		t.Fatal("expected resolved request with response timestamp")
	}
	if err := r.Resolve(StatusRejected, nil, time.Now()); err != ErrTerminal {
		t.Fatalf("expected ErrTerminal on second resolve, got %v", err)
	}
	if r.Status != StatusAccepted {
		t.Fatal("terminal status must never revert")
	}
}

func TestResolveRejectsPendingTarget(t *testing.T) {
	r := New(uuid.New(), uuid.New(), uuid.New(), uuid.New(), nil, time.Hour)
	if err := r.Resolve(StatusPending, nil, time.Now()); err != ErrTerminal {
		t.Fatalf("expected ErrTerminal resolving to pending, got %v", err)
	}
}
