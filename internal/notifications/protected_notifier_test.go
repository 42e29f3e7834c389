package notifications

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) NotifyPurge(ctx context.Context, in PurgeNotice) error {
	f.calls++
	return f.err
}

func TestProtectedNotifier_OpensAfterThreshold(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("sink down")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 2, Cooldown: time.Minute})

	ctx := context.Background()
	_ = n.NotifyPurge(ctx, PurgeNotice{})
	_ = n.NotifyPurge(ctx, PurgeNotice{})

	if n.State() != string(stateOpen) {
		t.Fatalf("state = %s, want open", n.State())
	}

	if err := n.NotifyPurge(ctx, PurgeNotice{}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("want ErrCircuitOpen, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("inner called %d times while open, want 2", inner.calls)
	}
}

func TestProtectedNotifier_HalfOpenRecovers(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("sink down")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 1, Cooldown: time.Minute})

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return clock }

	ctx := context.Background()
	_ = n.NotifyPurge(ctx, PurgeNotice{})
	if n.State() != string(stateOpen) {
		t.Fatalf("state = %s, want open", n.State())
	}

	clock = clock.Add(2 * time.Minute)
	inner.err = nil

	if err := n.NotifyPurge(ctx, PurgeNotice{}); err != nil {
		t.Fatalf("trial call failed: %v", err)
	}
	if n.State() != string(stateClosed) {
		t.Fatalf("state = %s, want closed", n.State())
	}
}

func TestProtectedNotifier_HalfOpenFailureReopens(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("sink down")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 1, Cooldown: time.Second})

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return clock }

	ctx := context.Background()
	_ = n.NotifyPurge(ctx, PurgeNotice{})
	clock = clock.Add(2 * time.Second)
	_ = n.NotifyPurge(ctx, PurgeNotice{})

	if n.State() != string(stateOpen) {
		t.Fatalf("state = %s, want open", n.State())
	}
}
