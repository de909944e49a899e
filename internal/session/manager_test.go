package session

import (
	"context"
	"testing"
	"time"

	"parley/internal/backend"
	"parley/internal/engine"
)

func newTestManager(timeout time.Duration) *Manager {
	return NewManager(func() *engine.Engine {
		return engine.New(backend.NewMockGenerator(), nil)
	}, timeout)
}

func TestManagerCreateGetEnd(t *testing.T) {
	m := newTestManager(time.Minute)
	s := m.Create("web")
	if s.ID == "" {
		t.Fatalf("session ID should not be empty")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Label != "web" || got.Status != StatusActive {
		t.Fatalf("unexpected session state: %+v", got)
	}

	ended, eng, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("ended status = %q, want %q", ended.Status, StatusEnded)
	}
	if eng == nil {
		t.Fatalf("End() should return the session engine")
	}
	if _, err := m.Engine(s.ID); err != ErrNotFound {
		t.Fatalf("Engine() after End error = %v, want ErrNotFound", err)
	}
}

func TestManagerEnginePerSession(t *testing.T) {
	m := newTestManager(time.Minute)
	a := m.Create("")
	b := m.Create("")

	ea, err := m.Engine(a.ID)
	if err != nil {
		t.Fatalf("Engine(a) error = %v", err)
	}
	eb, err := m.Engine(b.ID)
	if err != nil {
		t.Fatalf("Engine(b) error = %v", err)
	}
	if ea == eb {
		t.Fatalf("sessions must not share an engine")
	}

	if _, err := ea.Respond(context.Background(), "hello"); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if eb.Stats().TotalMessages != 0 {
		t.Fatalf("engine b should be untouched")
	}
}

func TestManagerGetUnknown(t *testing.T) {
	m := newTestManager(time.Minute)
	if _, err := m.Get("nope"); err != ErrNotFound {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestManagerExpireInactive(t *testing.T) {
	m := newTestManager(10 * time.Millisecond)
	s := m.Create("")

	expired := make(chan string, 1)
	m.SetExpireHook(func(meta *Session, _ *engine.Engine) {
		expired <- meta.ID
	})

	time.Sleep(20 * time.Millisecond)
	m.expireInactive()

	select {
	case id := <-expired:
		if id != s.ID {
			t.Fatalf("expired ID = %q, want %q", id, s.ID)
		}
	default:
		t.Fatalf("expire hook was not called")
	}

	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() = %d, want 0", m.ActiveCount())
	}
}

func TestManagerTouchKeepsAlive(t *testing.T) {
	m := newTestManager(50 * time.Millisecond)
	s := m.Create("")

	time.Sleep(30 * time.Millisecond)
	if err := m.Touch(s.ID); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	m.expireInactive()

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusActive {
		t.Fatalf("touched session expired: %+v", got)
	}
}
