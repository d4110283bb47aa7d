package resilience

import (
	"errors"
	"testing"
	"time"
)

var errEngine = errors.New("engine unavailable")

func fail() error { return errEngine }
func ok() error   { return nil }

func TestClosedStateAllowsCalls(t *testing.T) {
	b := NewBreaker(3, time.Second)
	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("called=%v err=%v", called, err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %s", b.State())
	}
}

func TestOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Second)
	for i := 0; i < 3; i++ {
		if err := b.Execute(fail); !errors.Is(err, errEngine) {
			t.Fatalf("call %d: expected errEngine, got %v", i, err)
		}
	}
	if err := b.Execute(ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestHalfOpenSuccessCloses(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	_ = b.Execute(fail)
	_ = b.Execute(fail)
	if err := b.Execute(ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	now = now.Add(2 * time.Second)
	if err := b.Execute(ok); err != nil {
		t.Fatalf("expected half-open call to run, got %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed", b.State())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	_ = b.Execute(fail)
	_ = b.Execute(fail)
	now = now.Add(2 * time.Second)
	_ = b.Execute(fail)

	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}
	if err := b.Execute(ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen after reopen, got %v", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Second)
	_ = b.Execute(fail)
	_ = b.Execute(fail)
	_ = b.Execute(ok)
	_ = b.Execute(fail)
	_ = b.Execute(fail)

	if err := b.Execute(ok); err != nil {
		t.Fatalf("expected closed breaker, got %v", err)
	}
}

func TestPanicIsRecoveredAsFailure(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	err := b.Execute(func() error { panic("nil map") })
	if !errors.Is(err, ErrPanic) {
		t.Fatalf("expected ErrPanic, got %v", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}
}

func TestOnStateChange(t *testing.T) {
	now := time.Now()
	b := NewBreaker(1, time.Second)
	b.now = func() time.Time { return now }

	var seen []string
	b.OnStateChange(func(from, to State) {
		seen = append(seen, from.String()+">"+to.String())
	})

	_ = b.Execute(fail)
	now = now.Add(2 * time.Second)
	_ = b.Execute(ok)

	want := []string{"closed>open", "open>half-open", "half-open>closed"}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", seen, want)
		}
	}
}

func TestNewBreakerClampsMaxFailures(t *testing.T) {
	b := NewBreaker(0, time.Second)
	_ = b.Execute(fail)
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}
}
