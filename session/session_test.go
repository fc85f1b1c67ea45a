package session

import (
	"errors"
	"regexp"
	"testing"
	"time"
)

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestNewSessionToken(t *testing.T) {
	st := NewStore(time.Hour, 1000)

	s, err := st.New()
	if err != nil {
		t.Fatal(err)
	}

	if !tokenPattern.MatchString(s.Token) {
		t.Errorf("Expected a 64-char hex token, got %q", s.Token)
	}

	other, err := st.New()
	if err != nil {
		t.Fatal(err)
	}
	if other.Token == s.Token {
		t.Error("Expected distinct tokens")
	}
}

func TestGetPokesSession(t *testing.T) {
	st := NewStore(time.Hour, 1000)
	now := time.Unix(1000, 0)
	st.now = func() time.Time { return now }

	s, err := st.New()
	if err != nil {
		t.Fatal(err)
	}

	now = now.Add(10 * time.Minute)
	got := st.Get(s.Token)
	if got == nil {
		t.Fatal("Expected session to resolve")
	}
	if !got.LastPoked.Equal(now) {
		t.Errorf("Expected LastPoked refreshed to %v, got %v", now, got.LastPoked)
	}
}

func TestGetUnknownToken(t *testing.T) {
	st := NewStore(time.Hour, 1000)

	if got := st.Get("nope"); got != nil {
		t.Errorf("Expected nil for unknown token, got %v", got)
	}
	if got := st.Get(""); got != nil {
		t.Errorf("Expected nil for empty token, got %v", got)
	}
}

func TestIdleSessionEvictedLazily(t *testing.T) {
	st := NewStore(time.Minute, 1000)
	now := time.Unix(1000, 0)
	st.now = func() time.Time { return now }

	s, err := st.New()
	if err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Minute)
	if got := st.Get(s.Token); got != nil {
		t.Error("Expected idle session to be evicted on lookup")
	}
	if st.Len() != 0 {
		t.Errorf("Expected empty table after eviction, got %d", st.Len())
	}
}

func TestPokeIdempotence(t *testing.T) {
	st := NewStore(time.Hour, 1000)
	now := time.Unix(1000, 0)
	st.now = func() time.Time { return now }

	s, err := st.New()
	if err != nil {
		t.Fatal(err)
	}

	st.Poke(s)
	once := s.LastPoked
	st.Poke(s)
	if !s.LastPoked.Equal(once) {
		t.Error("Expected repeated poke at the same instant to be equivalent")
	}
}

func TestCounterDrivenSweep(t *testing.T) {
	st := NewStore(time.Minute, 3)
	now := time.Unix(1000, 0)
	st.now = func() time.Time { return now }

	first, err := st.New()
	if err != nil {
		t.Fatal(err)
	}

	// Let the first session go idle, then create enough sessions to
	// trip the sweep counter.
	now = now.Add(2 * time.Minute)
	if _, err := st.New(); err != nil {
		t.Fatal(err)
	}
	if _, err := st.New(); err != nil {
		t.Fatal(err)
	}

	if _, found := st.sessions[first.Token]; found {
		t.Error("Expected the idle session to be swept")
	}
	if st.Len() != 2 {
		t.Errorf("Expected 2 live sessions, got %d", st.Len())
	}
}

func TestCleanReportsRemovals(t *testing.T) {
	st := NewStore(time.Minute, 1000)
	now := time.Unix(1000, 0)
	st.now = func() time.Time { return now }

	if _, err := st.New(); err != nil {
		t.Fatal(err)
	}
	if _, err := st.New(); err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Minute)
	if removed := st.Clean(); removed != 2 {
		t.Errorf("Expected 2 removals, got %d", removed)
	}
}

func TestHooksRunInOrder(t *testing.T) {
	st := NewStore(time.Hour, 1000)

	var order []string
	st.OnNew(func(s *Session) error {
		order = append(order, "first")
		s.Set("greeted", true)
		return nil
	})
	st.OnNew(func(s *Session) error {
		order = append(order, "second")
		return nil
	})

	s, err := st.New()
	if err != nil {
		t.Fatal(err)
	}

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("Expected hooks in registration order, got %v", order)
	}
	if !s.Has("greeted") {
		t.Error("Expected hook-set value to persist on the session")
	}
}

func TestHookErrorPropagates(t *testing.T) {
	st := NewStore(time.Hour, 1000)

	boom := errors.New("boom")
	st.OnNew(func(s *Session) error { return boom })

	if _, err := st.New(); !errors.Is(err, boom) {
		t.Errorf("Expected hook error to propagate, got %v", err)
	}
}

func TestClearHooks(t *testing.T) {
	st := NewStore(time.Hour, 1000)

	st.OnNew(func(s *Session) error { return errors.New("should not run") })
	st.ClearHooks()

	if _, err := st.New(); err != nil {
		t.Errorf("Expected no hooks after clear, got %v", err)
	}
}

func TestSessionValues(t *testing.T) {
	st := NewStore(time.Hour, 1000)
	s, err := st.New()
	if err != nil {
		t.Fatal(err)
	}

	if v := s.Get("missing", "fallback"); v != "fallback" {
		t.Errorf("Expected fallback, got %v", v)
	}
	s.Set("visits", 3)
	if v := s.Get("visits", 0); v != 3 {
		t.Errorf("Expected 3, got %v", v)
	}
	if !s.Has("visits") {
		t.Error("Expected Has to see the value")
	}
}
