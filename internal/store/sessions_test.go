package store

import (
	"testing"
	"time"
)

func TestAppendExchangeKeepsOrder(t *testing.T) {
	s := New(0, 0)

	s.AppendExchange("vid1_s1", "vid1",
		Turn{Role: "user", Text: "what is this video about?"},
		Turn{Role: "assistant", Text: "it covers goroutines", Sources: []string{"snippet"}})
	s.AppendExchange("vid1_s1", "vid1",
		Turn{Role: "user", Text: "and channels?"},
		Turn{Role: "assistant", Text: "yes, buffered and unbuffered"})

	turns := s.History("vid1_s1")
	if len(turns) != 4 {
		t.Fatalf("history has %d turns, want 4 (two user+assistant pairs)", len(turns))
	}
	wantRoles := []string{"user", "assistant", "user", "assistant"}
	for i, turn := range turns {
		if turn.Role != wantRoles[i] {
			t.Errorf("turn %d role = %q, want %q", i, turn.Role, wantRoles[i])
		}
	}
	if turns[1].Text == "" || turns[3].Text == "" {
		t.Error("assistant turns must carry non-empty text")
	}
	if turns[3].Text != "yes, buffered and unbuffered" {
		t.Errorf("turns out of submission order: last = %q", turns[3].Text)
	}
}

func TestHistoryUnknownSessionIsEmpty(t *testing.T) {
	s := New(0, 0)
	turns := s.History("nope_123")
	if turns == nil {
		t.Fatal("unknown session should yield an empty slice, not nil")
	}
	if len(turns) != 0 {
		t.Errorf("unknown session has %d turns", len(turns))
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	s := New(0, 0)
	s.AppendExchange("vid1_s1", "vid1",
		Turn{Role: "user", Text: "q"},
		Turn{Role: "assistant", Text: "a"})

	turns := s.History("vid1_s1")
	turns[0].Text = "mutated"

	if s.History("vid1_s1")[0].Text != "q" {
		t.Error("caller mutation leaked into the session store")
	}
}

func TestSessionCount(t *testing.T) {
	s := New(0, 0)
	s.AppendExchange("vid1_a", "vid1", Turn{Role: "user", Text: "q"}, Turn{Role: "assistant", Text: "a"})
	s.AppendExchange("vid1_b", "vid1", Turn{Role: "user", Text: "q"}, Turn{Role: "assistant", Text: "a"})
	s.AppendExchange("vid1_a", "vid1", Turn{Role: "user", Text: "q2"}, Turn{Role: "assistant", Text: "a2"})

	if got := s.SessionCount(); got != 2 {
		t.Errorf("SessionCount = %d, want 2", got)
	}
}

func TestSessionEvictionDropsOldest(t *testing.T) {
	clock := newFakeClock()
	s := NewWithClock(0, 2, clock)

	s.AppendExchange("vid1_old", "vid1", Turn{Role: "user", Text: "q"}, Turn{Role: "assistant", Text: "a"})
	clock.Advance(time.Minute)
	s.AppendExchange("vid1_mid", "vid1", Turn{Role: "user", Text: "q"}, Turn{Role: "assistant", Text: "a"})
	clock.Advance(time.Minute)
	s.AppendExchange("vid1_new", "vid1", Turn{Role: "user", Text: "q"}, Turn{Role: "assistant", Text: "a"})

	if len(s.History("vid1_old")) != 0 {
		t.Error("oldest session should have been evicted at capacity")
	}
	if len(s.History("vid1_mid")) == 0 || len(s.History("vid1_new")) == 0 {
		t.Error("newer sessions must survive eviction")
	}
}
