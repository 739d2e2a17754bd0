package store

import (
	"regexp"
	"testing"
)

var hexID = regexp.MustCompile(`^[0-9a-f]{12}$`)

func TestJobIDDeterministic(t *testing.T) {
	url := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	first := JobID(url)
	for i := 0; i < 100; i++ {
		if got := JobID(url); got != first {
			t.Fatalf("JobID not deterministic: %q then %q", first, got)
		}
	}
	if !hexID.MatchString(first) {
		t.Errorf("JobID = %q, want 12 lowercase hex characters", first)
	}
}

func TestJobIDDistinguishesURLs(t *testing.T) {
	a := JobID("https://www.youtube.com/watch?v=aaaaaaaaaaa")
	b := JobID("https://www.youtube.com/watch?v=bbbbbbbbbbb")
	if a == b {
		t.Errorf("distinct URLs hashed to the same id %q", a)
	}
}

func TestCompositeJobIDOrderSensitive(t *testing.T) {
	urls := []string{
		"https://youtu.be/aaaaaaaaaaa",
		"https://youtu.be/bbbbbbbbbbb",
		"https://youtu.be/ccccccccccc",
	}
	id := CompositeJobID(urls)
	if !hexID.MatchString(id) {
		t.Errorf("CompositeJobID = %q, want 12 lowercase hex characters", id)
	}
	if again := CompositeJobID(urls); again != id {
		t.Errorf("CompositeJobID not deterministic: %q then %q", id, again)
	}

	permuted := []string{urls[1], urls[0], urls[2]}
	if CompositeJobID(permuted) == id {
		t.Error("member order is part of the identity; permutation must change the id")
	}
}
