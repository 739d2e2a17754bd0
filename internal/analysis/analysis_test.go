package analysis

import (
	"strings"
	"testing"

	"github.com/kalambet/ttyv/internal/store"
)

func chunks(texts ...string) []store.Chunk {
	out := make([]store.Chunk, len(texts))
	for i, t := range texts {
		out[i] = store.Chunk{Seq: i, Text: t}
	}
	return out
}

func TestValidVariant(t *testing.T) {
	for _, v := range Variants() {
		if !ValidVariant(v) {
			t.Errorf("ValidVariant(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"", "detailed", "COMPREHENSIVE", "bullet-points"} {
		if ValidVariant(v) {
			t.Errorf("ValidVariant(%q) = true, want false", v)
		}
	}
}

func TestValidGrouping(t *testing.T) {
	for _, g := range []string{GroupingTemporal, GroupingTopical, GroupingChannel} {
		if !ValidGrouping(g) {
			t.Errorf("ValidGrouping(%q) = false, want true", g)
		}
	}
	if ValidGrouping("alphabetical") {
		t.Error("ValidGrouping(alphabetical) = true, want false")
	}
}

func TestJoinChunks(t *testing.T) {
	cs := chunks("one", "two", "three")

	if got := JoinChunks(cs, 0); got != "one two three" {
		t.Errorf("JoinChunks(all) = %q", got)
	}
	if got := JoinChunks(cs, 2); got != "one two" {
		t.Errorf("JoinChunks(2) = %q", got)
	}
	if got := JoinChunks(cs, 99); got != "one two three" {
		t.Errorf("JoinChunks(over) = %q", got)
	}
	if got := JoinChunks(nil, 3); got != "" {
		t.Errorf("JoinChunks(nil) = %q, want empty", got)
	}
}

func TestCleanSummary(t *testing.T) {
	prose := "First line.\nSecond   line.\n\nThird line.\n"

	got := CleanSummary(VariantComprehensive, prose)
	if got != "First line. Second line. Third line." {
		t.Errorf("comprehensive = %q", got)
	}
	if strings.Contains(got, "\n") {
		t.Error("prose variant kept newlines")
	}

	bullets := "**Key Points:**\n• one\n• two"
	if got := CleanSummary(VariantBulletPoints, bullets); got != bullets {
		t.Errorf("bullet_points = %q, want input preserved", got)
	}
	listy := "**Topic 1: Go**\ndetail"
	if got := CleanSummary(VariantKeyTopics, listy); got != listy {
		t.Errorf("key_topics = %q, want input preserved", got)
	}
}

func TestClip(t *testing.T) {
	if got := clip("short", 10); got != "short" {
		t.Errorf("clip(short) = %q", got)
	}
	if got := clip("0123456789abc", 10); got != "0123456789..." {
		t.Errorf("clip(long) = %q", got)
	}
}

func TestOrUnknown(t *testing.T) {
	if got := orUnknown("", "fallback"); got != "fallback" {
		t.Errorf("orUnknown(empty) = %q", got)
	}
	if got := orUnknown("   ", "fallback"); got != "fallback" {
		t.Errorf("orUnknown(blank) = %q", got)
	}
	if got := orUnknown("value", "fallback"); got != "value" {
		t.Errorf("orUnknown(value) = %q", got)
	}
}
