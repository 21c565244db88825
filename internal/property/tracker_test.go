package property

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTracker_ExplicitWinsOverResolved(t *testing.T) {
	tr := NewTracker()
	known := []Summary{{Name: "Ocean Pearl"}, {Name: "NorthernSky City"}}

	if _, ok := tr.Note("tell me about ocean pearl", known); !ok {
		t.Fatal("Note should resolve Ocean Pearl")
	}
	tr.SetLastMentioned("NorthernSky City")

	got, ok := tr.LastMentioned()
	if !ok || got != "NorthernSky City" {
		t.Errorf("LastMentioned() = (%q, %v), want NorthernSky City", got, ok)
	}
}

func TestTracker_NoteWithoutMentionKeepsPrevious(t *testing.T) {
	tr := NewTracker()
	tr.SetLastMentioned("Ocean Pearl")
	if _, ok := tr.Note("anything with a pool?", []Summary{{Name: "Palm Bay"}}); ok {
		t.Fatal("Note should not resolve")
	}
	if got, _ := tr.LastMentioned(); got != "Ocean Pearl" {
		t.Errorf("LastMentioned() = %q, want Ocean Pearl", got)
	}
}

func TestTracker_EmptyByDefault(t *testing.T) {
	tr := NewTracker()
	if _, ok := tr.LastMentioned(); ok {
		t.Error("new tracker should have no last mention")
	}
	if tr.Behavior() == nil {
		t.Error("Behavior() should never be nil")
	}
	if got := tr.PendingSuggestions(); got == nil || len(got) != 0 {
		t.Errorf("PendingSuggestions() = %#v, want empty non-nil", got)
	}
}

func TestTracker_SuggestionsAreCopied(t *testing.T) {
	tr := NewTracker()
	in := []string{"A", "B"}
	tr.SetPendingSuggestions(in)
	in[0] = "mutated"
	out := tr.PendingSuggestions()
	out[1] = "mutated"
	if diff := cmp.Diff([]string{"A", "B"}, tr.PendingSuggestions()); diff != "" {
		t.Errorf("suggestions leaked (-want +got):\n%s", diff)
	}
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker()
	tr.SetLastMentioned("Ocean Pearl")
	tr.SetBehavior(Behavior{"conversation_stage": "decision"})
	tr.SetPendingSuggestions([]string{"A"})
	tr.Reset()

	if _, ok := tr.LastMentioned(); ok {
		t.Error("last mention survived Reset")
	}
	if tr.Behavior().Stage() != "discovery" {
		t.Error("behavior survived Reset")
	}
	if len(tr.PendingSuggestions()) != 0 {
		t.Error("suggestions survived Reset")
	}
}

func TestBehavior_Accessors(t *testing.T) {
	b := Behavior{
		"conversation_stage": "evaluation",
		"interests":          []any{"pool", "schools"},
	}
	if b.Stage() != "evaluation" {
		t.Errorf("Stage() = %q, want evaluation", b.Stage())
	}
	if diff := cmp.Diff([]string{"pool", "schools"}, b.Interests()); diff != "" {
		t.Errorf("Interests() mismatch (-want +got):\n%s", diff)
	}
	if (Behavior{}).Stage() != "discovery" {
		t.Error("empty behavior should default to discovery")
	}
	if (Behavior{"interests": 3}).Interests() != nil {
		t.Error("malformed interests should yield nil")
	}
}
