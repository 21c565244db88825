package conversation

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/zulandar/proptalk/internal/property"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func TestAppend_IDsIncreaseAndOrderIsAppendOrder(t *testing.T) {
	s := NewStore(StoreOpts{Now: fixedClock()})
	var want []string
	for i := 0; i < 20; i++ {
		text := fmt.Sprintf("msg-%d", i)
		if i%3 == 0 {
			s.AppendAssistant(Reply{Text: text})
		} else {
			s.AppendUser(text)
		}
		want = append(want, text)
	}

	msgs := s.Messages()
	var got []string
	for i, m := range msgs {
		got = append(got, m.Text)
		if i > 0 && m.ID <= msgs[i-1].ID {
			t.Errorf("id[%d] = %d not greater than id[%d] = %d", i, m.ID, i-1, msgs[i-1].ID)
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("display order mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendUser_Fields(t *testing.T) {
	s := NewStore(StoreOpts{Now: fixedClock()})
	m := s.AppendUser("2BHK under 100 lakhs in Kadri")
	if m.Role != RoleUser {
		t.Errorf("Role = %q, want user", m.Role)
	}
	if m.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	if m.Properties == nil || m.Images == nil || m.Suggestions == nil {
		t.Error("optional collections must be non-nil")
	}
}

func TestAppendAssistant_MapsReply(t *testing.T) {
	s := NewStore(StoreOpts{})
	props := []property.Summary{{Name: "Ocean Pearl", Price: "60"}}
	m := s.AppendAssistant(Reply{
		Text:        "Here you go",
		Properties:  props,
		Images:      []string{"https://img/1.jpg"},
		Suggestions: []string{"A", "B"},
	})
	if m.Role != RoleAssistant {
		t.Errorf("Role = %q, want assistant", m.Role)
	}
	if diff := cmp.Diff(props, m.Properties); diff != "" {
		t.Errorf("properties mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A", "B"}, m.Suggestions); diff != "" {
		t.Errorf("suggestions mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendAssistant_NilCollectionsBecomeEmpty(t *testing.T) {
	s := NewStore(StoreOpts{})
	m := s.AppendAssistant(Reply{Text: "hi"})
	if m.Properties == nil || m.Images == nil || m.Suggestions == nil {
		t.Errorf("got nil collection in %+v", m)
	}
}

func TestMessages_AreImmutableCopies(t *testing.T) {
	s := NewStore(StoreOpts{})
	in := []string{"A"}
	s.AppendAssistant(Reply{Text: "hi", Suggestions: in})
	in[0] = "changed by caller"

	out := s.Messages()
	out[0].Text = "changed"
	out[0].Suggestions[0] = "changed"

	again := s.Messages()
	if again[0].Text != "hi" || again[0].Suggestions[0] != "A" {
		t.Errorf("stored message mutated: %+v", again[0])
	}
}

func TestClear_IDsNeverReused(t *testing.T) {
	s := NewStore(StoreOpts{})
	s.AppendUser("one")
	last := s.AppendUser("two")
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("Len() = %d after Clear, want 0", s.Len())
	}
	next := s.AppendUser("three")
	if next.ID <= last.ID {
		t.Errorf("id after Clear = %d, want > %d", next.ID, last.ID)
	}
}

func TestLastAndLastAssistant(t *testing.T) {
	s := NewStore(StoreOpts{})
	if _, ok := s.Last(); ok {
		t.Error("Last() on empty store should report false")
	}
	s.AppendAssistant(Reply{Text: "welcome"})
	s.AppendUser("hello")

	last, _ := s.Last()
	if last.Text != "hello" {
		t.Errorf("Last().Text = %q, want hello", last.Text)
	}
	la, ok := s.LastAssistant()
	if !ok || la.Text != "welcome" {
		t.Errorf("LastAssistant() = (%q, %v), want welcome", la.Text, ok)
	}
}
