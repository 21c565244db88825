package backend

import (
	"context"
	"errors"
	"testing"
)

func TestMock_DefaultSessionsAreFresh(t *testing.T) {
	m := NewMock()
	a, _ := m.CreateSession(context.Background())
	b, _ := m.CreateSession(context.Background())
	if a == b {
		t.Errorf("sessions not fresh: %q == %q", a, b)
	}
	if got := len(m.CallsTo("create_session")); got != 2 {
		t.Errorf("create_session calls = %d, want 2", got)
	}
}

func TestMock_FuncOverrides(t *testing.T) {
	m := NewMock()
	boom := errors.New("boom")
	m.ChatFunc = func(ctx context.Context, query, sessionID string) (*ChatReply, error) {
		return nil, boom
	}
	if _, err := m.Chat(context.Background(), "q", "s"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	calls := m.CallsTo("chat")
	if len(calls) != 1 || calls[0].Args[0] != "q" || calls[0].Args[1] != "s" {
		t.Errorf("calls = %+v", calls)
	}
}
