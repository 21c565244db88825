package backend

import (
	"context"
	"fmt"
	"sync"
)

// Mock implements every backend call for tests. Each call is recorded; the
// Func fields, when set, decide the outcome. Unset funcs return canned
// successes so tests only configure what they care about.
type Mock struct {
	CreateSessionFunc  func(ctx context.Context) (string, error)
	DeleteSessionFunc  func(ctx context.Context, id string) error
	ChatFunc           func(ctx context.Context, query, sessionID string) (*ChatReply, error)
	ListPropertiesFunc func(ctx context.Context) (*PropertyList, error)
	NearbyFunc         func(ctx context.Context, propertyName, placeType string) (*NearbyResult, error)
	HealthFunc         func(ctx context.Context) (*Health, error)

	mu       sync.Mutex
	sessions int
	calls    []Call
}

// Call is one recorded invocation.
type Call struct {
	Op   string
	Args []string
}

// NewMock creates a Mock with default behavior.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) record(op string, args ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: op, Args: args})
}

// CreateSession returns "session-N" unless CreateSessionFunc is set.
func (m *Mock) CreateSession(ctx context.Context) (string, error) {
	m.record("create_session")
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions++
	return fmt.Sprintf("session-%d", m.sessions), nil
}

// DeleteSession succeeds unless DeleteSessionFunc is set.
func (m *Mock) DeleteSession(ctx context.Context, id string) error {
	m.record("delete_session", id)
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, id)
	}
	return nil
}

// Chat echoes the query unless ChatFunc is set.
func (m *Mock) Chat(ctx context.Context, query, sessionID string) (*ChatReply, error) {
	m.record("chat", query, sessionID)
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, query, sessionID)
	}
	return &ChatReply{Text: "echo: " + query, Images: []string{}, Suggestions: []string{}}, nil
}

// ListProperties returns an empty list unless ListPropertiesFunc is set.
func (m *Mock) ListProperties(ctx context.Context) (*PropertyList, error) {
	m.record("list_properties")
	if m.ListPropertiesFunc != nil {
		return m.ListPropertiesFunc(ctx)
	}
	return &PropertyList{}, nil
}

// Nearby returns no places unless NearbyFunc is set.
func (m *Mock) Nearby(ctx context.Context, propertyName, placeType string) (*NearbyResult, error) {
	m.record("nearby", propertyName, placeType)
	if m.NearbyFunc != nil {
		return m.NearbyFunc(ctx, propertyName, placeType)
	}
	return &NearbyResult{Places: []Place{}}, nil
}

// Health reports healthy unless HealthFunc is set.
func (m *Mock) Health(ctx context.Context) (*Health, error) {
	m.record("health")
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return &Health{Status: "healthy"}, nil
}

// --- Test helpers ---

// Calls returns a copy of every recorded call.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsTo returns the recorded calls for one operation.
func (m *Mock) CallsTo(op string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}
