package mapsync

import (
	"fmt"
	"sync"
)

// MockLibrary implements Library for testing. It records every map, marker
// and overlay it hands out. By default it is available immediately.
type MockLibrary struct {
	mu             sync.Mutex
	unavailableFor int // number of Available calls that report false; -1 = never available
	checks         int
	newMapErr      error
	addMarkerErr   error
	maps           []*MockMap
}

// NewMockLibrary creates an available MockLibrary.
func NewMockLibrary() *MockLibrary {
	return &MockLibrary{}
}

// SetUnavailableFor makes the first n Available calls report false.
func (l *MockLibrary) SetUnavailableFor(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unavailableFor = n
}

// SetNeverAvailable makes every Available call report false.
func (l *MockLibrary) SetNeverAvailable() {
	l.SetUnavailableFor(-1)
}

// SetNewMapError makes NewMap fail with err.
func (l *MockLibrary) SetNewMapError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.newMapErr = err
}

// SetAddMarkerError makes AddMarker fail with err on every map.
func (l *MockLibrary) SetAddMarkerError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addMarkerErr = err
}

// Available counts the check and reports availability.
func (l *MockLibrary) Available() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checks++
	if l.unavailableFor < 0 {
		return false
	}
	return l.checks > l.unavailableFor
}

// NewMap records and returns a MockMap.
func (l *MockLibrary) NewMap(opts MapOptions) (Map, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.newMapErr != nil {
		return nil, l.newMapErr
	}
	m := &MockMap{lib: l, Options: opts, ChecksAtCreate: l.checks}
	l.maps = append(l.maps, m)
	return m, nil
}

// --- Test helpers ---

// Checks returns how many times Available was called.
func (l *MockLibrary) Checks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checks
}

// Maps returns every map created so far, destroyed ones included.
func (l *MockLibrary) Maps() []*MockMap {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*MockMap(nil), l.maps...)
}

// Current returns the newest map that has not been destroyed.
func (l *MockLibrary) Current() (*MockMap, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.maps) - 1; i >= 0; i-- {
		if !l.maps[i].destroyed {
			return l.maps[i], true
		}
	}
	return nil, false
}

// MockMap implements Map. It shares its library's lock.
type MockMap struct {
	lib            *MockLibrary
	Options        MapOptions
	ChecksAtCreate int // Available calls made before this map was created

	markers   []*MockMarker
	destroyed bool
	open      *MockMarker
	overlay   Overlay
	opens     int
}

// AddMarker records a marker.
func (m *MockMap) AddMarker(opts MarkerOptions) (Marker, error) {
	m.lib.mu.Lock()
	defer m.lib.mu.Unlock()
	if m.destroyed {
		return nil, fmt.Errorf("mock map: destroyed")
	}
	if m.lib.addMarkerErr != nil {
		return nil, m.lib.addMarkerErr
	}
	mk := &MockMarker{lib: m.lib, Options: opts}
	m.markers = append(m.markers, mk)
	return mk, nil
}

// OpenOverlay opens o on mk, replacing any open overlay.
func (m *MockMap) OpenOverlay(mk Marker, o Overlay) error {
	m.lib.mu.Lock()
	defer m.lib.mu.Unlock()
	mm, ok := mk.(*MockMarker)
	if !ok {
		return fmt.Errorf("mock map: foreign marker %T", mk)
	}
	m.open = mm
	m.overlay = o
	m.opens++
	return nil
}

// Destroy marks the map destroyed.
func (m *MockMap) Destroy() {
	m.lib.mu.Lock()
	defer m.lib.mu.Unlock()
	m.destroyed = true
	m.open = nil
}

// Destroyed reports whether Destroy was called.
func (m *MockMap) Destroyed() bool {
	m.lib.mu.Lock()
	defer m.lib.mu.Unlock()
	return m.destroyed
}

// Markers returns the markers that have not been removed.
func (m *MockMap) Markers() []*MockMarker {
	m.lib.mu.Lock()
	defer m.lib.mu.Unlock()
	var out []*MockMarker
	for _, mk := range m.markers {
		if !mk.removed {
			out = append(out, mk)
		}
	}
	return out
}

// Marker returns the live marker with the given name.
func (m *MockMap) Marker(name string) (*MockMarker, bool) {
	for _, mk := range m.Markers() {
		if mk.Options.Name == name {
			return mk, true
		}
	}
	return nil, false
}

// OpenOverlays returns the number of overlays currently open: zero or one.
func (m *MockMap) OpenOverlays() int {
	m.lib.mu.Lock()
	defer m.lib.mu.Unlock()
	if m.open == nil || m.open.removed {
		return 0
	}
	return 1
}

// Overlay returns the open overlay and the marker it is attached to.
func (m *MockMap) Overlay() (Overlay, *MockMarker, bool) {
	m.lib.mu.Lock()
	defer m.lib.mu.Unlock()
	if m.open == nil || m.open.removed {
		return Overlay{}, nil, false
	}
	return m.overlay, m.open, true
}

// MockMarker implements Marker.
type MockMarker struct {
	lib     *MockLibrary
	Options MarkerOptions

	onClick func()
	removed bool
}

// OnClick registers the click handler.
func (mk *MockMarker) OnClick(fn func()) {
	mk.lib.mu.Lock()
	defer mk.lib.mu.Unlock()
	mk.onClick = fn
}

// Remove marks the marker removed.
func (mk *MockMarker) Remove() {
	mk.lib.mu.Lock()
	defer mk.lib.mu.Unlock()
	mk.removed = true
}

// Removed reports whether Remove was called.
func (mk *MockMarker) Removed() bool {
	mk.lib.mu.Lock()
	defer mk.lib.mu.Unlock()
	return mk.removed
}

// Click simulates a user clicking the marker.
func (mk *MockMarker) Click() {
	mk.lib.mu.Lock()
	fn := mk.onClick
	mk.lib.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// MockNotifyingLibrary is a MockLibrary that also implements Notifier. It
// stays unavailable until Load is called.
type MockNotifyingLibrary struct {
	*MockLibrary
	once   sync.Once
	loaded chan struct{}
}

// NewMockNotifyingLibrary creates an unloaded MockNotifyingLibrary.
func NewMockNotifyingLibrary() *MockNotifyingLibrary {
	lib := NewMockLibrary()
	lib.SetNeverAvailable()
	return &MockNotifyingLibrary{MockLibrary: lib, loaded: make(chan struct{})}
}

// Loaded implements Notifier.
func (l *MockNotifyingLibrary) Loaded() <-chan struct{} {
	return l.loaded
}

// Load makes the library available and fires the notification.
func (l *MockNotifyingLibrary) Load() {
	l.once.Do(func() {
		l.SetUnavailableFor(0)
		close(l.loaded)
	})
}
