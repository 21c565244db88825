package web

import (
	"fmt"
	"sync"

	"github.com/zulandar/proptalk/internal/mapsync"
	"github.com/zulandar/proptalk/internal/property"
)

// BrowserLibrary is the map library hosted by the browser page. The page
// loads Leaflet asynchronously and reports back through /api/map/ready;
// until then the library is unavailable. Marker clicks arrive as HTTP
// requests and are delivered to the handlers the engine registered.
type BrowserLibrary struct {
	once   sync.Once
	loaded chan struct{}

	mu      sync.Mutex
	ready   bool
	current *browserMap
	maps    int
}

// NewBrowserLibrary creates a library that is not loaded yet.
func NewBrowserLibrary() *BrowserLibrary {
	return &BrowserLibrary{loaded: make(chan struct{})}
}

// MarkReady records that the page finished loading the map library.
func (l *BrowserLibrary) MarkReady() {
	l.once.Do(func() {
		l.mu.Lock()
		l.ready = true
		l.mu.Unlock()
		close(l.loaded)
	})
}

// Available implements mapsync.Library.
func (l *BrowserLibrary) Available() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

// Loaded implements mapsync.Notifier.
func (l *BrowserLibrary) Loaded() <-chan struct{} {
	return l.loaded
}

// NewMap implements mapsync.Library.
func (l *BrowserLibrary) NewMap(opts mapsync.MapOptions) (mapsync.Map, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ready {
		return nil, fmt.Errorf("web: map library not loaded")
	}
	l.maps++
	m := &browserMap{lib: l, id: l.maps, opts: opts}
	l.current = m
	return m, nil
}

// Click delivers a click on the named marker of the current map. It
// reports false when no such marker is on screen.
func (l *BrowserLibrary) Click(name string) bool {
	l.mu.Lock()
	var fn func()
	if l.current != nil {
		for _, mk := range l.current.markers {
			if property.Key(mk.opts.Name) == property.Key(name) {
				fn = mk.onClick
				break
			}
		}
	}
	l.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// MapID returns the id of the map the page should be showing, or 0 when
// there is none. The page recreates its Leaflet map when the id changes.
func (l *BrowserLibrary) MapID() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return 0
	}
	return l.current.id
}

type browserMap struct {
	lib     *BrowserLibrary
	id      int
	opts    mapsync.MapOptions
	markers []*browserMarker
}

func (m *browserMap) AddMarker(opts mapsync.MarkerOptions) (mapsync.Marker, error) {
	m.lib.mu.Lock()
	defer m.lib.mu.Unlock()
	mk := &browserMarker{m: m, opts: opts}
	m.markers = append(m.markers, mk)
	return mk, nil
}

// OpenOverlay is a no-op here: the page draws the overlay for the marker
// the engine reports as open.
func (m *browserMap) OpenOverlay(mapsync.Marker, mapsync.Overlay) error {
	return nil
}

func (m *browserMap) Destroy() {
	m.lib.mu.Lock()
	defer m.lib.mu.Unlock()
	if m.lib.current == m {
		m.lib.current = nil
	}
	m.markers = nil
}

type browserMarker struct {
	m       *browserMap
	opts    mapsync.MarkerOptions
	onClick func()
}

func (mk *browserMarker) OnClick(fn func()) {
	mk.m.lib.mu.Lock()
	defer mk.m.lib.mu.Unlock()
	mk.onClick = fn
}

func (mk *browserMarker) Remove() {
	mk.m.lib.mu.Lock()
	defer mk.m.lib.mu.Unlock()
	for i, other := range mk.m.markers {
		if other == mk {
			mk.m.markers = append(mk.m.markers[:i], mk.m.markers[i+1:]...)
			return
		}
	}
}
