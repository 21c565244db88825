// Package mapsync mirrors the current property set as map markers and
// bridges marker interactions back into the chat.
package mapsync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zulandar/proptalk/internal/logging"
	"github.com/zulandar/proptalk/internal/nearby"
	"github.com/zulandar/proptalk/internal/property"
	"go.uber.org/zap"
)

// Default readiness timings and view.
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultLoadTimeout  = 10 * time.Second
	DefaultZoom         = 12
)

// DefaultCenter is the initial map center.
var DefaultCenter = property.LatLng{Lat: 12.9141, Lng: 74.8560}

// Placeholder texts.
const (
	PlaceholderLoading  = "Loading map..."
	PlaceholderStalled  = "Loading map... the map library has not loaded yet. Chat is unaffected."
	PlaceholderNoCoords = "No properties with a location to show yet."
	PlaceholderFailed   = "The map could not be displayed."
)

// State is the engine's readiness state.
type State int

const (
	Uninitialized State = iota
	WaitingForLibrary
	Ready
	Rebuilding
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case WaitingForLibrary:
		return "waiting_for_library"
	case Ready:
		return "ready"
	case Rebuilding:
		return "rebuilding"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarkerInfo describes one live marker.
type MarkerInfo struct {
	Name     string          `json:"name"`
	Position property.LatLng `json:"position"`
	Open     bool            `json:"open"`
}

// View is a snapshot of everything a front end needs to draw the map pane.
type View struct {
	State       string            `json:"state"`
	TimedOut    bool              `json:"timed_out"`
	Visible     bool              `json:"visible"`
	HasMap      bool              `json:"has_map"`
	Placeholder string            `json:"placeholder"`
	Center      property.LatLng   `json:"center"`
	Zoom        int               `json:"zoom"`
	Markers     []MarkerInfo      `json:"markers"`
	Selected    *property.Summary `json:"selected,omitempty"`
}

type markerEntry struct {
	prop   property.Summary
	marker Marker
}

// Engine owns the map view, its markers and their overlays.
type Engine struct {
	lib      Library
	interact Interaction
	log      *zap.Logger
	mapOpts  MapOptions
	poll     time.Duration
	timeout  time.Duration
	onChange func()

	wg sync.WaitGroup

	mu       sync.Mutex
	cancel   context.CancelFunc
	closed   bool
	state    State
	loaded   bool
	timedOut bool
	visible  bool
	failed   bool
	props    []property.Summary
	view     Map
	markers  []markerEntry
	openName string
}

// EngineOpts holds parameters for creating an Engine.
type EngineOpts struct {
	Library      Library
	Interaction  Interaction     // optional
	Logger       *zap.Logger     // optional
	Center       property.LatLng // defaults to DefaultCenter
	Zoom         int             // defaults to DefaultZoom
	Style        string
	PollInterval time.Duration // defaults to DefaultPollInterval
	LoadTimeout  time.Duration // defaults to DefaultLoadTimeout
	Hidden       bool          // start with the map panel hidden
	OnChange     func()        // called after every visible change, outside the lock
}

// NewEngine creates an Engine in the Uninitialized state.
func NewEngine(opts EngineOpts) (*Engine, error) {
	if opts.Library == nil {
		return nil, fmt.Errorf("mapsync: library is required")
	}
	center := opts.Center
	if !center.Valid() {
		center = DefaultCenter
	}
	zoom := opts.Zoom
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	timeout := opts.LoadTimeout
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	interact := opts.Interaction
	if interact == nil {
		interact = InteractionFuncs{}
	}
	return &Engine{
		lib:      opts.Library,
		interact: interact,
		log:      logging.OrNop(opts.Logger),
		mapOpts:  MapOptions{Center: center, Zoom: zoom, Style: opts.Style},
		poll:     poll,
		timeout:  timeout,
		onChange: opts.OnChange,
		visible:  !opts.Hidden,
	}, nil
}

// Start begins waiting for the library. It returns immediately; the wait
// ends when the library loads, the timeout elapses, ctx is cancelled or
// the engine is closed. Calling Start twice has no effect.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.state != Uninitialized || e.closed {
		e.mu.Unlock()
		return
	}
	e.state = WaitingForLibrary
	ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()
	e.changed()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.waitForLibrary(ctx)
	}()
}

// Wait blocks until the readiness wait started by Start has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) waitForLibrary(ctx context.Context) {
	if e.lib.Available() {
		e.libraryLoaded()
		return
	}

	var loaded <-chan struct{}
	if n, ok := e.lib.(Notifier); ok {
		loaded = n.Loaded()
	}

	ticker := time.NewTicker(e.poll)
	defer ticker.Stop()
	deadline := time.NewTimer(e.timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-loaded:
			e.libraryLoaded()
			return
		case <-ticker.C:
			if e.lib.Available() {
				e.libraryLoaded()
				return
			}
		case <-deadline.C:
			e.mu.Lock()
			e.timedOut = true
			e.mu.Unlock()
			e.log.Warn("map library did not load; continuing without a map", zap.Duration("timeout", e.timeout))
			e.changed()
			return
		}
	}
}

func (e *Engine) libraryLoaded() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.loaded = true
	e.log.Debug("map library loaded")
	e.rebuildLocked(true)
	e.mu.Unlock()
	e.changed()
}

// SetProperties replaces the property set and rebuilds every marker.
func (e *Engine) SetProperties(props []property.Summary) {
	e.mu.Lock()
	e.props = append([]property.Summary(nil), props...)
	if e.loaded {
		e.rebuildLocked(false)
	}
	e.mu.Unlock()
	e.changed()
}

// SetVisible shows or hides the map panel. Showing it builds a fresh map
// view; hiding it destroys the current one.
func (e *Engine) SetVisible(v bool) {
	e.mu.Lock()
	if e.visible == v {
		e.mu.Unlock()
		return
	}
	e.visible = v
	if e.loaded {
		e.rebuildLocked(v)
	}
	e.mu.Unlock()
	e.changed()
}

// rebuildLocked discards every marker and recreates them from the current
// property set. fresh forces a new map view. e.mu must be held.
func (e *Engine) rebuildLocked(fresh bool) {
	e.state = Rebuilding
	defer func() { e.state = Ready }()

	e.clearMarkersLocked()

	if !e.visible || !hasCoordinates(e.props) {
		e.destroyViewLocked()
		e.failed = false
		return
	}

	if fresh || e.view == nil {
		e.destroyViewLocked()
		view, err := e.lib.NewMap(e.mapOpts)
		if err != nil {
			e.failed = true
			e.log.Error("create map", zap.Error(err))
			return
		}
		e.view = view
		e.failed = false
	}

	for _, p := range e.props {
		if !p.HasCoordinates() {
			continue
		}
		m, err := e.view.AddMarker(MarkerOptions{Name: p.Name, Position: *p.Coordinates})
		if err != nil {
			e.log.Warn("add marker", zap.String("property", p.Name), zap.Error(err))
			continue
		}
		name := p.Name
		m.OnClick(func() { e.Click(name) })
		e.markers = append(e.markers, markerEntry{prop: p, marker: m})
	}
	e.log.Debug("markers rebuilt", zap.Int("markers", len(e.markers)))
}

func (e *Engine) clearMarkersLocked() {
	for _, m := range e.markers {
		m.marker.Remove()
	}
	e.markers = nil
	e.openName = ""
}

func (e *Engine) destroyViewLocked() {
	if e.view != nil {
		e.view.Destroy()
		e.view = nil
	}
}

// Click opens the overlay of the named marker and reports the selection.
// It returns false when no marker has that name.
func (e *Engine) Click(name string) bool {
	e.mu.Lock()
	var entry *markerEntry
	for i := range e.markers {
		if property.Key(e.markers[i].prop.Name) == property.Key(name) {
			entry = &e.markers[i]
			break
		}
	}
	if entry == nil || e.view == nil {
		e.mu.Unlock()
		return false
	}
	if err := e.view.OpenOverlay(entry.marker, overlayFor(entry.prop)); err != nil {
		e.log.Warn("open overlay", zap.String("property", entry.prop.Name), zap.Error(err))
	} else {
		e.openName = entry.prop.Name
	}
	selected := entry.prop.Name
	e.mu.Unlock()

	e.interact.OnSelect(selected)
	e.changed()
	return true
}

// AskAbout runs the overlay's "ask about this" action.
func (e *Engine) AskAbout(name string) {
	e.interact.OnAskAbout(name)
}

// FindNearby runs one of the overlay's nearby actions.
func (e *Engine) FindNearby(name, placeType string) {
	e.interact.OnFindNearby(name, placeType)
}

// Close stops the library wait and destroys the map view and its markers.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	if e.cancel != nil {
		e.cancel()
	}
	e.clearMarkersLocked()
	e.destroyViewLocked()
	e.mu.Unlock()
}

// State returns the current readiness state. Ready means the library has
// loaded, not that a map is on screen: while the panel is hidden, or when
// no property has coordinates, the engine is Ready with no view. Use
// Snapshot().HasMap to know whether a map is drawn.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// TimedOut reports whether the library wait gave up.
func (e *Engine) TimedOut() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timedOut
}

// Markers lists the live markers in property order.
func (e *Engine) Markers() []MarkerInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.markersLocked()
}

func (e *Engine) markersLocked() []MarkerInfo {
	out := make([]MarkerInfo, 0, len(e.markers))
	for _, m := range e.markers {
		out = append(out, MarkerInfo{
			Name:     m.prop.Name,
			Position: *m.prop.Coordinates,
			Open:     m.prop.Name == e.openName,
		})
	}
	return out
}

// Placeholder returns the text to show instead of the map, or "" when a
// map view is on screen or the panel is hidden.
func (e *Engine) Placeholder() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.placeholderLocked()
}

func (e *Engine) placeholderLocked() string {
	switch {
	case !e.visible:
		return ""
	case !e.loaded && e.timedOut:
		return PlaceholderStalled
	case !e.loaded:
		return PlaceholderLoading
	case e.failed:
		return PlaceholderFailed
	case e.view == nil:
		return PlaceholderNoCoords
	default:
		return ""
	}
}

// Snapshot returns the current View.
func (e *Engine) Snapshot() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := View{
		State:       e.state.String(),
		TimedOut:    e.timedOut,
		Visible:     e.visible,
		HasMap:      e.view != nil,
		Placeholder: e.placeholderLocked(),
		Center:      e.mapOpts.Center,
		Zoom:        e.mapOpts.Zoom,
		Markers:     e.markersLocked(),
	}
	for _, m := range e.markers {
		if m.prop.Name == e.openName {
			p := m.prop
			v.Selected = &p
		}
	}
	return v
}

func (e *Engine) changed() {
	if e.onChange != nil {
		e.onChange()
	}
}

func hasCoordinates(props []property.Summary) bool {
	for _, p := range props {
		if p.HasCoordinates() {
			return true
		}
	}
	return false
}

// Actions returns the overlay buttons: ask about the property, then one
// nearby search per place category.
func Actions() []Action {
	actions := []Action{{Label: "Ask AI"}}
	for _, c := range nearby.Categories {
		actions = append(actions, Action{Label: strings.ToUpper(c[:1]) + c[1:] + "s", PlaceType: c})
	}
	return actions
}

func overlayFor(p property.Summary) Overlay {
	return Overlay{Property: p, Actions: Actions()}
}
