package tui

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/zulandar/proptalk/internal/mapsync"
	"github.com/zulandar/proptalk/internal/property"
)

// TermLibrary draws maps as character grids. It becomes available once the
// terminal has reported a size for the map pane.
type TermLibrary struct {
	mu      sync.Mutex
	width   int
	height  int
	current *termMap
}

// NewTermLibrary creates a library with no size yet.
func NewTermLibrary() *TermLibrary {
	return &TermLibrary{}
}

// SetSize sets the map pane size in cells.
func (l *TermLibrary) SetSize(width, height int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.width, l.height = width, height
}

// Available implements mapsync.Library.
func (l *TermLibrary) Available() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.width > 0 && l.height > 0
}

// NewMap implements mapsync.Library.
func (l *TermLibrary) NewMap(opts mapsync.MapOptions) (mapsync.Map, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.width <= 0 || l.height <= 0 {
		return nil, fmt.Errorf("tui: map pane has no size")
	}
	m := &termMap{lib: l, opts: opts}
	l.current = m
	return m, nil
}

// Click delivers a click on the named marker. It reports false when the
// marker is not on the map.
func (l *TermLibrary) Click(name string) bool {
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

// Render draws the current map, or returns "" when there is none. Markers
// are numbered in the order they were added; the one with an open overlay
// is drawn as '*'.
func (l *TermLibrary) Render() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.current
	if m == nil || l.width <= 0 || l.height <= 0 {
		return ""
	}

	w, h := l.width, l.height
	grid := make([][]rune, h)
	for y := range grid {
		grid[y] = []rune(strings.Repeat("·", w))
	}

	minLat, maxLat, minLng, maxLng := bounds(m.opts.Center, m.markers)
	for i, mk := range m.markers {
		x := scale(mk.opts.Position.Lng, minLng, maxLng, w)
		// Latitude grows northwards, rows grow downwards.
		y := h - 1 - scale(mk.opts.Position.Lat, minLat, maxLat, h)
		grid[y][x] = markerRune(i)
		if mk == m.open {
			grid[y][x] = '*'
		}
	}

	lines := make([]string, h)
	for y, row := range grid {
		lines[y] = string(row)
	}
	return strings.Join(lines, "\n")
}

// Legend lists the markers with their labels.
func (l *TermLibrary) Legend() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return nil
	}
	out := make([]string, 0, len(l.current.markers))
	for i, mk := range l.current.markers {
		mark := " "
		if mk == l.current.open {
			mark = "*"
		}
		out = append(out, fmt.Sprintf("%s%c %s", mark, markerRune(i), mk.opts.Name))
	}
	return out
}

func markerRune(i int) rune {
	const labels = "123456789abcdefghijklmnopqrstuvwxyz"
	if i < len(labels) {
		return rune(labels[i])
	}
	return '+'
}

func bounds(center property.LatLng, markers []*termMarker) (minLat, maxLat, minLng, maxLng float64) {
	minLat, maxLat = center.Lat, center.Lat
	minLng, maxLng = center.Lng, center.Lng
	for _, mk := range markers {
		p := mk.opts.Position
		minLat, maxLat = math.Min(minLat, p.Lat), math.Max(maxLat, p.Lat)
		minLng, maxLng = math.Min(minLng, p.Lng), math.Max(maxLng, p.Lng)
	}
	return minLat, maxLat, minLng, maxLng
}

// scale maps v in [lo, hi] onto a cell index in [0, cells).
func scale(v, lo, hi float64, cells int) int {
	if hi-lo < 1e-9 {
		return cells / 2
	}
	i := int((v - lo) / (hi - lo) * float64(cells-1))
	return max(0, min(cells-1, i))
}

type termMap struct {
	lib     *TermLibrary
	opts    mapsync.MapOptions
	markers []*termMarker
	open    *termMarker
}

func (m *termMap) AddMarker(opts mapsync.MarkerOptions) (mapsync.Marker, error) {
	m.lib.mu.Lock()
	defer m.lib.mu.Unlock()
	mk := &termMarker{m: m, opts: opts}
	m.markers = append(m.markers, mk)
	return mk, nil
}

func (m *termMap) OpenOverlay(mk mapsync.Marker, _ mapsync.Overlay) error {
	tm, ok := mk.(*termMarker)
	if !ok {
		return fmt.Errorf("tui: foreign marker %T", mk)
	}
	m.lib.mu.Lock()
	defer m.lib.mu.Unlock()
	m.open = tm
	return nil
}

func (m *termMap) Destroy() {
	m.lib.mu.Lock()
	defer m.lib.mu.Unlock()
	if m.lib.current == m {
		m.lib.current = nil
	}
	m.markers = nil
	m.open = nil
}

type termMarker struct {
	m       *termMap
	opts    mapsync.MarkerOptions
	onClick func()
}

func (mk *termMarker) OnClick(fn func()) {
	mk.m.lib.mu.Lock()
	defer mk.m.lib.mu.Unlock()
	mk.onClick = fn
}

func (mk *termMarker) Remove() {
	mk.m.lib.mu.Lock()
	defer mk.m.lib.mu.Unlock()
	ms := mk.m.markers
	for i, other := range ms {
		if other == mk {
			mk.m.markers = append(ms[:i], ms[i+1:]...)
			break
		}
	}
	if mk.m.open == mk {
		mk.m.open = nil
	}
}
