package tui

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zulandar/proptalk/internal/mapsync"
	"github.com/zulandar/proptalk/internal/property"
)

func runeRows(s string) [][]rune {
	lines := strings.Split(s, "\n")
	out := make([][]rune, len(lines))
	for i, l := range lines {
		out[i] = []rune(l)
	}
	return out
}

func TestTermLibrary_AvailableOnceSized(t *testing.T) {
	lib := NewTermLibrary()
	if lib.Available() {
		t.Fatal("unsized library should not be available")
	}
	if _, err := lib.NewMap(mapsync.MapOptions{}); err == nil {
		t.Fatal("NewMap before SetSize should fail")
	}

	lib.SetSize(20, 0)
	if lib.Available() {
		t.Fatal("zero height should not be available")
	}
	lib.SetSize(20, 8)
	if !lib.Available() {
		t.Fatal("sized library should be available")
	}
	if lib.Render() != "" || lib.Legend() != nil {
		t.Error("no map yet, Render and Legend should be empty")
	}
}

func TestTermLibrary_RenderPlacesMarkers(t *testing.T) {
	lib := NewTermLibrary()
	lib.SetSize(10, 5)
	m, err := lib.NewMap(mapsync.MapOptions{Center: property.LatLng{Lat: 0.5, Lng: 0.5}})
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	a, _ := m.AddMarker(mapsync.MarkerOptions{Name: "South West", Position: property.LatLng{Lat: 0, Lng: 0}})
	b, _ := m.AddMarker(mapsync.MarkerOptions{Name: "North East", Position: property.LatLng{Lat: 1, Lng: 1}})

	rows := runeRows(lib.Render())
	if len(rows) != 5 || len(rows[0]) != 10 {
		t.Fatalf("grid is %dx%d, want 10x5", len(rows[0]), len(rows))
	}
	if rows[4][0] != '1' {
		t.Errorf("south-west marker at bottom-left = %q", rows[4][0])
	}
	if rows[0][9] != '2' {
		t.Errorf("north-east marker at top-right = %q", rows[0][9])
	}

	if err := m.OpenOverlay(b, mapsync.Overlay{}); err != nil {
		t.Fatalf("OpenOverlay: %v", err)
	}
	if rows := runeRows(lib.Render()); rows[0][9] != '*' {
		t.Errorf("open marker drawn as %q, want '*'", rows[0][9])
	}
	if diff := cmp.Diff([]string{" 1 South West", "*2 North East"}, lib.Legend()); diff != "" {
		t.Errorf("Legend() mismatch (-want +got):\n%s", diff)
	}

	b.Remove()
	if diff := cmp.Diff([]string{" 1 South West"}, lib.Legend()); diff != "" {
		t.Errorf("Legend() after Remove mismatch (-want +got):\n%s", diff)
	}
	_ = a

	m.Destroy()
	if lib.Render() != "" {
		t.Error("Render after Destroy should be empty")
	}
}

func TestTermLibrary_Click(t *testing.T) {
	lib := NewTermLibrary()
	lib.SetSize(10, 5)
	m, _ := lib.NewMap(mapsync.MapOptions{})
	mk, _ := m.AddMarker(mapsync.MarkerOptions{Name: "Ocean Pearl", Position: property.LatLng{Lat: 12.88, Lng: 74.85}})

	clicked := 0
	mk.OnClick(func() { clicked++ })

	if !lib.Click("ocean pearl") {
		t.Fatal("Click on a known marker should succeed")
	}
	if lib.Click("Nowhere") {
		t.Error("Click on an unknown marker should fail")
	}
	if clicked != 1 {
		t.Errorf("clicked = %d, want 1", clicked)
	}
}

func TestTermLibrary_SingleMarkerCentred(t *testing.T) {
	lib := NewTermLibrary()
	lib.SetSize(9, 5)
	c := property.LatLng{Lat: 12.9, Lng: 74.8}
	m, _ := lib.NewMap(mapsync.MapOptions{Center: c})
	m.AddMarker(mapsync.MarkerOptions{Name: "Only", Position: c})

	rows := runeRows(lib.Render())
	if rows[2][4] != '1' {
		t.Errorf("marker at the center should be drawn mid-grid:\n%s", lib.Render())
	}
}
