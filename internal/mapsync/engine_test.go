package mapsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/zulandar/proptalk/internal/property"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func prop(name string, lat, lng float64) property.Summary {
	return property.Summary{Name: name, Location: "Mangalore", Coordinates: &property.LatLng{Lat: lat, Lng: lng}}
}

func testProps() []property.Summary {
	return []property.Summary{
		prop("Ocean Pearl", 12.87, 74.84),
		prop("NorthernSky City", 12.91, 74.86),
		{Name: "No Coords Residency"},
		prop("Kadri Heights", 12.88, 74.85),
	}
}

func startReady(t *testing.T, lib Library, opts EngineOpts) *Engine {
	t.Helper()
	opts.Library = lib
	e, err := NewEngine(opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.Start(context.Background())
	e.Wait()
	if e.State() != Ready {
		t.Fatalf("State() = %v, want ready", e.State())
	}
	return e
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewEngine_RequiresLibrary(t *testing.T) {
	if _, err := NewEngine(EngineOpts{}); err == nil {
		t.Fatal("expected error for missing library")
	}
}

func TestNewEngine_Defaults(t *testing.T) {
	lib := NewMockLibrary()
	e := startReady(t, lib, EngineOpts{})
	e.SetProperties(testProps())

	m, ok := lib.Current()
	if !ok {
		t.Fatal("no map created")
	}
	want := MapOptions{Center: DefaultCenter, Zoom: DefaultZoom}
	if diff := cmp.Diff(want, m.Options); diff != "" {
		t.Errorf("map options mismatch (-want +got):\n%s", diff)
	}
	if e.poll != DefaultPollInterval || e.timeout != DefaultLoadTimeout {
		t.Errorf("timings = %v/%v", e.poll, e.timeout)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		Uninitialized:     "uninitialized",
		WaitingForLibrary: "waiting_for_library",
		Ready:             "ready",
		Rebuilding:        "rebuilding",
		State(9):          "state(9)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(s), got, want)
		}
	}
}

func TestRebuild_OneMarkerPerCoordinate(t *testing.T) {
	lib := NewMockLibrary()
	e := startReady(t, lib, EngineOpts{})
	e.SetProperties(testProps())

	m, _ := lib.Current()
	markers := m.Markers()
	if len(markers) != 3 {
		t.Fatalf("got %d markers, want 3", len(markers))
	}
	for _, mk := range markers {
		p, _ := findProp(testProps(), mk.Options.Name)
		if mk.Options.Position != *p.Coordinates {
			t.Errorf("%s at %+v, want %+v", mk.Options.Name, mk.Options.Position, *p.Coordinates)
		}
	}

	var names []string
	for _, mi := range e.Markers() {
		names = append(names, mi.Name)
	}
	if diff := cmp.Diff([]string{"Ocean Pearl", "NorthernSky City", "Kadri Heights"}, names); diff != "" {
		t.Errorf("Markers() mismatch (-want +got):\n%s", diff)
	}
}

func findProp(ps []property.Summary, name string) (property.Summary, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p, true
		}
	}
	return property.Summary{}, false
}

func TestRebuild_EmptyYieldsZeroMarkers(t *testing.T) {
	lib := NewMockLibrary()
	e := startReady(t, lib, EngineOpts{})
	e.SetProperties(testProps())
	first, _ := lib.Current()
	old := first.Markers()

	e.SetProperties(nil)
	if got := len(e.Markers()); got != 0 {
		t.Errorf("Markers() = %d, want 0", got)
	}
	for _, mk := range old {
		if !mk.Removed() {
			t.Errorf("marker %s not removed", mk.Options.Name)
		}
	}
	if _, ok := lib.Current(); ok {
		t.Error("map view survives an empty property set")
	}
	if got := e.Placeholder(); got != PlaceholderNoCoords {
		t.Errorf("Placeholder() = %q", got)
	}
}

func TestRebuild_ReplacesAllMarkers(t *testing.T) {
	lib := NewMockLibrary()
	e := startReady(t, lib, EngineOpts{})
	e.SetProperties(testProps())
	m, _ := lib.Current()
	before := m.Markers()

	e.SetProperties([]property.Summary{prop("Ocean Pearl", 12.87, 74.84)})
	for _, mk := range before {
		if !mk.Removed() {
			t.Errorf("old marker %s still live", mk.Options.Name)
		}
	}
	if got := len(m.Markers()); got != 1 {
		t.Errorf("live markers = %d, want 1", got)
	}
	if len(lib.Maps()) != 1 {
		t.Errorf("property change created a new map view (%d maps)", len(lib.Maps()))
	}
}

func TestClick_OneOverlayAndSelection(t *testing.T) {
	lib := NewMockLibrary()
	tracker := property.NewTracker()
	e := startReady(t, lib, EngineOpts{
		Interaction: InteractionFuncs{Select: tracker.SetLastMentioned},
	})
	e.SetProperties(testProps())
	m, _ := lib.Current()

	ocean, _ := m.Marker("Ocean Pearl")
	ocean.Click()
	sky, _ := m.Marker("NorthernSky City")
	sky.Click()

	if got, _ := tracker.LastMentioned(); got != "NorthernSky City" {
		t.Errorf("LastMentioned() = %q, want NorthernSky City", got)
	}
	if got := m.OpenOverlays(); got != 1 {
		t.Errorf("open overlays = %d, want 1", got)
	}
	o, on, ok := m.Overlay()
	if !ok || on != sky || o.Property.Name != "NorthernSky City" {
		t.Errorf("overlay on %v for %q", on, o.Property.Name)
	}
	wantActions := []Action{
		{Label: "Ask AI"},
		{Label: "Schools", PlaceType: "school"},
		{Label: "Hospitals", PlaceType: "hospital"},
		{Label: "Malls", PlaceType: "mall"},
	}
	if diff := cmp.Diff(wantActions, o.Actions); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}

	var open []string
	for _, mi := range e.Markers() {
		if mi.Open {
			open = append(open, mi.Name)
		}
	}
	if diff := cmp.Diff([]string{"NorthernSky City"}, open); diff != "" {
		t.Errorf("open markers mismatch (-want +got):\n%s", diff)
	}
	if sel := e.Snapshot().Selected; sel == nil || sel.Name != "NorthernSky City" {
		t.Errorf("Snapshot().Selected = %+v", sel)
	}
}

func TestClick_UnknownName(t *testing.T) {
	lib := NewMockLibrary()
	selected := 0
	e := startReady(t, lib, EngineOpts{Interaction: InteractionFuncs{Select: func(string) { selected++ }}})
	e.SetProperties(testProps())

	if e.Click("Nowhere Towers") {
		t.Error("Click on unknown name returned true")
	}
	if e.Click("No Coords Residency") {
		t.Error("Click on property without marker returned true")
	}
	if selected != 0 {
		t.Errorf("OnSelect called %d times", selected)
	}
	if !e.Click("ocean pearl") {
		t.Error("Click should match names case-insensitively")
	}
}

func TestOverlayActions(t *testing.T) {
	var asked, nearName, nearType string
	e, err := NewEngine(EngineOpts{
		Library: NewMockLibrary(),
		Interaction: InteractionFuncs{
			AskAbout:   func(n string) { asked = n },
			FindNearby: func(n, typ string) { nearName, nearType = n, typ },
		},
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.AskAbout("Ocean Pearl")
	e.FindNearby("Kadri Heights", "mall")
	if asked != "Ocean Pearl" || nearName != "Kadri Heights" || nearType != "mall" {
		t.Errorf("got ask=%q nearby=%q/%q", asked, nearName, nearType)
	}
}

func TestReadiness_ObservedOnNextPoll(t *testing.T) {
	lib := NewMockLibrary()
	// Unavailable for the initial check and the first five polls.
	lib.SetUnavailableFor(6)
	e, _ := NewEngine(EngineOpts{Library: lib, PollInterval: 5 * time.Millisecond, LoadTimeout: 5 * time.Second})
	e.SetProperties(testProps())

	if e.State() != Uninitialized {
		t.Fatalf("State() before Start = %v", e.State())
	}
	e.Start(context.Background())
	e.Wait()

	if e.State() != Ready {
		t.Fatalf("State() = %v, want ready", e.State())
	}
	maps := lib.Maps()
	if len(maps) != 1 {
		t.Fatalf("maps = %d, want 1", len(maps))
	}
	if maps[0].ChecksAtCreate != 7 {
		t.Errorf("map created after %d checks, want 7", maps[0].ChecksAtCreate)
	}
	if got := lib.Checks(); got != 7 {
		t.Errorf("Checks() = %d, polling continued after ready", got)
	}
}

func TestReadiness_WaitingWhilePolling(t *testing.T) {
	lib := NewMockLibrary()
	lib.SetNeverAvailable()
	e, _ := NewEngine(EngineOpts{Library: lib, PollInterval: time.Millisecond, LoadTimeout: 5 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	e.Start(ctx)

	waitFor(t, "a few polls", func() bool { return lib.Checks() >= 3 })
	if e.State() != WaitingForLibrary {
		t.Errorf("State() = %v, want waiting_for_library", e.State())
	}
	if got := e.Placeholder(); got != PlaceholderLoading {
		t.Errorf("Placeholder() = %q", got)
	}
	cancel()
	e.Wait()
	if e.TimedOut() {
		t.Error("cancellation reported as timeout")
	}
}

func TestReadiness_Timeout(t *testing.T) {
	lib := NewMockLibrary()
	lib.SetNeverAvailable()
	changes := make(chan struct{}, 16)
	e, _ := NewEngine(EngineOpts{
		Library:      lib,
		PollInterval: time.Millisecond,
		LoadTimeout:  20 * time.Millisecond,
		OnChange:     func() { changes <- struct{}{} },
	})
	e.Start(context.Background())
	e.Wait()

	if !e.TimedOut() {
		t.Fatal("TimedOut() = false")
	}
	if e.State() != WaitingForLibrary {
		t.Errorf("State() = %v, want waiting_for_library", e.State())
	}
	if got := e.Placeholder(); got != PlaceholderStalled {
		t.Errorf("Placeholder() = %q", got)
	}
	checks := lib.Checks()
	time.Sleep(10 * time.Millisecond)
	if lib.Checks() != checks {
		t.Error("polling continued after timeout")
	}
	if len(changes) != 2 {
		t.Errorf("OnChange called %d times, want 2 (start, timeout)", len(changes))
	}

	// Property updates still work without a library.
	e.SetProperties(testProps())
	if len(e.Markers()) != 0 || len(lib.Maps()) != 0 {
		t.Error("markers built without a library")
	}
}

func TestReadiness_Notifier(t *testing.T) {
	lib := NewMockNotifyingLibrary()
	e, _ := NewEngine(EngineOpts{Library: lib, PollInterval: time.Hour, LoadTimeout: time.Hour})
	e.SetProperties(testProps())
	e.Start(context.Background())

	if e.State() != WaitingForLibrary {
		t.Fatalf("State() = %v", e.State())
	}
	lib.Load()
	e.Wait()
	if e.State() != Ready {
		t.Fatalf("State() = %v, want ready", e.State())
	}
	if got := len(e.Markers()); got != 3 {
		t.Errorf("Markers() = %d, want 3", got)
	}
}

func TestStart_Twice(t *testing.T) {
	lib := NewMockLibrary()
	e := startReady(t, lib, EngineOpts{})
	e.Start(context.Background())
	e.Wait()
	if lib.Checks() != 1 {
		t.Errorf("Checks() = %d, want 1", lib.Checks())
	}
}

func TestVisibility(t *testing.T) {
	lib := NewMockLibrary()
	e := startReady(t, lib, EngineOpts{Hidden: true})
	e.SetProperties(testProps())

	if len(lib.Maps()) != 0 {
		t.Fatal("map built while hidden")
	}
	if got := e.Placeholder(); got != "" {
		t.Errorf("Placeholder() while hidden = %q", got)
	}
	if v := e.Snapshot(); e.State() != Ready || v.HasMap {
		t.Errorf("hidden panel: State() = %v, HasMap = %v, want ready without a map", e.State(), v.HasMap)
	}

	e.SetVisible(true)
	first, ok := lib.Current()
	if !ok || len(first.Markers()) != 3 {
		t.Fatal("showing the panel did not build the map")
	}

	e.SetVisible(false)
	if !first.Destroyed() {
		t.Error("hiding the panel did not destroy the map")
	}
	if len(e.Markers()) != 0 {
		t.Error("markers survive hiding")
	}

	e.SetVisible(true)
	maps := lib.Maps()
	if len(maps) != 2 {
		t.Fatalf("maps = %d, want a fresh one", len(maps))
	}
	if maps[1].Destroyed() || !maps[0].Destroyed() {
		t.Error("stale map view not replaced")
	}
}

func TestNewMapError_NotFatal(t *testing.T) {
	lib := NewMockLibrary()
	lib.SetNewMapError(errors.New("no canvas"))
	e := startReady(t, lib, EngineOpts{})
	e.SetProperties(testProps())

	if e.State() != Ready {
		t.Errorf("State() = %v", e.State())
	}
	if got := e.Placeholder(); got != PlaceholderFailed {
		t.Errorf("Placeholder() = %q", got)
	}
	if e.Click("Ocean Pearl") {
		t.Error("Click succeeded without a map")
	}

	lib.SetNewMapError(nil)
	e.SetProperties(testProps())
	if got := len(e.Markers()); got != 3 {
		t.Errorf("Markers() after recovery = %d, want 3", got)
	}
	if got := e.Placeholder(); got != "" {
		t.Errorf("Placeholder() after recovery = %q", got)
	}
}

func TestAddMarkerError_Skipped(t *testing.T) {
	lib := NewMockLibrary()
	lib.SetAddMarkerError(errors.New("bad icon"))
	e := startReady(t, lib, EngineOpts{})
	e.SetProperties(testProps())

	if got := len(e.Markers()); got != 0 {
		t.Errorf("Markers() = %d, want 0", got)
	}
	if _, ok := lib.Current(); !ok {
		t.Error("map view dropped on marker errors")
	}
}

func TestClose(t *testing.T) {
	lib := NewMockLibrary()
	e := startReady(t, lib, EngineOpts{})
	e.SetProperties(testProps())
	m, _ := lib.Current()

	e.Close()
	if !m.Destroyed() || len(e.Markers()) != 0 {
		t.Error("Close left the map behind")
	}
}

func TestClose_StopsLibraryWait(t *testing.T) {
	lib := NewMockLibrary()
	lib.SetNeverAvailable()
	e, _ := NewEngine(EngineOpts{Library: lib, PollInterval: time.Millisecond, LoadTimeout: time.Minute})
	e.Start(context.Background())
	waitFor(t, "a poll", func() bool { return lib.Checks() >= 2 })

	done := make(chan struct{})
	go func() {
		e.Close()
		e.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait blocked after Close until the load timeout")
	}
	if e.TimedOut() {
		t.Error("Close reported as timeout")
	}
}

func TestClose_BeforeStart(t *testing.T) {
	lib := NewMockLibrary()
	e, _ := NewEngine(EngineOpts{Library: lib})
	e.Close()
	e.Start(context.Background())
	e.Wait()
	if e.State() != Uninitialized || lib.Checks() != 0 {
		t.Errorf("Start after Close: State() = %v, Checks() = %d", e.State(), lib.Checks())
	}
}

func TestSnapshot(t *testing.T) {
	lib := NewMockLibrary()
	e := startReady(t, lib, EngineOpts{Center: property.LatLng{Lat: 1, Lng: 2}, Zoom: 9})
	e.SetProperties(testProps())

	v := e.Snapshot()
	if v.State != "ready" || !v.Visible || !v.HasMap || v.Placeholder != "" {
		t.Errorf("Snapshot() = %+v", v)
	}
	if v.Center != (property.LatLng{Lat: 1, Lng: 2}) || v.Zoom != 9 {
		t.Errorf("center/zoom = %+v/%d", v.Center, v.Zoom)
	}
	if len(v.Markers) != 3 || v.Selected != nil {
		t.Errorf("markers=%d selected=%v", len(v.Markers), v.Selected)
	}
}
