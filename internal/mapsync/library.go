package mapsync

import "github.com/zulandar/proptalk/internal/property"

// Library is the third-party map library as seen by the engine. It may not
// be loaded when the engine starts.
type Library interface {
	Available() bool
	NewMap(opts MapOptions) (Map, error)
}

// Notifier is implemented by libraries that can announce their own load.
// The channel is closed once; the engine then skips polling.
type Notifier interface {
	Loaded() <-chan struct{}
}

// Map is one rendered map view.
type Map interface {
	AddMarker(opts MarkerOptions) (Marker, error)
	// OpenOverlay shows the detail overlay for m. The library keeps at most
	// one overlay open; opening another replaces it.
	OpenOverlay(m Marker, o Overlay) error
	Destroy()
}

// Marker is one pin on a Map.
type Marker interface {
	OnClick(fn func())
	Remove()
}

// MapOptions configures a new map view.
type MapOptions struct {
	Center property.LatLng
	Zoom   int
	Style  string
}

// MarkerOptions places one marker.
type MarkerOptions struct {
	Name     string
	Position property.LatLng
	Icon     string
}

// Overlay is the detail content attached to a marker.
type Overlay struct {
	Property property.Summary
	Actions  []Action
}

// Action is one button on an overlay. An empty PlaceType means "ask about
// this property"; otherwise it is a nearby search for that category.
type Action struct {
	Label     string `json:"label"`
	PlaceType string `json:"place_type,omitempty"`
}

// Interaction receives marker and overlay events. The engine holds it as a
// capability; front ends and the chat client supply the implementation.
type Interaction interface {
	OnSelect(name string)
	OnAskAbout(name string)
	OnFindNearby(name, placeType string)
}

// InteractionFuncs adapts plain functions to Interaction. Nil fields are
// ignored.
type InteractionFuncs struct {
	Select     func(name string)
	AskAbout   func(name string)
	FindNearby func(name, placeType string)
}

func (f InteractionFuncs) OnSelect(name string) {
	if f.Select != nil {
		f.Select(name)
	}
}

func (f InteractionFuncs) OnAskAbout(name string) {
	if f.AskAbout != nil {
		f.AskAbout(name)
	}
}

func (f InteractionFuncs) OnFindNearby(name, placeType string) {
	if f.FindNearby != nil {
		f.FindNearby(name, placeType)
	}
}
