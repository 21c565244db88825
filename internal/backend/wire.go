package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zulandar/proptalk/internal/property"
)

// ChatReply is the normalized answer to a chat query.
type ChatReply struct {
	Text        string
	Properties  []property.Summary
	Images      []string
	Suggestions []string
	Behavior    map[string]any
}

// PropertyList is the normalized result of the property listing. List and
// Map keep the two sources apart only for callers that care; Catalog merges
// them by name.
type PropertyList struct {
	List []property.Summary
	Map  []property.Summary
}

// Catalog merges both sources into one set keyed by name.
func (l *PropertyList) Catalog() *property.Catalog {
	return property.NewCatalog(l.List, l.Map)
}

// Place is a point of interest near a property.
type Place struct {
	Name     string   `json:"name"`
	Vicinity string   `json:"vicinity"`
	Rating   *float64 `json:"rating,omitempty"`
}

// NearbyResult is the normalized nearby-places answer.
type NearbyResult struct {
	Places []Place
}

// Health is the backend health report.
type Health struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

type chatRequest struct {
	Query     string  `json:"query"`
	SessionID *string `json:"session_id"`
}

type chatResponse struct {
	Response             string         `json:"response"`
	Properties           []listRecord   `json:"properties"`
	Images               []string       `json:"images"`
	ProactiveSuggestions []string       `json:"proactive_suggestions"`
	Suggestions          []string       `json:"suggestions"`
	UserBehavior         map[string]any `json:"user_behavior"`
}

func (r chatResponse) normalize() *ChatReply {
	suggestions := r.ProactiveSuggestions
	if len(suggestions) == 0 {
		suggestions = r.Suggestions
	}
	props := make([]property.Summary, 0, len(r.Properties))
	for _, rec := range r.Properties {
		if s, ok := rec.summary(); ok {
			props = append(props, s)
		}
	}
	return &ChatReply{
		Text:        r.Response,
		Properties:  props,
		Images:      nonNil(r.Images),
		Suggestions: nonNil(suggestions),
		Behavior:    r.UserBehavior,
	}
}

type listResponse struct {
	Properties    []listRecord `json:"properties"`
	MapProperties []mapRecord  `json:"map_properties"`
}

func (r listResponse) normalize() *PropertyList {
	out := &PropertyList{
		List: make([]property.Summary, 0, len(r.Properties)),
		Map:  make([]property.Summary, 0, len(r.MapProperties)),
	}
	for _, rec := range r.Properties {
		if s, ok := rec.summary(); ok {
			out.List = append(out.List, s)
		}
	}
	for _, rec := range r.MapProperties {
		if s, ok := rec.summary(); ok {
			out.Map = append(out.Map, s)
		}
	}
	return out
}

// listRecord is the list-detail shape: spreadsheet column names as keys.
type listRecord struct {
	Name      flexString `json:"Building Name"`
	Location  flexString `json:"Location"`
	Price     flexString `json:"Price Range (Lakhs)"`
	Types     flexString `json:"Apartment Types"`
	Amenities flexString `json:"Amenities"`
	Builder   flexString `json:"Builder Name"`
	Contact   flexString `json:"Builder Contact"`
	Status    flexString `json:"Availability Status"`
	Photo     flexString `json:"Building Photo URL"`
	Lat       flexFloat  `json:"Latitude"`
	Lng       flexFloat  `json:"Longitude"`
}

func (r listRecord) summary() (property.Summary, bool) {
	s := property.Summary{
		Name:      strings.TrimSpace(string(r.Name)),
		Location:  string(r.Location),
		Price:     string(r.Price),
		UnitTypes: string(r.Types),
		Amenities: string(r.Amenities),
		Builder:   string(r.Builder),
		Contact:   string(r.Contact),
		Status:    string(r.Status),
		PhotoURL:  string(r.Photo),
	}
	s.Coordinates = coords(r.Lat, r.Lng)
	return s, s.Name != ""
}

// mapRecord is the map-marker shape.
type mapRecord struct {
	Name      flexString `json:"name"`
	Location  flexString `json:"location"`
	Price     flexString `json:"price"`
	Types     flexString `json:"types"`
	Amenities flexString `json:"amenities"`
	Builder   flexString `json:"builder"`
	Contact   flexString `json:"contact"`
	Status    flexString `json:"status"`
	Lat       flexFloat  `json:"lat"`
	Lng       flexFloat  `json:"lng"`
}

func (r mapRecord) summary() (property.Summary, bool) {
	s := property.Summary{
		Name:      strings.TrimSpace(string(r.Name)),
		Location:  string(r.Location),
		Price:     string(r.Price),
		UnitTypes: string(r.Types),
		Amenities: string(r.Amenities),
		Builder:   string(r.Builder),
		Contact:   string(r.Contact),
		Status:    string(r.Status),
	}
	s.Coordinates = coords(r.Lat, r.Lng)
	return s, s.Name != ""
}

func coords(lat, lng flexFloat) *property.LatLng {
	if lat.ptr == nil || lng.ptr == nil {
		return nil
	}
	p := property.LatLng{Lat: *lat.ptr, Lng: *lng.ptr}
	if !p.Valid() {
		return nil
	}
	return &p
}

type nearbyRequest struct {
	PropertyName string `json:"property_name"`
	PlaceType    string `json:"place_type"`
}

type nearbyResponse struct {
	Nearby *struct {
		Places []struct {
			Name     flexString `json:"name"`
			Vicinity flexString `json:"vicinity"`
			Rating   flexFloat  `json:"rating"`
		} `json:"places"`
	} `json:"nearby"`
}

func (r nearbyResponse) normalize() (*NearbyResult, error) {
	if r.Nearby == nil || r.Nearby.Places == nil {
		return nil, fmt.Errorf("nearby: %w", ErrMalformed)
	}
	out := &NearbyResult{Places: make([]Place, 0, len(r.Nearby.Places))}
	for _, p := range r.Nearby.Places {
		if p.Name == "" {
			continue
		}
		out.Places = append(out.Places, Place{
			Name:     string(p.Name),
			Vicinity: string(p.Vicinity),
			Rating:   p.Rating.ptr,
		})
	}
	return out, nil
}

// flexString accepts a JSON string, number, bool or null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	*f = flexString(string(b))
	return nil
}

// flexFloat accepts a JSON number, a numeric string, or null/"" for unset.
// Values that are NaN in spreadsheet exports arrive as strings and are
// treated as unset.
type flexFloat struct {
	ptr *float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	f.ptr = nil
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return nil
	}
	f.ptr = &v
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
