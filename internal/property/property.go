// Package property holds the canonical property view shared by every
// component, plus the tracker that remembers which property the
// conversation is currently about.
package property

import "strings"

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate is inside WGS84 bounds and not the
// zero value the backend uses for "unknown".
func (p LatLng) Valid() bool {
	if p.Lat == 0 && p.Lng == 0 {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Summary is the normalized view of a listing. Both backend shapes (the
// list-detail record and the map record) are converted to a Summary at the
// backend boundary.
type Summary struct {
	Name        string  `json:"name"`
	Location    string  `json:"location"`
	Price       string  `json:"price"` // lakhs, kept verbatim ("85", "80-120")
	UnitTypes   string  `json:"unit_types"`
	Coordinates *LatLng `json:"coordinates,omitempty"`
	Amenities   string  `json:"amenities,omitempty"`
	Builder     string  `json:"builder,omitempty"`
	Contact     string  `json:"contact,omitempty"`
	Status      string  `json:"status,omitempty"`
	PhotoURL    string  `json:"photo_url,omitempty"`
}

// HasCoordinates reports whether the property can be placed on a map.
func (s Summary) HasCoordinates() bool {
	return s.Coordinates != nil && s.Coordinates.Valid()
}

// Key is the case-insensitive identity of a property.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// mergeFrom fills empty fields of s from other. Non-empty fields of s win.
func (s *Summary) mergeFrom(other Summary) {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&s.Location, other.Location)
	fill(&s.Price, other.Price)
	fill(&s.UnitTypes, other.UnitTypes)
	fill(&s.Amenities, other.Amenities)
	fill(&s.Builder, other.Builder)
	fill(&s.Contact, other.Contact)
	fill(&s.Status, other.Status)
	fill(&s.PhotoURL, other.PhotoURL)
	if !s.HasCoordinates() && other.HasCoordinates() {
		c := *other.Coordinates
		s.Coordinates = &c
	}
}

// Catalog is an ordered set of summaries keyed by name. The first
// occurrence of a name fixes its position.
type Catalog struct {
	order []string
	byKey map[string]Summary
}

// NewCatalog builds a catalog from summaries, merging duplicates by name.
func NewCatalog(items ...[]Summary) *Catalog {
	c := &Catalog{byKey: make(map[string]Summary)}
	for _, list := range items {
		c.Merge(list)
	}
	return c
}

// Merge adds items, combining fields of entries that share a name.
// Entries without a name are dropped.
func (c *Catalog) Merge(items []Summary) {
	if c.byKey == nil {
		c.byKey = make(map[string]Summary)
	}
	for _, it := range items {
		k := Key(it.Name)
		if k == "" {
			continue
		}
		existing, ok := c.byKey[k]
		if !ok {
			c.order = append(c.order, k)
			c.byKey[k] = it
			continue
		}
		existing.mergeFrom(it)
		c.byKey[k] = existing
	}
}

// Lookup finds a property by name, ignoring case.
func (c *Catalog) Lookup(name string) (Summary, bool) {
	if c == nil {
		return Summary{}, false
	}
	s, ok := c.byKey[Key(name)]
	return s, ok
}

// Len returns the number of distinct properties.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// All returns the summaries in insertion order.
func (c *Catalog) All() []Summary {
	if c == nil {
		return nil
	}
	out := make([]Summary, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.byKey[k])
	}
	return out
}

// Enrich returns items with missing fields (typically coordinates) filled
// from the catalog entry of the same name.
func (c *Catalog) Enrich(items []Summary) []Summary {
	out := make([]Summary, len(items))
	for i, it := range items {
		if known, ok := c.Lookup(it.Name); ok {
			it.mergeFrom(known)
		}
		out[i] = it
	}
	return out
}

// Names returns the display names of items.
func Names(items []Summary) []string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	return names
}
