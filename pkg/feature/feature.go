// Package feature defines the record abstraction that cursors yield and
// filters evaluate against.
package feature

import (
	"maps"
	"slices"

	"github.com/paulmach/orb"
)

// DefaultGeometryField is the property name MapFeature reads its geometry from
// when no other name is given.
const DefaultGeometryField = "geometry"

// Feature is a single record read from a dataset.
type Feature interface {
	ID() string
	// Get returns the named attribute and whether the record carries it.
	// A present attribute may still hold a nil value.
	Get(name string) (any, bool)
	Geometry() orb.Geometry
}

// MapFeature is a Feature backed by a property map.
type MapFeature struct {
	FID           string
	Properties    map[string]any
	GeometryField string
}

// New returns a MapFeature whose geometry lives under DefaultGeometryField.
func New(id string, props map[string]any) *MapFeature {
	if props == nil {
		props = map[string]any{}
	}
	return &MapFeature{FID: id, Properties: props, GeometryField: DefaultGeometryField}
}

func (f *MapFeature) ID() string { return f.FID }

func (f *MapFeature) Get(name string) (any, bool) {
	v, ok := f.Properties[name]
	return v, ok
}

func (f *MapFeature) Geometry() orb.Geometry {
	name := f.GeometryField
	if name == "" {
		name = DefaultGeometryField
	}
	g, _ := f.Properties[name].(orb.Geometry)
	return g
}

// Names returns the property names in sorted order.
func (f *MapFeature) Names() []string {
	return slices.Sorted(maps.Keys(f.Properties))
}

// Select returns a view of f restricted to the named attributes. The geometry
// accessor is left untouched. A nil or empty field list returns f unchanged.
func Select(f Feature, fields []string) Feature {
	if len(fields) == 0 {
		return f
	}
	allowed := make(map[string]struct{}, len(fields))
	for _, name := range fields {
		allowed[name] = struct{}{}
	}
	return &selected{inner: f, allowed: allowed}
}

type selected struct {
	inner   Feature
	allowed map[string]struct{}
}

func (s *selected) ID() string { return s.inner.ID() }

func (s *selected) Get(name string) (any, bool) {
	if _, ok := s.allowed[name]; !ok {
		return nil, false
	}
	return s.inner.Get(name)
}

func (s *selected) Geometry() orb.Geometry { return s.inner.Geometry() }
