// Package schema describes the fields a dataset exposes and decides which
// filter fragments a backend can execute natively.
package schema

import (
	"fmt"
	"slices"

	"github.com/robert-malhotra/go-geoquery/pkg/filter"
)

// Type is the value type of a field.
type Type string

const (
	String    Type = "string"
	Number    Type = "number"
	Integer   Type = "integer"
	Boolean   Type = "boolean"
	Timestamp Type = "timestamp"
	Geometry  Type = "geometry"
)

// SpatialIndex names the kind of spatial index behind a geometry field. The
// index determines which spatial relations the backend can answer.
type SpatialIndex string

const (
	NoIndex         SpatialIndex = "none"
	BBoxIndex       SpatialIndex = "bbox"
	PointIndex      SpatialIndex = "point"
	PrefixTreeIndex SpatialIndex = "prefix_tree"
	FullIndex       SpatialIndex = "full"
)

var indexOps = map[SpatialIndex][]filter.SpatialOp{
	BBoxIndex:       {filter.Intersects, filter.Contains, filter.Within, filter.Disjoint, filter.Equals, filter.DWithinOp},
	PointIndex:      {filter.Intersects, filter.Within, filter.DWithinOp},
	PrefixTreeIndex: {filter.Intersects, filter.Contains, filter.Within, filter.DWithinOp},
	FullIndex:       filter.SpatialOps,
}

// Ops returns the spatial relations the index supports.
func (i SpatialIndex) Ops() []filter.SpatialOp {
	return indexOps[i]
}

// Supports reports whether the index answers op.
func (i SpatialIndex) Supports(op filter.SpatialOp) bool {
	return slices.Contains(indexOps[i], op)
}

// Field describes one attribute of a dataset.
type Field struct {
	Name string `yaml:"name"`
	Type Type   `yaml:"type" default:"string"`
	// Column is the backend name of the field; empty means Name.
	Column string `yaml:"column,omitempty"`
	// Index and Unit only apply to geometry fields.
	Index SpatialIndex `yaml:"index,omitempty"`
	Unit  Unit         `yaml:"unit,omitempty"`
}

// ColumnName returns the backend name of the field.
func (f Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// Provider resolves field names to their descriptions.
type Provider interface {
	Field(name string) (Field, bool)
}

// Schema is a named list of fields with an optional primary key.
type Schema struct {
	Name       string
	Fields     []Field
	PrimaryKey []string
}

// New builds a Schema and rejects duplicate field names.
func New(name string, fields []Field, primaryKey ...string) (*Schema, error) {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema %s: field without a name", name)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("schema %s: duplicate field %q", name, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return &Schema{Name: name, Fields: fields, PrimaryKey: primaryKey}, nil
}

func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Geometry returns the first geometry field.
func (s *Schema) Geometry() (Field, bool) {
	for _, f := range s.Fields {
		if f.Type == Geometry {
			return f, true
		}
	}
	return Field{}, false
}

// Names returns the field names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}
