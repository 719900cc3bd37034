// Package config loads dataset descriptions from YAML: the schema of a
// dataset, where it lives and what its backend can filter natively.
//
//	name: cities
//	table: cities
//	primary_key: [id]
//	capabilities:
//	  preset: full
//	  logic: [AND, OR]
//	fields:
//	  - name: id
//	  - name: state
//	    column: state_code
//	  - name: geom
//	    type: geometry
//	    index: bbox
//	    unit: m
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-geoquery/pkg/filter"
	"github.com/robert-malhotra/go-geoquery/pkg/schema"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid dataset")

// Dataset describes one queryable dataset.
type Dataset struct {
	Name         string         `yaml:"name"`
	Table        string         `yaml:"table"`
	SRID         int            `yaml:"srid" default:"4326"`
	PrimaryKey   []string       `yaml:"primary_key"`
	Fields       []schema.Field `yaml:"fields"`
	Capabilities Capabilities   `yaml:"capabilities"`
}

// Capabilities starts from a preset and overrides the listed features.
type Capabilities struct {
	// Preset is one of full, spatial or none.
	Preset     string   `yaml:"preset" default:"full"`
	Logic      []string `yaml:"logic"`
	Comparison []string `yaml:"comparison"`
	Like       *bool    `yaml:"like"`
	In         *bool    `yaml:"in"`
	Null       *bool    `yaml:"null"`
	IDs        *bool    `yaml:"ids"`
}

// Load reads and validates the dataset file at path.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset config: %w", err)
	}
	d, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Parse decodes a dataset, applies defaults and validates it. Unknown keys
// are rejected.
func Parse(r io.Reader) (*Dataset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var d Dataset
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	if err := defaults.Set(&d); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if d.Table == "" {
		d.Table = d.Name
	}
	for i := range d.Fields {
		f := &d.Fields[i]
		if err := defaults.Set(f); err != nil {
			return nil, fmt.Errorf("apply defaults: %w", err)
		}
		if f.Type == schema.Geometry && f.Index == "" {
			f.Index = schema.BBoxIndex
		}
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

var knownTypes = []schema.Type{schema.String, schema.Number, schema.Integer, schema.Boolean, schema.Timestamp, schema.Geometry}

func (d *Dataset) validate() error {
	if d.Name == "" {
		return invalid("name is required")
	}
	if len(d.Fields) == 0 {
		return invalid("dataset %s has no fields", d.Name)
	}
	for i, f := range d.Fields {
		if !contains(knownTypes, f.Type) {
			return invalid("field %s: unknown type %q", f.Name, f.Type)
		}
		if f.Type != schema.Geometry {
			continue
		}
		if len(f.Index.Ops()) == 0 && f.Index != schema.NoIndex {
			return invalid("field %s: unknown spatial index %q", f.Name, f.Index)
		}
		if f.Unit != "" {
			u, err := schema.ParseUnit(string(f.Unit))
			if err != nil {
				return invalid("field %s: %v", f.Name, err)
			}
			d.Fields[i].Unit = u
		}
	}
	s, err := d.Schema()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	for _, pk := range d.PrimaryKey {
		if _, ok := s.Field(pk); !ok {
			return invalid("primary key %s is not a field", pk)
		}
	}
	if _, err := d.Capabilities.Resolve(); err != nil {
		return err
	}
	return nil
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// Schema builds the dataset schema.
func (d *Dataset) Schema() (*schema.Schema, error) {
	return schema.New(d.Name, d.Fields, d.PrimaryKey...)
}

var logicOps = map[string]filter.LogicOp{
	"AND": filter.OpAnd,
	"OR":  filter.OpOr,
	"NOT": filter.OpNot,
}

var compareOps = map[string]filter.CompareOp{
	"=": filter.EQ, "EQ": filter.EQ,
	"<>": filter.NE, "!=": filter.NE, "NE": filter.NE,
	"<": filter.LT, "LT": filter.LT,
	"<=": filter.LE, "LE": filter.LE,
	">": filter.GT, "GT": filter.GT,
	">=": filter.GE, "GE": filter.GE,
}

// Resolve turns the description into schema.Capabilities.
func (c Capabilities) Resolve() (schema.Capabilities, error) {
	var caps schema.Capabilities
	switch strings.ToLower(c.Preset) {
	case "full", "":
		caps = schema.FullCapabilities()
	case "spatial":
		caps = schema.SpatialOnly()
	case "none":
	default:
		return caps, invalid("unknown capability preset %q", c.Preset)
	}

	if c.Logic != nil {
		caps.Logic = nil
		for _, name := range c.Logic {
			op, ok := logicOps[strings.ToUpper(name)]
			if !ok {
				return caps, invalid("unknown logic operator %q", name)
			}
			caps.Logic = append(caps.Logic, op)
		}
	}
	if c.Comparison != nil {
		caps.Comparison = nil
		for _, name := range c.Comparison {
			op, ok := compareOps[strings.ToUpper(name)]
			if !ok {
				return caps, invalid("unknown comparison operator %q", name)
			}
			caps.Comparison = append(caps.Comparison, op)
		}
	}
	override(&caps.Like, c.Like)
	override(&caps.In, c.In)
	override(&caps.Null, c.Null)
	override(&caps.IDs, c.IDs)
	return caps, nil
}

func override(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
