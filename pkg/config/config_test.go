package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-geoquery/pkg/filter"
	"github.com/robert-malhotra/go-geoquery/pkg/schema"
)

const citiesYAML = `
name: cities
primary_key: [id]
capabilities:
  logic: [and, or]
  like: false
fields:
  - name: id
  - name: state
    column: state_code
  - name: pop
    type: integer
  - name: geom
    type: geometry
    column: the_geom
    unit: meters
`

func TestParse(t *testing.T) {
	d, err := Parse(strings.NewReader(citiesYAML))
	require.NoError(t, err)

	assert.Equal(t, "cities", d.Table)
	assert.Equal(t, 4326, d.SRID)

	s, err := d.Schema()
	require.NoError(t, err)
	want := &schema.Schema{
		Name: "cities",
		Fields: []schema.Field{
			{Name: "id", Type: schema.String},
			{Name: "state", Type: schema.String, Column: "state_code"},
			{Name: "pop", Type: schema.Integer},
			{Name: "geom", Type: schema.Geometry, Column: "the_geom", Index: schema.BBoxIndex, Unit: schema.Meters},
		},
		PrimaryKey: []string{"id"},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("schema mismatch (-want +got):\n%s", diff)
	}

	caps, err := d.Capabilities.Resolve()
	require.NoError(t, err)
	wantCaps := schema.FullCapabilities()
	wantCaps.Logic = []filter.LogicOp{filter.OpAnd, filter.OpOr}
	wantCaps.Like = false
	if diff := cmp.Diff(wantCaps, caps); diff != "" {
		t.Errorf("capabilities mismatch (-want +got):\n%s", diff)
	}
}

func TestCapabilities_Resolve(t *testing.T) {
	yes := true
	tests := []struct {
		name string
		in   Capabilities
		want schema.Capabilities
	}{
		{"default preset", Capabilities{}, schema.FullCapabilities()},
		{"spatial", Capabilities{Preset: "spatial"}, schema.SpatialOnly()},
		{"none", Capabilities{Preset: "none"}, schema.Capabilities{}},
		{
			"spatial plus equality",
			Capabilities{Preset: "Spatial", Comparison: []string{"eq", "<>"}, IDs: &yes},
			schema.Capabilities{
				Logic:      []filter.LogicOp{filter.OpAnd},
				Comparison: []filter.CompareOp{filter.EQ, filter.NE},
				IDs:        true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Resolve()
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"no name":        "fields: [{name: a}]",
		"no fields":      "name: x",
		"unknown type":   "name: x\nfields: [{name: a, type: blob}]",
		"unknown index":  "name: x\nfields: [{name: g, type: geometry, index: rtree}]",
		"unknown unit":   "name: x\nfields: [{name: g, type: geometry, unit: parsecs}]",
		"duplicate":      "name: x\nfields: [{name: a}, {name: a}]",
		"missing pk":     "name: x\nprimary_key: [id]\nfields: [{name: a}]",
		"unknown preset": "name: x\nfields: [{name: a}]\ncapabilities: {preset: most}",
		"unknown op":     "name: x\nfields: [{name: a}]\ncapabilities: {comparison: [like]}",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse(strings.NewReader("name: x\ncolour: red\nfields: [{name: a}]"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(citiesYAML), 0o600))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "cities", d.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
