package schema

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/robert-malhotra/go-geoquery/pkg/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnit(t *testing.T) {
	for name, want := range map[string]Unit{
		"m": Meters, "Meters": Meters, "kilometres": Kilometers, "mi": Miles,
		"feet": Feet, "nautical_miles": NauticalMiles, " degrees ": Degrees,
	} {
		got, err := ParseUnit(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseUnit("furlongs")
	assert.ErrorIs(t, err, ErrUnknownUnit)
}

func TestConvert(t *testing.T) {
	d, err := Convert(1.5, Kilometers, Meters)
	require.NoError(t, err)
	assert.InDelta(t, 1500, d, 1e-9)

	d, err = Convert(1, Miles, Feet)
	require.NoError(t, err)
	assert.InDelta(t, 5280, d, 1e-6)

	_, err = Convert(1, Degrees, Meters)
	assert.ErrorIs(t, err, ErrIncompatibleUnits)
}

func TestResolveUnits(t *testing.T) {
	s := citySchema(t, PointIndex)
	pt := filter.Lit(orb.Point{1, 2})

	t.Run("converts into the field unit", func(t *testing.T) {
		f := filter.And(
			filter.Eq(filter.Prop("state"), filter.Lit("TX")),
			filter.Not(filter.DWithin(pt, filter.Prop("geom"), 2, "km")),
		)
		got, err := ResolveUnits(f, s)
		require.NoError(t, err)

		want := filter.And(
			filter.Eq(filter.Prop("state"), filter.Lit("TX")),
			filter.Not(filter.DWithin(pt, filter.Prop("geom"), 2000, "")),
		)
		assert.Equal(t, want, got)
	})

	t.Run("leaves unit-less distances alone", func(t *testing.T) {
		f := filter.Beyond(filter.Prop("geom"), pt, 5, "")
		got, err := ResolveUnits(f, s)
		require.NoError(t, err)
		assert.Equal(t, f, got)
	})

	t.Run("angular to linear fails", func(t *testing.T) {
		_, err := ResolveUnits(filter.DWithin(filter.Prop("geom"), pt, 1, "degrees"), s)
		var ee *filter.EvaluationError
		require.True(t, errors.As(err, &ee))
		assert.ErrorIs(t, err, ErrIncompatibleUnits)
	})

	t.Run("field without unit fails", func(t *testing.T) {
		bare, err := New("bare", []Field{{Name: "geom", Type: Geometry, Index: FullIndex}})
		require.NoError(t, err)
		_, err = ResolveUnits(filter.DWithin(filter.Prop("geom"), pt, 1, "m"), bare)
		assert.ErrorIs(t, err, ErrIncompatibleUnits)
	})
}

func TestSchema(t *testing.T) {
	s := citySchema(t, BBoxIndex)

	g, ok := s.Geometry()
	require.True(t, ok)
	assert.Equal(t, "geom", g.Name)
	assert.Equal(t, []string{"id", "name", "state", "area", "geom"}, s.Names())

	_, err := New("dup", []Field{{Name: "a"}, {Name: "a"}})
	assert.Error(t, err)

	assert.Equal(t, "the_geom", Field{Name: "geom", Column: "the_geom"}.ColumnName())
	assert.Equal(t, []filter.SpatialOp{filter.Intersects, filter.Within, filter.DWithinOp}, PointIndex.Ops())
}
