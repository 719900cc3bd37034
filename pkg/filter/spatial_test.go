package filter

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/robert-malhotra/go-geoquery/pkg/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	square = orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}
	inner  = orb.Polygon{{{2, 2}, {4, 2}, {4, 4}, {2, 4}, {2, 2}}}
	far    = orb.Polygon{{{20, 20}, {30, 20}, {30, 30}, {20, 30}, {20, 20}}}
)

func TestRelate2D(t *testing.T) {
	tests := []struct {
		name     string
		op       SpatialOp
		a, b     orb.Geometry
		distance float64
		want     bool
	}{
		{"point in polygon intersects", Intersects, orb.Point{5, 5}, square, 0, true},
		{"point on boundary intersects", Intersects, orb.Point{10, 5}, square, 0, true},
		{"point outside", Intersects, orb.Point{15, 5}, square, 0, false},
		{"crossing lines", Intersects, orb.LineString{{0, 0}, {2, 2}}, orb.LineString{{0, 2}, {2, 0}}, 0, true},
		{"parallel lines", Intersects, orb.LineString{{0, 0}, {2, 0}}, orb.LineString{{0, 1}, {2, 1}}, 0, false},
		{"line through polygon", Intersects, orb.LineString{{-5, 5}, {15, 5}}, square, 0, true},
		{"bound intersects polygon", Intersects, orb.Bound{Min: orb.Point{9, 9}, Max: orb.Point{12, 12}}, square, 0, true},
		{"disjoint", Disjoint, far, square, 0, true},
		{"contains inner", Contains, square, inner, 0, true},
		{"does not contain far", Contains, square, far, 0, false},
		{"within", Within, inner, square, 0, true},
		{"within point", Within, orb.Point{3, 3}, inner, 0, true},
		{"equals", Equals, inner, inner, 0, true},
		{"dwithin", DWithinOp, orb.Point{0, 0}, orb.Point{3, 4}, 5, true},
		{"dwithin too far", DWithinOp, orb.Point{0, 0}, orb.Point{3, 4}, 4.9, false},
		{"dwithin polygon edge", DWithinOp, orb.Point{12, 5}, square, 2, true},
		{"beyond", BeyondOp, far, square, 5, true},
		{"touches points", Touches, orb.Point{1, 1}, orb.Point{1, 1}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Relate2D(tt.op, tt.a, tt.b, tt.distance)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelate2D_Unsupported(t *testing.T) {
	for _, op := range []SpatialOp{Touches, Crosses, Overlaps} {
		_, err := Relate2D(op, square, inner, 0)
		assert.ErrorIs(t, err, ErrUnsupportedRelation, op)
	}
}

func TestGeometryDistance(t *testing.T) {
	assert.InDelta(t, math.Sqrt(200), GeometryDistance(square, far), 1e-9)
	assert.Equal(t, 0.0, GeometryDistance(square, inner))
}

func TestSpatialEvaluate(t *testing.T) {
	rec := feature.New("f", map[string]any{"geometry": orb.Point{5, 5}, "name": "x", "empty": nil})

	ok, err := WithinOf(Prop("geometry"), Lit(square)).Evaluate(rec)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ContainsOf(Lit(square), Prop("geometry")).Evaluate(rec)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IntersectsOf(Prop("empty"), Lit(square)).Evaluate(rec)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = IntersectsOf(Prop("name"), Lit(square)).Evaluate(rec)
	assert.ErrorIs(t, err, ErrOperandType)
}
