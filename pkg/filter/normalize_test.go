package filter

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestComparisonNormalize(t *testing.T) {
	tests := []struct {
		name   string
		in     Comparison
		want   Comparison
		wantOK bool
	}{
		{"canonical stays", Lt(Prop("a"), Lit(1)), Lt(Prop("a"), Lit(1)), true},
		{"lt flips to gt", Lt(Lit(1), Prop("a")), Gt(Prop("a"), Lit(1)), true},
		{"ge flips to le", Ge(Lit(1), Prop("a")), Le(Prop("a"), Lit(1)), true},
		{"eq is symmetric", Eq(Lit(1), Prop("a")), Eq(Prop("a"), Lit(1)), true},
		{"two properties", Eq(Prop("a"), Prop("b")), Eq(Prop("a"), Prop("b")), false},
		{"two literals", Eq(Lit(1), Lit(1)), Eq(Lit(1), Lit(1)), false},
		{"computed side", Gt(Arithmetic{Op: Add, Left: Prop("a"), Right: Lit(1)}, Lit(2)), Gt(Arithmetic{Op: Add, Left: Prop("a"), Right: Lit(1)}, Lit(2)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.in.Normalize()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSpatialNormalize(t *testing.T) {
	pt := Lit(orb.Point{1, 2})

	got, ok := WithinOf(pt, Prop("geom")).Normalize()
	assert.True(t, ok)
	assert.Equal(t, ContainsOf(Prop("geom"), pt), got)

	got, ok = DWithin(pt, Prop("geom"), 5, "km").Normalize()
	assert.True(t, ok)
	assert.Equal(t, DWithin(Prop("geom"), pt, 5, "km"), got)

	_, ok = IntersectsOf(Function{Name: "envelope", Args: []Expression{Prop("geom")}}, pt).Normalize()
	assert.False(t, ok)
}

func TestInvert(t *testing.T) {
	for _, op := range []CompareOp{EQ, NE, LT, LE, GT, GE} {
		assert.Equal(t, op, op.Invert().Invert())
	}
	for _, op := range SpatialOps {
		assert.Equal(t, op, op.Invert().Invert())
	}
	assert.Equal(t, BeyondOp, BeyondOp.Invert())
}
