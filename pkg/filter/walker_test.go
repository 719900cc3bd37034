package filter

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// kindWalker names the node kind it visits. Only comparisons and logic are
// handled; everything else falls through to StrictWalker.
type kindWalker struct {
	StrictWalker[string]
}

func (kindWalker) WalkComparison(Comparison) (string, error) { return "comparison", nil }
func (kindWalker) WalkLogic(Logic) (string, error)           { return "logic", nil }

type foreignFilter struct{ True }

func TestWalk(t *testing.T) {
	w := kindWalker{}

	got, err := Walk[string](w, Eq(Prop("a"), Lit(1)))
	require.NoError(t, err)
	assert.Equal(t, "comparison", got)

	got, err = Walk[string](w, Or(True{}, False{}))
	require.NoError(t, err)
	assert.Equal(t, "logic", got)

	_, err = Walk[string](w, IsNullOf(Prop("a")))
	var unsupported *UnsupportedNodeError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "a IS NULL", unsupported.Node)
}

func TestWalk_UnknownNode(t *testing.T) {
	_, err := Walk[bool](NeutralWalker{}, foreignFilter{})
	var unsupported *UnsupportedNodeError
	require.True(t, errors.As(err, &unsupported))
	assert.Contains(t, unsupported.Node, "foreignFilter")

	_, err = Walk[bool](NeutralWalker{}, nil)
	require.True(t, errors.As(err, &unsupported))
}

func TestNeutralWalker(t *testing.T) {
	for _, f := range []Filter{True{}, False{}, Not(True{}), Eq(Prop("a"), Lit(1)), IDs("x")} {
		ok, err := Walk[bool](NeutralWalker{}, f)
		require.NoError(t, err)
		assert.False(t, ok, f.String())
	}
}

func TestWalkExpr(t *testing.T) {
	c := propertyCollector{names: map[string]struct{}{}}
	_, err := WalkExpr[struct{}](c, Arithmetic{Op: Mul, Left: Prop("a"), Right: Function{Name: "abs", Args: []Expression{Prop("b")}}})
	require.NoError(t, err)
	assert.Len(t, c.names, 2)

	_, err = WalkExpr[struct{}](c, nil)
	var unsupported *UnsupportedNodeError
	assert.True(t, errors.As(err, &unsupported))
}

func TestProperties(t *testing.T) {
	f := And(
		Gt(Prop("pop"), Lit(1000)),
		Or(Eq(Prop("state"), Lit("TX")), LikeOf(Prop("name"), "A%")),
		IntersectsOf(Prop("geometry"), Lit(orb.Point{1, 1})),
		InOf(Prop("state"), "TX"),
	)
	assert.Equal(t, []string{"geometry", "name", "pop", "state"}, Properties(f))
	assert.Empty(t, Properties(True{}))
}
