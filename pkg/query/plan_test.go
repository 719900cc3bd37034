package query

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/robert-malhotra/go-geoquery/pkg/cursor"
	"github.com/robert-malhotra/go-geoquery/pkg/feature"
	"github.com/robert-malhotra/go-geoquery/pkg/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbers(n int) []feature.Feature {
	out := make([]feature.Feature, n)
	for i := range out {
		v := i + 1
		out[i] = feature.New(string(rune('a'+i)), map[string]any{
			"n":        v,
			"even":     v%2 == 0,
			"name":     "rec" + string(rune('a'+i)),
			"geometry": orb.Point{float64(v), float64(v)},
		})
	}
	return out
}

func values(t *testing.T, c cursor.Cursor[feature.Feature]) []int {
	t.Helper()
	got, err := cursor.Collect(c)
	require.NoError(t, err)
	out := make([]int, 0, len(got))
	for _, f := range got {
		v, _ := f.Get("n")
		out = append(out, v.(int))
	}
	return out
}

func ptr(n uint64) *uint64 { return &n }

var isEven = filter.Eq(filter.Prop("even"), filter.Lit(true))

func TestPlanApply(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		plan  func(*Plan)
		want  []int
	}{
		{
			name:  "nothing to do",
			query: Query{},
			plan:  func(*Plan) {},
			want:  []int{1, 2, 3, 4, 5},
		},
		{
			name:  "limit after residual filter",
			query: Query{Filter: isEven, Limit: ptr(2)},
			plan:  func(*Plan) {},
			want:  []int{2, 4},
		},
		{
			name:  "offset then limit",
			query: Query{Limit: ptr(2), Offset: ptr(1)},
			plan:  func(*Plan) {},
			want:  []int{2, 3},
		},
		{
			name:  "native paging",
			query: Query{Limit: ptr(2), Offset: ptr(1)},
			plan:  func(p *Plan) { p.Limited().Offsetted() },
			want:  []int{1, 2, 3, 4, 5},
		},
		{
			name:  "native filter with residual",
			query: Query{Filter: filter.And(isEven, filter.Gt(filter.Prop("n"), filter.Lit(2)))},
			plan:  func(p *Plan) { p.Filtered(filter.Gt(filter.Prop("n"), filter.Lit(2))) },
			want:  []int{3, 4, 5},
		},
		{
			name:  "native filter without residual",
			query: Query{Filter: isEven},
			plan:  func(p *Plan) { p.Filtered(filter.True{}) },
			want:  []int{1, 2, 3, 4, 5},
		},
		{
			name:  "client-side bounds",
			query: Query{Bounds: &orb.Bound{Min: orb.Point{1.5, 1.5}, Max: orb.Point{3, 3}}},
			plan:  func(*Plan) {},
			want:  []int{2, 3},
		},
		{
			name:  "native bounds",
			query: Query{Bounds: &orb.Bound{Min: orb.Point{1.5, 1.5}, Max: orb.Point{3, 3}}},
			plan:  func(p *Plan) { p.Bounded() },
			want:  []int{1, 2, 3, 4, 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlan(tt.query)
			tt.plan(p)
			c, err := p.Apply(cursor.FromSlice(numbers(5)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, values(t, c))
		})
	}
}

func TestPlanApply_Twice(t *testing.T) {
	p := NewPlan(Query{})
	_, err := p.Apply(cursor.FromSlice(numbers(1)))
	require.NoError(t, err)
	_, err = p.Apply(cursor.FromSlice(numbers(1)))
	assert.ErrorIs(t, err, ErrPlanApplied)
}

func TestPlanApply_Inconsistent(t *testing.T) {
	t.Run("residual pending", func(t *testing.T) {
		p := NewPlan(Query{Filter: isEven, Limit: ptr(1)}).Limited()
		_, err := p.Apply(cursor.FromSlice(numbers(3)))
		assert.ErrorIs(t, err, ErrInconsistentPlan)
	})
	t.Run("bounds pending", func(t *testing.T) {
		p := NewPlan(Query{Bounds: &orb.Bound{}, Offset: ptr(1)}).Offsetted()
		_, err := p.Apply(cursor.FromSlice(numbers(3)))
		assert.ErrorIs(t, err, ErrInconsistentPlan)
	})
}

func TestPlanProjection(t *testing.T) {
	q := Query{Filter: filter.Gt(filter.Prop("n"), filter.Lit(3)), Fields: []string{"name"}}

	p := NewPlan(q)
	assert.Equal(t, []string{"name", "n"}, p.FetchFields())

	c, err := p.FieldsSelected().Apply(cursor.FromSlice(numbers(5)))
	require.NoError(t, err)
	got, err := cursor.Collect(c)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, f := range got {
		_, ok := f.Get("n")
		assert.False(t, ok, "residual-only field must be stripped")
		_, ok = f.Get("name")
		assert.True(t, ok)
		assert.NotNil(t, f.Geometry())
	}
}

func TestPlanFetchFields(t *testing.T) {
	assert.Nil(t, NewPlan(Query{Filter: isEven}).FetchFields())

	p := NewPlan(Query{Filter: filter.And(isEven, filter.LikeOf(filter.Prop("name"), "a%")), Fields: []string{"name"}})
	assert.Equal(t, []string{"name", "even"}, p.FetchFields())

	p.Filtered(filter.LikeOf(filter.Prop("name"), "a%"))
	assert.Equal(t, []string{"name", "even"}, p.FetchFields(), "stable once the backend answered")
}

func TestPlanResidual(t *testing.T) {
	p := NewPlan(Query{Filter: isEven})
	assert.Equal(t, isEven, p.Residual())
	assert.False(t, p.IsFiltered())

	p.Filtered(nil)
	assert.Equal(t, filter.True{}, p.Residual())
	assert.True(t, p.IsFiltered())
}

func TestPlanApply_CloseReachesSource(t *testing.T) {
	closes := 0
	src := cursor.FromSeq2(func(yield func(feature.Feature, error) bool) {
		defer func() { closes++ }()
		for _, f := range numbers(5) {
			if !yield(f, nil) {
				return
			}
		}
	})
	p := NewPlan(Query{Filter: isEven, Fields: []string{"n"}, Offset: ptr(1), Limit: ptr(1)})
	c, err := p.Apply(src)
	require.NoError(t, err)

	assert.Equal(t, []int{4}, values(t, c))
	require.NoError(t, c.Close())
	assert.Equal(t, 1, closes)
}

func TestPlanMetrics(t *testing.T) {
	client := planClauseCount.WithLabelValues("limit", "client")
	native := planClauseCount.WithLabelValues("limit", "native")
	beforeClient, beforeNative := testutil.ToFloat64(client), testutil.ToFloat64(native)

	_, err := NewPlan(Query{Limit: ptr(1)}).Apply(cursor.Empty[feature.Feature]())
	require.NoError(t, err)
	_, err = NewPlan(Query{Limit: ptr(1)}).Limited().Apply(cursor.Empty[feature.Feature]())
	require.NoError(t, err)

	assert.Equal(t, beforeClient+1, testutil.ToFloat64(client))
	assert.Equal(t, beforeNative+1, testutil.ToFloat64(native))
}
