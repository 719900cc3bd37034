package sqlenc

import (
	"errors"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-geoquery/pkg/filter"
	"github.com/robert-malhotra/go-geoquery/pkg/schema"
)

var (
	box = orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}
	pt  = orb.Point{1, 2}
)

const boxWKT = "POLYGON((0 0,10 0,10 10,0 10,0 0))"

func citySchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New("cities", []schema.Field{
		{Name: "id", Type: schema.String},
		{Name: "state", Type: schema.String, Column: "state_code"},
		{Name: "pop", Type: schema.Integer},
		{Name: "geom", Type: schema.Geometry, Column: "the_geom", Index: schema.BBoxIndex, Unit: schema.Meters},
	}, "id")
	require.NoError(t, err)
	return s
}

func TestEncode(t *testing.T) {
	state := filter.Prop("state")
	geom := filter.Prop("geom")

	tests := []struct {
		name     string
		filter   filter.Filter
		wantSQL  string
		wantArgs []any
	}{
		{"true", filter.True{}, "1 = 1", nil},
		{"false", filter.False{}, "1 = 0", nil},
		{"eq", filter.Eq(state, filter.Lit("TX")), `"state" = ?`, []any{"TX"}},
		{"literal first", filter.Lt(filter.Lit(5), filter.Prop("n")), `"n" > ?`, []any{5}},
		{"ne", filter.Ne(state, filter.Lit("TX")), `("state" <> ? OR "state" IS NULL)`, []any{"TX"}},
		{"eq null", filter.Eq(state, filter.Lit(nil)), `"state" IS NULL`, nil},
		{"ne null", filter.Ne(state, filter.Lit(nil)), `"state" IS NOT NULL`, nil},
		{"order against null", filter.Ge(state, filter.Lit(nil)), "1 = 0", nil},
		{"le", filter.Le(filter.Prop("n"), filter.Lit(2.5)), `"n" <= ?`, []any{2.5}},
		{
			"and",
			filter.And(filter.Eq(filter.Prop("a"), filter.Lit(1)), filter.Gt(filter.Prop("b"), filter.Lit(2))),
			`("a" = ? AND "b" > ?)`, []any{1, 2},
		},
		{
			"or",
			filter.Or(filter.Eq(filter.Prop("a"), filter.Lit(1)), filter.IsNullOf(filter.Prop("b"))),
			`("a" = ? OR "b" IS NULL)`, []any{1},
		},
		{"not", filter.Not(filter.Eq(filter.Prop("a"), filter.Lit(1))), `NOT (COALESCE("a" = ?, FALSE))`, []any{1}},
		{"in", filter.InOf(state, "TX", "CA"), `"state" IN (?,?)`, []any{"TX", "CA"}},
		{"like", filter.LikeOf(filter.Prop("name"), "San%"), `"name" LIKE ? ESCAPE '\'`, []any{"San%"}},
		{"not like", filter.Like{Expr: filter.Prop("name"), Pattern: "a_", Negated: true}, `"name" NOT LIKE ? ESCAPE '\'`, []any{"a_"}},
		{"not null", filter.NotNullOf(filter.Prop("pop")), `"pop" IS NOT NULL`, nil},
		{"ids", filter.IDs("a", "b"), `"id" IN (?,?)`, []any{"a", "b"}},
		{"intersects", filter.IntersectsOf(geom, filter.Lit(box)), `ST_Intersects("geom", ST_GeomFromText(?, ?))`, []any{boxWKT, 4326}},
		{"within swapped", filter.WithinOf(filter.Lit(box), geom), `ST_Contains("geom", ST_GeomFromText(?, ?))`, []any{boxWKT, 4326}},
		{"dwithin", filter.DWithin(geom, filter.Lit(pt), 10, ""), `ST_DWithin("geom", ST_GeomFromText(?, ?), ?)`, []any{"POINT(1 2)", 4326, 10.0}},
		{"beyond", filter.Beyond(filter.Lit(pt), geom, 3, ""), `NOT ST_DWithin("geom", ST_GeomFromText(?, ?), ?)`, []any{"POINT(1 2)", 4326, 3.0}},
	}

	enc := New(WithPrimaryKey("id"))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := enc.Encode(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestEncode_Schema(t *testing.T) {
	enc := New(WithSchema(citySchema(t)), WithPrimaryKey("id"), WithSRID(3857), WithPlaceholder(sq.Dollar))
	f := filter.And(
		filter.Eq(filter.Prop("state"), filter.Lit("TX")),
		filter.IntersectsOf(filter.Prop("geom"), filter.Lit(pt)),
	)

	sql, args, err := enc.Encode(f)
	require.NoError(t, err)
	assert.Equal(t, `("state_code" = $1 AND ST_Intersects("the_geom", ST_GeomFromText($2, $3)))`, sql)
	assert.Equal(t, []any{"TX", "POINT(1 2)", 3857}, args)
}

func TestEncode_Inline(t *testing.T) {
	enc := New(WithInlineLiterals())
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := filter.And(
		filter.Eq(filter.Prop("name"), filter.Lit("O'Brien")),
		filter.Ge(filter.Prop("updated"), filter.Lit(when)),
		filter.Eq(filter.Prop("active"), filter.Lit(true)),
		filter.DWithin(filter.Prop("geom"), filter.Lit(pt), 10, ""),
	)

	sql, args, err := enc.Encode(f)
	require.NoError(t, err)
	assert.Nil(t, args)
	assert.Equal(t,
		`("name" = 'O''Brien' AND "updated" >= '2024-05-01T12:00:00Z' AND "active" = TRUE AND `+
			`ST_DWithin("geom", ST_GeomFromText('POINT(1 2)', 4326), 10))`,
		sql)
}

func TestEncode_Errors(t *testing.T) {
	s := citySchema(t)
	tests := []struct {
		name   string
		enc    *Encoder
		filter filter.Filter
	}{
		{"composite key", New(WithPrimaryKey("a", "b")), filter.IDs("x")},
		{"no key", New(), filter.IDs("x")},
		{"property vs property", New(), filter.Eq(filter.Prop("a"), filter.Prop("b"))},
		{"computed operand", New(), filter.Gt(filter.Function{Name: "strlen", Args: []filter.Expression{filter.Prop("a")}}, filter.Lit(3))},
		{"unresolved unit", New(), filter.DWithin(filter.Prop("geom"), filter.Lit(pt), 1, "km")},
		{"non-geometry literal", New(), filter.IntersectsOf(filter.Prop("geom"), filter.Lit("x"))},
		{"unknown field", New(WithSchema(s)), filter.Eq(filter.Prop("nope"), filter.Lit(1))},
		{"nested failure", New(), filter.Or(filter.Eq(filter.Prop("a"), filter.Lit(1)), filter.Eq(filter.Lit(1), filter.Lit(2)))},
		{"not with two parts", New(), filter.Logic{Op: filter.OpNot, Parts: []filter.Filter{filter.True{}, filter.True{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.enc.Encode(tt.filter)
			var ee *filter.EncodingError
			assert.True(t, errors.As(err, &ee), "got %v", err)
		})
	}
}

func TestEncode_UnknownNode(t *testing.T) {
	_, _, err := New().Encode(nil)
	var ue *filter.UnsupportedNodeError
	assert.True(t, errors.As(err, &ue))
}

func TestEncode_SpatialOnlyBackend(t *testing.T) {
	s := citySchema(t)
	f := filter.And(
		filter.IntersectsOf(filter.Prop("geom"), filter.Lit(box)),
		filter.Eq(filter.Prop("state"), filter.Lit("TX")),
	)

	native, residual := filter.Split(f, schema.ForSchema(s, schema.SpatialOnly()))
	assert.Equal(t, filter.Eq(filter.Prop("state"), filter.Lit("TX")), residual)

	sql, args, err := New(WithSchema(s)).Encode(native)
	require.NoError(t, err)
	assert.Equal(t, `ST_Intersects("the_geom", ST_GeomFromText(?, ?))`, sql)
	assert.Equal(t, []any{boxWKT, 4326}, args)
	assert.NotContains(t, sql, "state")
}

func TestInline(t *testing.T) {
	got, err := Inline(`"a?" = ? AND b = '?' AND c IN (?,?)`, []any{nil, int64(3), 1.5})
	require.NoError(t, err)
	assert.Equal(t, `"a?" = NULL AND b = '?' AND c IN (3,1.5)`, got)

	_, err = Inline("a = ?", nil)
	assert.ErrorIs(t, err, ErrArgumentCount)
	_, err = Inline("a = 1", []any{1})
	assert.ErrorIs(t, err, ErrArgumentCount)
	_, err = Inline("a = ?", []any{struct{}{}})
	assert.Error(t, err)
}
