package stacapi

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-geoquery/pkg/filter"
	"github.com/robert-malhotra/go-geoquery/pkg/schema"
)

func TestEncodeJSON(t *testing.T) {
	state := filter.Prop("state")
	tests := []struct {
		name   string
		filter filter.Filter
		want   string
	}{
		{"eq", filter.Eq(state, filter.Lit("TX")), `{"op":"=","args":[{"property":"state"},"TX"]}`},
		{"literal first", filter.Gt(filter.Lit(10), filter.Prop("eo:cloud_cover")), `{"op":"<","args":[{"property":"eo:cloud_cover"},10]}`},
		{"eq null", filter.Eq(state, filter.Lit(nil)), `{"op":"isNull","args":[{"property":"state"}]}`},
		{
			"ne",
			filter.Ne(state, filter.Lit("TX")),
			`{"op":"or","args":[{"op":"<>","args":[{"property":"state"},"TX"]},{"op":"isNull","args":[{"property":"state"}]}]}`,
		},
		{"in", filter.InOf(state, "TX", "CA"), `{"op":"in","args":[{"property":"state"},["TX","CA"]]}`},
		{"like", filter.LikeOf(filter.Prop("name"), "San%"), `{"op":"like","args":[{"property":"name"},"San%"]}`},
		{"not null", filter.NotNullOf(state), `{"op":"not","args":[{"op":"isNull","args":[{"property":"state"}]}]}`},
		{"ids", filter.IDs("a", "b"), `{"op":"in","args":[{"property":"id"},["a","b"]]}`},
		{
			"and",
			filter.And(filter.Eq(state, filter.Lit("TX")), filter.Eq(filter.Prop("ok"), filter.Lit(true))),
			`{"op":"and","args":[{"op":"=","args":[{"property":"state"},"TX"]},{"op":"=","args":[{"property":"ok"},true]}]}`,
		},
		{
			"bbox",
			filter.IntersectsOf(filter.Prop("geometry"), filter.Lit(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}})),
			`{"op":"s_intersects","args":[{"property":"geometry"},{"bbox":[0,0,10,10]}]}`,
		},
		{
			"point within swapped",
			filter.ContainsOf(filter.Lit(orb.Point{1, 2}), filter.Prop("geometry")),
			`{"op":"s_within","args":[{"property":"geometry"},{"type":"Point","coordinates":[1,2]}]}`,
		},
	}

	enc := NewEncoder(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := enc.EncodeJSON(tt.filter)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestEncodeJSON_Temporal(t *testing.T) {
	at := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	got, err := NewEncoder(nil).EncodeJSON(filter.Ge(filter.Prop("datetime"), filter.Lit(at)))
	require.NoError(t, err)
	assert.Contains(t, string(got), `"t_after"`)
	assert.Contains(t, string(got), `"t_equals"`)
	assert.Contains(t, string(got), "2023-06-01T00:00:00Z")
}

func TestEncode_Errors(t *testing.T) {
	s, err := schema.New("items", []schema.Field{{Name: "state"}})
	require.NoError(t, err)

	tests := []struct {
		name   string
		enc    *Encoder
		filter filter.Filter
	}{
		{"distance", NewEncoder(nil), filter.DWithin(filter.Prop("geometry"), filter.Lit(orb.Point{}), 1, "")},
		{"property vs property", NewEncoder(nil), filter.Eq(filter.Prop("a"), filter.Prop("b"))},
		{"constant", NewEncoder(nil), filter.True{}},
		{"ordering against null", NewEncoder(nil), filter.Lt(filter.Prop("a"), filter.Lit(nil))},
		{"not queryable", NewEncoder(s), filter.Eq(filter.Prop("cloud"), filter.Lit(1))},
		{"unsupported literal", NewEncoder(nil), filter.Eq(filter.Prop("a"), filter.Lit([]int{1}))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.enc.Encode(tt.filter)
			var ee *filter.EncodingError
			assert.ErrorAs(t, err, &ee)
		})
	}
}

func TestQualifier_RejectsWhatCannotBeEncoded(t *testing.T) {
	s, err := schema.New("items", []schema.Field{
		{Name: "id"},
		{Name: "platform"},
		{Name: "geometry", Type: schema.Geometry, Index: schema.FullIndex, Unit: schema.Degrees},
	}, "id")
	require.NoError(t, err)
	q := NewCollection(nil, "items", s).Qualifier()

	ok, err := filter.Walk(q, filter.Eq(filter.Prop("platform"), filter.Lit("s2a")))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = filter.Walk(q, filter.DWithin(filter.Prop("geometry"), filter.Lit(orb.Point{}), 1, ""))
	assert.False(t, ok, "the index supports it but CQL2 cannot say it")

	ok, _ = filter.Walk(q, filter.Not(filter.Eq(filter.Prop("platform"), filter.Lit("s2a"))))
	assert.False(t, ok)

	ok, _ = filter.Walk(q, filter.Or(filter.Eq(filter.Prop("platform"), filter.Lit("s2a")), filter.Eq(filter.Prop("platform"), filter.Prop("id"))))
	assert.False(t, ok)
}
