// Package stacapi runs native requests against a collection of a STAC API.
// Bounds and the native filter travel as the bbox and CQL2-JSON filter
// parameters of the items endpoint; everything else is left to the client
// since the service's limit only sizes pages.
package stacapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb/geojson"
	ogc "github.com/planetlabs/go-ogc/filter"
	stac "github.com/planetlabs/go-stac"

	"github.com/robert-malhotra/go-geoquery/pkg/cursor"
	"github.com/robert-malhotra/go-geoquery/pkg/feature"
	"github.com/robert-malhotra/go-geoquery/pkg/filter"
	"github.com/robert-malhotra/go-geoquery/pkg/logging"
	"github.com/robert-malhotra/go-geoquery/pkg/query"
	"github.com/robert-malhotra/go-geoquery/pkg/schema"
)

// DefaultCapabilities is what CQL2 basic and advanced comparison filters
// cover. NOT is left out: services disagree on how it treats missing
// properties.
func DefaultCapabilities() schema.Capabilities {
	caps := schema.FullCapabilities()
	caps.Logic = []filter.LogicOp{filter.OpAnd, filter.OpOr}
	return caps
}

// Collection is a query.Driver over the items of one collection.
type Collection struct {
	client   *Client
	id       string
	schema   *schema.Schema
	caps     schema.Capabilities
	pageSize int

	encoder   *Encoder
	qualifier *qualifier
}

var _ query.SchemaDriver = (*Collection)(nil)

// CollectionOption configures a Collection.
type CollectionOption func(*Collection)

func WithCapabilities(caps schema.Capabilities) CollectionOption {
	return func(c *Collection) { c.caps = caps }
}

// WithPageSize sets the limit parameter of each page request.
func WithPageSize(n int) CollectionOption {
	return func(c *Collection) { c.pageSize = n }
}

// NewCollection builds a driver for collectionID described by s.
func NewCollection(client *Client, collectionID string, s *schema.Schema, opts ...CollectionOption) *Collection {
	c := &Collection{
		client:   client,
		id:       collectionID,
		schema:   s,
		caps:     DefaultCapabilities(),
		pageSize: 100,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.encoder = NewEncoder(s)
	c.qualifier = &qualifier{inner: schema.ForSchema(s, c.caps), encoder: c.encoder}
	return c
}

// OpenCollection builds a driver whose schema comes from the collection's
// queryables.
func OpenCollection(ctx context.Context, client *Client, collectionID string, opts ...CollectionOption) (*Collection, error) {
	q, err := client.Queryables(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("queryables of %s: %w", collectionID, err)
	}
	s, err := q.Schema(collectionID)
	if err != nil {
		return nil, err
	}
	return NewCollection(client, collectionID, s, opts...), nil
}

func (c *Collection) Qualifier() filter.Walker[bool] { return c.qualifier }

func (c *Collection) Schema() schema.Provider { return c.schema }

// ItemsURL returns the first page URL Execute would request for req.
func (c *Collection) ItemsURL(req query.NativeRequest) (*url.URL, error) {
	values := url.Values{}
	values.Set("limit", strconv.Itoa(c.pageSize))
	if b := req.Bounds; b != nil {
		values.Set("bbox", fmt.Sprintf("%s,%s,%s,%s",
			formatFloat(b.Min[0]), formatFloat(b.Min[1]), formatFloat(b.Max[0]), formatFloat(b.Max[1])))
	}
	if req.Filter != nil && !filter.IsTrue(req.Filter) {
		body, err := c.encoder.EncodeJSON(req.Filter)
		if err != nil {
			return nil, err
		}
		values.Set("filter", string(body))
		values.Set("filter-lang", "cql2-json")
	}
	u := &url.URL{
		Path:     "collections/" + url.PathEscape(c.id) + "/items",
		RawQuery: values.Encode(),
	}
	return c.client.baseURL.ResolveReference(u), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Execute streams the matching items page by page. The first request is only
// sent when the cursor is first read.
func (c *Collection) Execute(ctx context.Context, req query.NativeRequest) (cursor.Cursor[feature.Feature], query.Honored, error) {
	if err := ctx.Err(); err != nil {
		return nil, query.Honored{}, err
	}
	u, err := c.ItemsURL(req)
	if err != nil {
		return nil, query.Honored{}, err
	}
	logging.Debug().Str("collection", c.id).Str("url", u.String()).Msg("searching items")

	items := cursor.FromSeq2(c.client.pages(ctx, u))
	features := cursor.Map(items, c.toFeature)
	return features, query.Honored{Bounds: req.Bounds != nil, Filter: true}, nil
}

// toFeature exposes an item's properties as attributes, with the item
// geometry under "geometry" and timestamp fields parsed.
func (c *Collection) toFeature(item *stac.Item) (feature.Feature, error) {
	props := make(map[string]any, len(item.Properties)+2)
	for k, v := range item.Properties {
		props[k] = v
	}
	for _, f := range c.schema.Fields {
		if f.Type != schema.Timestamp {
			continue
		}
		if s, ok := props[f.Name].(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				props[f.Name] = t.UTC()
			}
		}
	}
	props["id"] = item.Id
	if item.Geometry != nil {
		g, err := decodeGeometry(item.Geometry)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", item.Id, err)
		}
		props[feature.DefaultGeometryField] = g
	}
	return feature.New(item.Id, props), nil
}

func decodeGeometry(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}
	return g.Geometry(), nil
}

// qualifier accepts what the schema qualifier accepts and the encoder can
// translate.
type qualifier struct {
	inner   *schema.Qualifier
	encoder *Encoder
}

func (q *qualifier) encodable(ok bool, err error, n filter.Filter) (bool, error) {
	if err != nil || !ok {
		return false, err
	}
	_, encErr := filter.Walk[ogc.BooleanExpression](q.encoder, n)
	return encErr == nil, nil
}

func (q *qualifier) WalkTrue(n filter.True) (bool, error)   { return q.inner.WalkTrue(n) }
func (q *qualifier) WalkFalse(n filter.False) (bool, error) { return false, nil }

func (q *qualifier) WalkLogic(n filter.Logic) (bool, error) {
	ok, err := q.inner.WalkLogic(n)
	return q.encodable(ok, err, n)
}

func (q *qualifier) WalkComparison(n filter.Comparison) (bool, error) {
	ok, err := q.inner.WalkComparison(n)
	return q.encodable(ok, err, n)
}

func (q *qualifier) WalkSpatial(n filter.Spatial) (bool, error) {
	ok, err := q.inner.WalkSpatial(n)
	return q.encodable(ok, err, n)
}

func (q *qualifier) WalkIsNull(n filter.IsNull) (bool, error) {
	ok, err := q.inner.WalkIsNull(n)
	return q.encodable(ok, err, n)
}

func (q *qualifier) WalkIn(n filter.In) (bool, error) {
	ok, err := q.inner.WalkIn(n)
	return q.encodable(ok, err, n)
}

func (q *qualifier) WalkLike(n filter.Like) (bool, error) {
	ok, err := q.inner.WalkLike(n)
	return q.encodable(ok, err, n)
}

func (q *qualifier) WalkIDIn(n filter.IDIn) (bool, error) {
	ok, err := q.inner.WalkIDIn(n)
	return q.encodable(ok, err, n)
}
