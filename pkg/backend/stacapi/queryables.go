package stacapi

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/robert-malhotra/go-geoquery/pkg/schema"
)

// Queryables is the JSON Schema a collection publishes for filtering
// (OGC API Features part 3).
type Queryables struct {
	Title      string                     `json:"title,omitempty"`
	Properties map[string]*QueryableField `json:"properties,omitempty"`
}

// QueryableField is one entry of Queryables.
type QueryableField struct {
	Title  string `json:"title,omitempty"`
	Type   string `json:"type,omitempty"`
	Format string `json:"format,omitempty"`
	Ref    string `json:"$ref,omitempty"`
	Enum   []any  `json:"enum,omitempty"`
}

// Queryables fetches the queryables of a collection.
func (c *Client) Queryables(ctx context.Context, collectionID string) (*Queryables, error) {
	if collectionID == "" {
		return nil, fmt.Errorf("collection ID cannot be empty")
	}
	u := &url.URL{Path: "collections/" + url.PathEscape(collectionID) + "/queryables"}
	var q Queryables
	if err := c.getJSON(ctx, c.baseURL.ResolveReference(u), &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Schema converts the queryables into a dataset schema keyed by item id.
// Array and object properties cannot be filtered on and are left out.
func (q *Queryables) Schema(name string) (*schema.Schema, error) {
	names := make([]string, 0, len(q.Properties))
	for n := range q.Properties {
		names = append(names, n)
	}
	slices.Sort(names)

	fields := []schema.Field{{Name: "id", Type: schema.String}}
	for _, n := range names {
		if n == "id" {
			continue
		}
		typ, ok := q.Properties[n].fieldType(n)
		if !ok {
			continue
		}
		f := schema.Field{Name: n, Type: typ}
		if typ == schema.Geometry {
			f.Index, f.Unit = schema.FullIndex, schema.Degrees
		}
		fields = append(fields, f)
	}
	return schema.New(name, fields, "id")
}

func (qf *QueryableField) fieldType(name string) (schema.Type, bool) {
	if qf == nil {
		return "", false
	}
	ref := strings.ToLower(qf.Ref)
	switch {
	case name == "geometry" || strings.Contains(ref, "geometry"):
		return schema.Geometry, true
	case strings.HasSuffix(name, "datetime") || strings.Contains(ref, "datetime"):
		return schema.Timestamp, true
	}
	switch qf.Type {
	case "string":
		if qf.Format == "date-time" || qf.Format == "date" {
			return schema.Timestamp, true
		}
		return schema.String, true
	case "number":
		return schema.Number, true
	case "integer":
		return schema.Integer, true
	case "boolean":
		return schema.Boolean, true
	case "":
		// Untyped entries usually point at a shared definition.
		if qf.Ref != "" {
			return schema.String, true
		}
	}
	return "", false
}
