package main

import (
	"encoding/json"
	"io"

	"github.com/paulmach/orb/geojson"

	"github.com/robert-malhotra/go-geoquery/pkg/cursor"
	"github.com/robert-malhotra/go-geoquery/pkg/feature"
)

type featureJSON struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties map[string]any    `json:"properties"`
}

// writeFeatures prints every record of c as one GeoJSON feature per line.
// Only the named attributes are written. It closes c.
func writeFeatures(w io.Writer, c cursor.Cursor[feature.Feature], names []string) (n int, err error) {
	defer func() {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}()

	enc := json.NewEncoder(w)
	for {
		ok, err := c.HasNext()
		if err != nil || !ok {
			return n, err
		}
		f, err := c.Next()
		if err != nil {
			return n, err
		}
		out := featureJSON{Type: "Feature", ID: f.ID(), Properties: map[string]any{}}
		if g := f.Geometry(); g != nil {
			out.Geometry = geojson.NewGeometry(g)
		}
		for _, name := range names {
			if v, ok := f.Get(name); ok {
				out.Properties[name] = v
			}
		}
		if err := enc.Encode(out); err != nil {
			return n, err
		}
		n++
	}
}
