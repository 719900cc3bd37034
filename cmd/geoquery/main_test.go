package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-geoquery/pkg/cursor"
	"github.com/robert-malhotra/go-geoquery/pkg/feature"
)

const citiesYAML = `
name: cities
primary_key: [id]
capabilities:
  like: false
fields:
  - name: id
  - name: state
    column: state_code
  - name: pop
    type: integer
  - name: geom
    type: geometry
    column: the_geom
`

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(citiesYAML), 0o600))
	return path
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &bytes.Buffer{}
	err := app.Run(context.Background(), append([]string{"geoquery"}, args...))
	return out.String(), err
}

func TestParseBBox(t *testing.T) {
	b, err := parseBBox("-107, 25,-93,37")
	require.NoError(t, err)
	assert.Equal(t, orb.Bound{Min: orb.Point{-107, 25}, Max: orb.Point{-93, 37}}, b)

	for _, bad := range []string{"1,2,3", "a,b,c,d", "10,0,0,10"} {
		_, err := parseBBox(bad)
		assert.Error(t, err, bad)
	}
}

func TestWriteFeatures(t *testing.T) {
	c := cursor.FromSlice([]feature.Feature{
		feature.New("a", map[string]any{"state": "TX", "pop": 10, "geometry": orb.Point{1, 2}}),
		feature.New("b", map[string]any{"state": nil}),
	})

	var out bytes.Buffer
	n, err := writeFeatures(&out, c, []string{"state"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"type":"Feature","id":"a","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"state":"TX"}}`, lines[0])
	assert.JSONEq(t, `{"type":"Feature","id":"b","geometry":null,"properties":{"state":null}}`, lines[1])
}

func TestExplain_SQL(t *testing.T) {
	out, err := runApp(t, "explain",
		"--dataset", writeDataset(t),
		"--filter", "state = 'TX' AND name LIKE 'San%'",
		"--limit", "5",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "native:   state = 'TX'")
	assert.Contains(t, out, "residual: name LIKE 'San%'")
	assert.Contains(t, out, `FROM "cities" WHERE "state_code" = 'TX'`)
	assert.NotContains(t, out, "LIMIT", "paging stays on the client while a residual remains")
}

func TestExplain_STAC(t *testing.T) {
	out, err := runApp(t, "explain",
		"--dataset", writeDataset(t),
		"--backend", "stac",
		"--url", "https://stac.example.com/v1",
		"--bbox", "0,0,10,10",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "url:      https://stac.example.com/v1/collections/cities/items?")
	assert.Contains(t, out, "bbox=0%2C0%2C10%2C10")
}

func TestExplain_UnknownBackend(t *testing.T) {
	_, err := runApp(t, "explain", "--dataset", writeDataset(t), "--backend", "mongo")
	assert.ErrorContains(t, err, "unknown backend")
}

func TestSTACCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections/landsat/queryables":
			fmt.Fprint(w, `{"properties":{"platform":{"type":"string"},"geometry":{"$ref":"https://geojson.org/schema/Geometry.json"}}}`)
		case "/collections/landsat/items":
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			fmt.Fprint(w, `{"features":[`+
				`{"type":"Feature","stac_version":"1.0.0","id":"l1","geometry":{"type":"Point","coordinates":[3,4]},"properties":{"platform":"l8"},"links":[],"assets":{}},`+
				`{"type":"Feature","stac_version":"1.0.0","id":"l2","geometry":null,"properties":{"platform":"l9"},"links":[],"assets":{}}`+
				`],"links":[]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	out, err := runApp(t, "stac", "--url", srv.URL, "--token", "secret", "--limit", "1", "landsat")
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"Feature","id":"l1","geometry":{"type":"Point","coordinates":[3,4]},"properties":{"id":"l1","platform":"l8"}}`,
		strings.TrimSpace(out))
}

func TestSTACCommand_RequiresCollection(t *testing.T) {
	_, err := runApp(t, "stac", "--url", "https://stac.example.com")
	assert.ErrorContains(t, err, "collection id")
}
