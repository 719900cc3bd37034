// Package sqldb executes native requests against a table in a spatially
// enabled SQL database. Filters are translated with sqlenc and geometries
// travel as WKB.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/robert-malhotra/go-geoquery/pkg/cursor"
	"github.com/robert-malhotra/go-geoquery/pkg/feature"
	"github.com/robert-malhotra/go-geoquery/pkg/filter"
	"github.com/robert-malhotra/go-geoquery/pkg/logging"
	"github.com/robert-malhotra/go-geoquery/pkg/query"
	"github.com/robert-malhotra/go-geoquery/pkg/schema"
	"github.com/robert-malhotra/go-geoquery/pkg/sqlenc"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Table is a query.Driver over one database table.
type Table struct {
	db          Querier
	name        string
	schema      *schema.Schema
	caps        schema.Capabilities
	placeholder sq.PlaceholderFormat
	srid        int

	qualifier *schema.Qualifier
	encoder   *sqlenc.Encoder
}

var _ query.SchemaDriver = (*Table)(nil)

// Option configures a Table.
type Option func(*Table)

// WithCapabilities restricts the filters pushed to the database. Every
// non-spatial feature is supported by default.
func WithCapabilities(caps schema.Capabilities) Option {
	return func(t *Table) { t.caps = caps }
}

// WithPlaceholder sets the bind parameter style, squirrel.Dollar by default.
func WithPlaceholder(f sq.PlaceholderFormat) Option {
	return func(t *Table) { t.placeholder = f }
}

func WithSRID(srid int) Option {
	return func(t *Table) { t.srid = srid }
}

func New(db Querier, table string, s *schema.Schema, opts ...Option) *Table {
	t := &Table{
		db:          db,
		name:        table,
		schema:      s,
		caps:        schema.FullCapabilities(),
		placeholder: sq.Dollar,
		srid:        sqlenc.DefaultSRID,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.qualifier = schema.ForSchema(s, t.caps)
	t.encoder = sqlenc.New(
		sqlenc.WithSchema(s),
		sqlenc.WithPrimaryKey(s.PrimaryKey...),
		sqlenc.WithSRID(t.srid),
	)
	return t
}

func (t *Table) Qualifier() filter.Walker[bool] { return t.qualifier }

func (t *Table) Schema() schema.Provider { return t.schema }

// statement is a rendered SELECT with the layout of its result columns.
type statement struct {
	sql     string
	args    []any
	honored query.Honored

	attrs   []schema.Field
	idIndex int
	// idOnly is true when the identifier column was added for ID() only.
	idOnly bool
	geom   *schema.Field
	// geomAttr is true when the geometry is also a visible attribute.
	geomAttr bool
}

// Statement renders the SELECT that Execute would run for req.
func (t *Table) Statement(req query.NativeRequest) (string, []any, query.Honored, error) {
	st, err := t.statement(req)
	if err != nil {
		return "", nil, query.Honored{}, err
	}
	return st.sql, st.args, st.honored, nil
}

func (t *Table) statement(req query.NativeRequest) (*statement, error) {
	st := &statement{idIndex: -1, honored: query.Honored{Filter: true, Fields: true}}

	if req.Fields == nil {
		for _, f := range t.schema.Fields {
			if f.Type != schema.Geometry {
				st.attrs = append(st.attrs, f)
			}
		}
	} else {
		for _, name := range req.Fields {
			if f, ok := t.schema.Field(name); ok && f.Type != schema.Geometry {
				st.attrs = append(st.attrs, f)
			}
		}
	}
	if len(t.schema.PrimaryKey) == 1 {
		pk := t.schema.PrimaryKey[0]
		st.idIndex = slices.IndexFunc(st.attrs, func(f schema.Field) bool { return f.Name == pk })
		if st.idIndex < 0 {
			f, ok := t.schema.Field(pk)
			if !ok {
				f = schema.Field{Name: pk}
			}
			st.idIndex, st.idOnly = len(st.attrs), true
			st.attrs = append(st.attrs, f)
		}
	}

	columns := make([]string, 0, len(st.attrs)+1)
	for _, f := range st.attrs {
		columns = append(columns, selectColumn(f))
	}
	if g, ok := t.schema.Geometry(); ok {
		st.geom = &g
		st.geomAttr = req.Fields == nil || slices.Contains(req.Fields, g.Name)
		columns = append(columns, fmt.Sprintf("ST_AsBinary(%s) AS %s", sqlenc.QuoteIdent(g.ColumnName()), sqlenc.QuoteIdent(g.Name)))
	}

	b := sq.Select(columns...).From(sqlenc.QuoteIdent(t.name)).PlaceholderFormat(t.placeholder)

	if req.Bounds != nil && st.geom != nil {
		bb := *req.Bounds
		b = b.Where(sq.Expr(
			fmt.Sprintf("ST_Intersects(%s, ST_MakeEnvelope(?, ?, ?, ?, ?))", sqlenc.QuoteIdent(st.geom.ColumnName())),
			bb.Min[0], bb.Min[1], bb.Max[0], bb.Max[1], t.srid,
		))
		st.honored.Bounds = true
	}
	if req.Filter != nil && !filter.IsTrue(req.Filter) {
		where, err := t.encoder.Sqlizer(req.Filter)
		if err != nil {
			return nil, err
		}
		b = b.Where(where)
	}
	// Paging is only safe once every row the database returns is a result.
	if req.Bounds == nil || st.honored.Bounds {
		if req.Limit != nil {
			b = b.Limit(*req.Limit)
			st.honored.Limit = true
		}
		if req.Offset != nil {
			b = b.Offset(*req.Offset)
			st.honored.Offset = true
		}
	}

	var err error
	st.sql, st.args, err = b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("render select: %w", err)
	}
	return st, nil
}

func selectColumn(f schema.Field) string {
	col := sqlenc.QuoteIdent(f.ColumnName())
	if f.ColumnName() == f.Name {
		return col
	}
	return col + " AS " + sqlenc.QuoteIdent(f.Name)
}

// Execute runs req. Encoding failures and database errors are returned as
// they are.
func (t *Table) Execute(ctx context.Context, req query.NativeRequest) (cursor.Cursor[feature.Feature], query.Honored, error) {
	st, err := t.statement(req)
	if err != nil {
		return nil, query.Honored{}, err
	}
	logging.Debug().Str("table", t.name).Str("sql", st.sql).Int("args", len(st.args)).Msg("executing select")

	rows, err := t.db.QueryContext(ctx, st.sql, st.args...)
	if err != nil {
		return nil, query.Honored{}, err
	}

	n := 0
	next := func() (feature.Feature, bool, error) {
		if !rows.Next() {
			return nil, false, rows.Err()
		}
		n++
		f, err := st.scan(rows, n)
		if err != nil {
			return nil, false, err
		}
		return f, true, nil
	}
	return cursor.FromFunc(next, rows.Close), st.honored, nil
}

func (st *statement) scan(rows *sql.Rows, ordinal int) (feature.Feature, error) {
	values := make([]any, len(st.attrs))
	dest := make([]any, 0, len(st.attrs)+1)
	for i := range values {
		dest = append(dest, &values[i])
	}
	var geom *wkb.GeometryScanner
	if st.geom != nil {
		geom = wkb.Scanner(nil)
		dest = append(dest, geom)
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan row %d: %w", ordinal, err)
	}

	props := make(map[string]any, len(values)+1)
	for i, f := range st.attrs {
		if st.idOnly && i == st.idIndex {
			continue
		}
		props[f.Name] = normalize(values[i])
	}
	out := &record{MapFeature: feature.New(strconv.Itoa(ordinal), props)}
	if st.idIndex >= 0 && values[st.idIndex] != nil {
		out.FID = fmt.Sprint(normalize(values[st.idIndex]))
	}
	if geom != nil && geom.Valid {
		out.geom = geom.Geometry
		if st.geomAttr {
			props[st.geom.Name] = geom.Geometry
		}
	}
	return out, nil
}

// record is a scanned row. Its geometry stays readable through Geometry
// when the geometry field was not selected as an attribute.
type record struct {
	*feature.MapFeature
	geom orb.Geometry
}

func (r *record) Geometry() orb.Geometry { return r.geom }

// normalize turns driver text values into strings.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
