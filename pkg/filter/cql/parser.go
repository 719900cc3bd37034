// Package cql parses a CQL text dialect into filter trees:
//
//	state = 'TX' AND pop > 1000
//	INTERSECTS(geom, BBOX(-107, 25, -93, 37)) OR name LIKE 'San %'
//	DWITHIN(geom, POINT(-97.7 30.2), 10, kilometers)
//	NOT (deleted IS NOT NULL) AND IN ('a1', 'a2')
//
// The bare IN list selects records by identifier.
package cql

import (
	"fmt"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/robert-malhotra/go-geoquery/pkg/filter"
)

// Parser turns CQL text into filter.Filter values. A Parser is immutable
// once built and safe for concurrent use.
type Parser struct {
	parser *participle.Parser[cqlFilter]
}

var cqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "whitespace", Pattern: `\s+`},
	{Name: "String", Pattern: `'(?:''|[^'])*'|"(?:\\.|[^"])*"`},
	{Name: "WKT", Pattern: `(?i)\b(?:MULTIPOLYGON|MULTILINESTRING|MULTIPOINT|POLYGON|LINESTRING|POINT)\s*\((?:[^()]|\((?:[^()]|\([^()]*\))*\))*\)`},
	{Name: "Number", Pattern: `[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`},
	{Name: "CompOp", Pattern: `<>|!=|>=|<=|[=<>]`},
	{Name: "ArithOp", Pattern: `[-+*/]`},
	{Name: "SpatialOp", Pattern: `(?i)\b(?:INTERSECTS|DISJOINT|WITHIN|CONTAINS|TOUCHES|CROSSES|OVERLAPS|EQUALS|DWITHIN|BEYOND)\b`},
	{Name: "Keyword", Pattern: `(?i)\b(?:AND|OR|NOT|LIKE|IN|IS|NULL|TRUE|FALSE|INCLUDE|EXCLUDE|BBOX|TIMESTAMP)\b`},
	{Name: "Punct", Pattern: `[,()]`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_:.]*`},
})

// NewParser builds a Parser.
func NewParser() (*Parser, error) {
	p, err := participle.Build[cqlFilter](
		participle.Lexer(cqlLexer),
		participle.CaseInsensitive("SpatialOp", "Keyword"),
		participle.UseLookahead(4),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}
	return &Parser{parser: p}, nil
}

// MustParser is NewParser that panics on error.
func MustParser() *Parser {
	p, err := NewParser()
	if err != nil {
		panic(err)
	}
	return p
}

// Parse parses a CQL filter. Empty input is the True filter.
func (p *Parser) Parse(input string) (filter.Filter, error) {
	if strings.TrimSpace(input) == "" {
		return filter.True{}, nil
	}
	ast, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return convertOr(ast.Or)
}

// Grammar. Precedence from loosest: OR, AND, NOT, predicate.

type cqlFilter struct {
	Or *orExpr `@@`
}

type orExpr struct {
	And []*andExpr `@@ ( "OR" @@ )*`
}

type andExpr struct {
	Not []*notExpr `@@ ( "AND" @@ )*`
}

type notExpr struct {
	Not  *notExpr `  "NOT" @@`
	Term *term    `| @@`
}

type term struct {
	Sub     *orExpr      `  "(" @@ ")"`
	Include bool         `| @"INCLUDE"`
	Exclude bool         `| @"EXCLUDE"`
	Spatial *spatialPred `| @@`
	IDs     []*value     `| "IN" "(" @@ ( "," @@ )* ")"`
	Pred    *predicate   `| @@`
}

type spatialPred struct {
	Op       string    `@SpatialOp "("`
	Left     *operand  `@@ ","`
	Right    *operand  `@@`
	Distance *distance `( "," @@ )? ")"`
}

type distance struct {
	Value float64 `@Number`
	Unit  string  `( "," @Ident )?`
}

type predicate struct {
	Left *arith         `@@`
	Tail *predicateTail `@@`
}

type predicateTail struct {
	Compare *compareTail `  @@`
	Like    *likeTail    `| @@`
	In      *inTail      `| @@`
	Null    *nullTail    `| @@`
}

type compareTail struct {
	Op    string `@CompOp`
	Right *arith `@@`
}

type likeTail struct {
	Not     bool   `@"NOT"? "LIKE"`
	Pattern string `@String`
}

type inTail struct {
	Not    bool     `@"NOT"? "IN"`
	Values []*value `"(" @@ ( "," @@ )* ")"`
}

type nullTail struct {
	Not bool `"IS" @"NOT"? "NULL"`
}

type arith struct {
	Left *operand   `@@`
	Ops  []*arithOp `@@*`
}

type arithOp struct {
	Op    string   `@ArithOp`
	Right *operand `@@`
}

type operand struct {
	WKT   string    `  @WKT`
	BBox  []float64 `| "BBOX" "(" @Number "," @Number "," @Number "," @Number ")"`
	Func  *funcCall `| @@`
	Value *value    `| @@`
	Prop  string    `| @Ident`
}

type funcCall struct {
	Name string   `@Ident "("`
	Args []*arith `( @@ ( "," @@ )* )? ")"`
}

type value struct {
	String    *string  `  @String`
	Number    *float64 `| @Number`
	True      bool     `| @"TRUE"`
	False     bool     `| @"FALSE"`
	Null      bool     `| @"NULL"`
	Timestamp *string  `| "TIMESTAMP" "(" @String ")"`
}

// Conversion

func convertOr(expr *orExpr) (filter.Filter, error) {
	parts := make([]filter.Filter, 0, len(expr.And))
	for _, a := range expr.And {
		f, err := convertAnd(a)
		if err != nil {
			return nil, err
		}
		parts = append(parts, f)
	}
	return filter.Or(parts...), nil
}

func convertAnd(expr *andExpr) (filter.Filter, error) {
	parts := make([]filter.Filter, 0, len(expr.Not))
	for _, n := range expr.Not {
		f, err := convertNot(n)
		if err != nil {
			return nil, err
		}
		parts = append(parts, f)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return filter.Logic{Op: filter.OpAnd, Parts: parts}, nil
}

func convertNot(expr *notExpr) (filter.Filter, error) {
	if expr.Not != nil {
		inner, err := convertNot(expr.Not)
		if err != nil {
			return nil, err
		}
		return filter.Not(inner), nil
	}
	return convertTerm(expr.Term)
}

func convertTerm(t *term) (filter.Filter, error) {
	switch {
	case t.Sub != nil:
		return convertOr(t.Sub)
	case t.Include:
		return filter.True{}, nil
	case t.Exclude:
		return filter.False{}, nil
	case t.Spatial != nil:
		return convertSpatial(t.Spatial)
	case len(t.IDs) > 0:
		ids := make([]filter.Expression, len(t.IDs))
		for i, v := range t.IDs {
			lit, err := convertValue(v)
			if err != nil {
				return nil, err
			}
			ids[i] = lit
		}
		return filter.IDIn{IDs: ids}, nil
	case t.Pred != nil:
		return convertPredicate(t.Pred)
	default:
		return nil, fmt.Errorf("empty expression")
	}
}

func convertSpatial(s *spatialPred) (filter.Filter, error) {
	op := filter.SpatialOp(strings.ToUpper(s.Op))
	left, err := convertOperand(s.Left)
	if err != nil {
		return nil, err
	}
	right, err := convertOperand(s.Right)
	if err != nil {
		return nil, err
	}
	if op.IsDistance() {
		if s.Distance == nil {
			return nil, fmt.Errorf("%s requires a distance", op)
		}
		unit := strings.ToLower(s.Distance.Unit)
		if op == filter.DWithinOp {
			return filter.DWithin(left, right, s.Distance.Value, unit), nil
		}
		return filter.Beyond(left, right, s.Distance.Value, unit), nil
	}
	if s.Distance != nil {
		return nil, fmt.Errorf("%s does not take a distance", op)
	}
	return filter.Relate(op, left, right), nil
}

func convertPredicate(p *predicate) (filter.Filter, error) {
	left, err := convertArith(p.Left)
	if err != nil {
		return nil, err
	}
	tail := p.Tail
	switch {
	case tail.Compare != nil:
		right, err := convertArith(tail.Compare.Right)
		if err != nil {
			return nil, err
		}
		op := filter.CompareOp(tail.Compare.Op)
		if op == "!=" {
			op = filter.NE
		}
		return filter.Comparison{Op: op, Left: left, Right: right}, nil
	case tail.Like != nil:
		return filter.Like{Expr: left, Pattern: unquote(tail.Like.Pattern), Negated: tail.Like.Not}, nil
	case tail.In != nil:
		values := make([]filter.Expression, len(tail.In.Values))
		for i, v := range tail.In.Values {
			lit, err := convertValue(v)
			if err != nil {
				return nil, err
			}
			values[i] = lit
		}
		in := filter.In{Expr: left, Values: values}
		if tail.In.Not {
			return filter.Not(in), nil
		}
		return in, nil
	case tail.Null != nil:
		return filter.IsNull{Expr: left, Negated: tail.Null.Not}, nil
	default:
		return nil, fmt.Errorf("incomplete predicate on %s", left)
	}
}

func convertArith(a *arith) (filter.Expression, error) {
	left, err := convertOperand(a.Left)
	if err != nil {
		return nil, err
	}
	// Left associative, no operator precedence.
	for _, op := range a.Ops {
		right, err := convertOperand(op.Right)
		if err != nil {
			return nil, err
		}
		left = filter.Arithmetic{Op: filter.ArithOp(op.Op), Left: left, Right: right}
	}
	return left, nil
}

func convertOperand(o *operand) (filter.Expression, error) {
	switch {
	case o.WKT != "":
		g, err := wkt.Unmarshal(o.WKT)
		if err != nil {
			return nil, fmt.Errorf("invalid geometry %q: %w", o.WKT, err)
		}
		return filter.Lit(g), nil
	case len(o.BBox) == 4:
		return filter.Lit(orb.Bound{
			Min: orb.Point{o.BBox[0], o.BBox[1]},
			Max: orb.Point{o.BBox[2], o.BBox[3]},
		}), nil
	case o.Func != nil:
		args := make([]filter.Expression, len(o.Func.Args))
		for i, a := range o.Func.Args {
			e, err := convertArith(a)
			if err != nil {
				return nil, err
			}
			args[i] = e
		}
		return filter.Function{Name: strings.ToLower(o.Func.Name), Args: args}, nil
	case o.Value != nil:
		return convertValue(o.Value)
	case o.Prop != "":
		return filter.Prop(o.Prop), nil
	default:
		return nil, fmt.Errorf("empty operand")
	}
}

func convertValue(v *value) (filter.Literal, error) {
	switch {
	case v.String != nil:
		return filter.Lit(unquote(*v.String)), nil
	case v.Number != nil:
		return filter.Lit(*v.Number), nil
	case v.True:
		return filter.Lit(true), nil
	case v.False:
		return filter.Lit(false), nil
	case v.Null:
		return filter.Lit(nil), nil
	case v.Timestamp != nil:
		ts, err := time.Parse(time.RFC3339, unquote(*v.Timestamp))
		if err != nil {
			return filter.Literal{}, fmt.Errorf("invalid timestamp: %w", err)
		}
		return filter.Lit(ts), nil
	default:
		return filter.Literal{}, fmt.Errorf("invalid value")
	}
}

// unquote strips CQL quoting: single quotes double up, double quotes use
// backslash escapes.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	body := s[1 : len(s)-1]
	if s[0] == '\'' {
		return strings.ReplaceAll(body, "''", "'")
	}
	var sb strings.Builder
	escaped := false
	for _, r := range body {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		sb.WriteRune(r)
	}
	return sb.String()
}
