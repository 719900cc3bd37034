package filter

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/robert-malhotra/go-geoquery/pkg/feature"
)

// Expression is a value-producing node. The set of implementations is closed.
type Expression interface {
	isExpr()
	String() string
	Evaluate(f feature.Feature) (any, error)
}

// Literal is a constant value. Supported values are nil, bool, Go numbers,
// string, time.Time and orb.Geometry.
type Literal struct {
	Value any
}

// Property reads a named attribute of the record.
type Property struct {
	Name string
}

// ArithOp is a binary arithmetic operator.
type ArithOp string

const (
	Add ArithOp = "+"
	Sub ArithOp = "-"
	Mul ArithOp = "*"
	Div ArithOp = "/"
)

// Arithmetic combines two numeric expressions.
type Arithmetic struct {
	Op          ArithOp
	Left, Right Expression
}

// Function calls a builtin by name. See Functions for the available names.
type Function struct {
	Name string
	Args []Expression
}

// Concat joins the string forms of its parts.
type Concat struct {
	Parts []Expression
}

func (Literal) isExpr()    {}
func (Property) isExpr()   {}
func (Arithmetic) isExpr() {}
func (Function) isExpr()   {}
func (Concat) isExpr()     {}

// Lit is shorthand for Literal{Value: v}.
func Lit(v any) Literal { return Literal{Value: v} }

// Prop is shorthand for Property{Name: name}.
func Prop(name string) Property { return Property{Name: name} }

func (l Literal) Evaluate(feature.Feature) (any, error) { return l.Value, nil }

func (p Property) Evaluate(f feature.Feature) (any, error) {
	if f == nil {
		return nil, evalErr(p, ErrNoFeature)
	}
	v, ok := f.Get(p.Name)
	if !ok {
		return nil, evalErr(p, ErrMissingProperty)
	}
	return v, nil
}

func (a Arithmetic) Evaluate(f feature.Feature) (any, error) {
	l, err := a.Left.Evaluate(f)
	if err != nil {
		return nil, err
	}
	r, err := a.Right.Evaluate(f)
	if err != nil {
		return nil, err
	}
	if l == nil || r == nil {
		return nil, nil
	}
	x, ok := toFloat(l)
	y, ok2 := toFloat(r)
	if !ok || !ok2 {
		return nil, evalErr(a, fmt.Errorf("%w: %T %s %T", ErrOperandType, l, a.Op, r))
	}
	switch a.Op {
	case Add:
		return x + y, nil
	case Sub:
		return x - y, nil
	case Mul:
		return x * y, nil
	case Div:
		if y == 0 {
			return nil, evalErr(a, ErrDivisionByZero)
		}
		return x / y, nil
	default:
		return nil, evalErr(a, fmt.Errorf("%w: operator %q", ErrOperandType, a.Op))
	}
}

// Functions is the builtin function table used by Function.Evaluate.
var Functions = map[string]func(args []any) (any, error){
	"upper": func(args []any) (any, error) {
		s, err := stringArg(args)
		if err != nil || s == nil {
			return nil, err
		}
		return strings.ToUpper(*s), nil
	},
	"lower": func(args []any) (any, error) {
		s, err := stringArg(args)
		if err != nil || s == nil {
			return nil, err
		}
		return strings.ToLower(*s), nil
	},
	"strlen": func(args []any) (any, error) {
		s, err := stringArg(args)
		if err != nil || s == nil {
			return nil, err
		}
		return float64(len([]rune(*s))), nil
	},
	"abs": func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: abs takes one argument", ErrOperandType)
		}
		if args[0] == nil {
			return nil, nil
		}
		n, ok := toFloat(args[0])
		if !ok {
			return nil, fmt.Errorf("%w: abs of %T", ErrOperandType, args[0])
		}
		return math.Abs(n), nil
	},
	"envelope": func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: envelope takes one argument", ErrOperandType)
		}
		if args[0] == nil {
			return nil, nil
		}
		g, ok := args[0].(orb.Geometry)
		if !ok {
			return nil, fmt.Errorf("%w: envelope of %T", ErrOperandType, args[0])
		}
		return g.Bound(), nil
	},
}

func stringArg(args []any) (*string, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: expected one argument, got %d", ErrOperandType, len(args))
	}
	if args[0] == nil {
		return nil, nil
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: expected string, got %T", ErrOperandType, args[0])
	}
	return &s, nil
}

func (fn Function) Evaluate(f feature.Feature) (any, error) {
	impl, ok := Functions[strings.ToLower(fn.Name)]
	if !ok {
		return nil, evalErr(fn, fmt.Errorf("%w: %s", ErrUnknownFunction, fn.Name))
	}
	args := make([]any, len(fn.Args))
	for i, a := range fn.Args {
		v, err := a.Evaluate(f)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	v, err := impl(args)
	if err != nil {
		return nil, evalErr(fn, err)
	}
	return v, nil
}

func (c Concat) Evaluate(f feature.Feature) (any, error) {
	var sb strings.Builder
	for _, p := range c.Parts {
		v, err := p.Evaluate(f)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		sb.WriteString(formatValue(v))
	}
	return sb.String(), nil
}

func (l Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case time.Time:
		return "TIMESTAMP('" + v.UTC().Format(time.RFC3339Nano) + "')"
	case orb.Bound:
		return fmt.Sprintf("BBOX(%v, %v, %v, %v)", v.Min.X(), v.Min.Y(), v.Max.X(), v.Max.Y())
	case orb.Geometry:
		return wkt.MarshalString(v)
	default:
		return formatValue(v)
	}
}

func (p Property) String() string { return p.Name }

func (a Arithmetic) String() string {
	return fmt.Sprintf("%s %s %s", a.Left, a.Op, a.Right)
}

func (fn Function) String() string {
	return fn.Name + "(" + joinExprs(fn.Args, ", ") + ")"
}

func (c Concat) String() string {
	return "CONCAT(" + joinExprs(c.Parts, ", ") + ")"
}

func joinExprs(exprs []Expression, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, sep)
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case float64:
		return fmt.Sprintf("%g", t)
	case float32:
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(v)
	}
}

// toFloat converts any Go numeric value to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
