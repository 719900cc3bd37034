package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/robert-malhotra/go-geoquery/pkg/feature"
)

func (True) Evaluate(feature.Feature) (bool, error)  { return true, nil }
func (False) Evaluate(feature.Feature) (bool, error) { return false, nil }

func (l Logic) Evaluate(f feature.Feature) (bool, error) {
	switch l.Op {
	case OpAnd:
		for _, p := range l.Parts {
			ok, err := p.Evaluate(f)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case OpOr:
		for _, p := range l.Parts {
			ok, err := p.Evaluate(f)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case OpNot:
		if len(l.Parts) != 1 {
			return false, evalErr(l, fmt.Errorf("NOT takes one part, got %d", len(l.Parts)))
		}
		ok, err := l.Parts[0].Evaluate(f)
		return !ok && err == nil, err
	default:
		return false, evalErr(l, fmt.Errorf("unknown logic operator %q", l.Op))
	}
}

func (c Comparison) Evaluate(f feature.Feature) (bool, error) {
	l, err := c.Left.Evaluate(f)
	if err != nil {
		return false, err
	}
	r, err := c.Right.Evaluate(f)
	if err != nil {
		return false, err
	}

	if l == nil || r == nil {
		switch c.Op {
		case EQ:
			return l == nil && r == nil, nil
		case NE:
			return (l == nil) != (r == nil), nil
		default:
			return false, nil
		}
	}

	if c.Op == EQ || c.Op == NE {
		eq, err := equal(l, r)
		if err != nil {
			return false, evalErr(c, err)
		}
		return eq == (c.Op == EQ), nil
	}

	cmp, err := order(l, r)
	if err != nil {
		return false, evalErr(c, err)
	}
	switch c.Op {
	case LT:
		return cmp < 0, nil
	case LE:
		return cmp <= 0, nil
	case GT:
		return cmp > 0, nil
	case GE:
		return cmp >= 0, nil
	default:
		return false, evalErr(c, fmt.Errorf("unknown comparison operator %q", c.Op))
	}
}

func (n IsNull) Evaluate(f feature.Feature) (bool, error) {
	v, err := n.Expr.Evaluate(f)
	if errors.Is(err, ErrMissingProperty) {
		v, err = nil, nil
	}
	if err != nil {
		return false, err
	}
	return (v == nil) != n.Negated, nil
}

func (in In) Evaluate(f feature.Feature) (bool, error) {
	v, err := in.Expr.Evaluate(f)
	if err != nil || v == nil {
		return false, err
	}
	for _, e := range in.Values {
		candidate, err := e.Evaluate(f)
		if err != nil {
			return false, err
		}
		if candidate == nil {
			continue
		}
		eq, err := equal(v, candidate)
		if err != nil {
			return false, evalErr(in, err)
		}
		if eq {
			return true, nil
		}
	}
	return false, nil
}

func (l Like) Evaluate(f feature.Feature) (bool, error) {
	v, err := l.Expr.Evaluate(f)
	if err != nil || v == nil {
		return false, err
	}
	s, ok := v.(string)
	if !ok {
		return false, evalErr(l, fmt.Errorf("%w: LIKE on %T", ErrOperandType, v))
	}
	re, err := likeRegexp(l.Pattern)
	if err != nil {
		return false, evalErr(l, err)
	}
	return re.MatchString(s) != l.Negated, nil
}

// likePatterns caches compiled LIKE patterns by their source text.
var likePatterns sync.Map

// likeRegexp compiles a LIKE pattern into an anchored regular expression.
func likeRegexp(pattern string) (*regexp.Regexp, error) {
	if re, ok := likePatterns.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := compileLike(pattern)
	if err != nil {
		return nil, err
	}
	actual, _ := likePatterns.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}

func compileLike(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString(`(?s)^`)
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			sb.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			sb.WriteString(`.*`)
		case r == '_':
			sb.WriteString(`.`)
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if escaped {
		sb.WriteString(`\\`)
	}
	sb.WriteString(`$`)
	return regexp.Compile(sb.String())
}

func (ids IDIn) Evaluate(f feature.Feature) (bool, error) {
	if f == nil {
		return false, evalErr(ids, ErrNoFeature)
	}
	fid := f.ID()
	for _, e := range ids.IDs {
		v, err := e.Evaluate(f)
		if err != nil {
			return false, err
		}
		if v != nil && formatValue(v) == fid {
			return true, nil
		}
	}
	return false, nil
}

func equal(a, b any) (bool, error) {
	if ga, ok := a.(orb.Geometry); ok {
		gb, ok := b.(orb.Geometry)
		if !ok {
			return false, fmt.Errorf("%w: %T = %T", ErrOperandType, a, b)
		}
		return orb.Equal(ga, gb), nil
	}
	cmp, err := order(a, b)
	if err != nil {
		return false, err
	}
	return cmp == 0, nil
}

// order compares two non-nil values of compatible kinds.
func order(a, b any) (int, error) {
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			return cmpOrdered(x, y), nil
		}
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			return cmpBool(x, y), nil
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), nil
		}
	}
	return 0, fmt.Errorf("%w: %T and %T", ErrOperandType, a, b)
}

func cmpOrdered(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func cmpBool(x, y bool) int {
	switch {
	case x == y:
		return 0
	case !x:
		return -1
	}
	return 1
}
