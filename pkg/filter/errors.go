package filter

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFeature is returned when a property is evaluated without a record.
	ErrNoFeature = errors.New("filter: no feature to evaluate against")
	// ErrMissingProperty indicates the record does not carry the property.
	ErrMissingProperty = errors.New("filter: property not found")
	// ErrOperandType indicates operands that cannot be combined or compared.
	ErrOperandType = errors.New("filter: incompatible operand types")
	// ErrDivisionByZero is returned by arithmetic division with a zero divisor.
	ErrDivisionByZero = errors.New("filter: division by zero")
	// ErrUnknownFunction is returned for function names with no builtin.
	ErrUnknownFunction = errors.New("filter: unknown function")
	// ErrUnsupportedRelation is returned for spatial relations that cannot be
	// computed for the given geometry types.
	ErrUnsupportedRelation = errors.New("filter: spatial relation not supported for geometry types")
	// ErrUnresolvedUnit is returned when a distance still carries a unit that
	// was never converted to the geometry's native unit.
	ErrUnresolvedUnit = errors.New("filter: distance unit not resolved")
)

// EvaluationError reports a failure to evaluate a node against a record.
type EvaluationError struct {
	Node string
	Err  error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("filter: evaluate %s: %v", e.Node, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

func evalErr(node fmt.Stringer, err error) error {
	var ee *EvaluationError
	if errors.As(err, &ee) {
		return err
	}
	return &EvaluationError{Node: node.String(), Err: err}
}

// UnsupportedNodeError is returned by walkers that meet a node they do not handle.
type UnsupportedNodeError struct {
	Node string
}

func (e *UnsupportedNodeError) Error() string {
	return fmt.Sprintf("filter: unsupported node %s", e.Node)
}

// EncodingError is returned by backend encoders asked to translate a node that
// is not in a translatable form.
type EncodingError struct {
	Node   string
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	msg := fmt.Sprintf("filter: cannot encode %s", e.Node)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EncodingError) Unwrap() error { return e.Err }
