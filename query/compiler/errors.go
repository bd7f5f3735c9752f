package compiler

import "errors"

// Error types for query compilation.
var (
	// ErrInvalidOperatorArity is returned when a between/nbetween value is
	// not a list of exactly two bounds.
	ErrInvalidOperatorArity = errors.New("between operator requires exactly two values")

	// ErrInvalidOperand is returned when a list operator receives a
	// non-list value.
	ErrInvalidOperand = errors.New("operator requires a list value")

	// ErrUnsupportedOperator is returned for operators the compiler does
	// not understand.
	ErrUnsupportedOperator = errors.New("unsupported filter operator")

	// ErrUnknownField is returned when an aggregate function or group-by
	// entry references a field the resource does not declare.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownAggregateAlias is returned when a HAVING leaf references an
	// alias the function list does not produce.
	ErrUnknownAggregateAlias = errors.New("unknown aggregate alias")

	// ErrDuplicateAggregateAlias is returned when two aggregate functions
	// share an alias.
	ErrDuplicateAggregateAlias = errors.New("duplicate aggregate alias")

	// ErrMissingAggregateAlias is returned when an aggregate function has
	// no alias.
	ErrMissingAggregateAlias = errors.New("aggregate function requires an alias")

	// ErrMissingAggregateField is returned when a non-count aggregate has
	// no field.
	ErrMissingAggregateField = errors.New("aggregate function requires a field")

	// ErrEmptyAggregate is returned when an aggregation declares no
	// functions.
	ErrEmptyAggregate = errors.New("aggregate query requires at least one function")
)
