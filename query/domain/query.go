// Package domain contains the core entities and interfaces for query compilation.
package domain

// FilterNode represents one node of a filter tree: either a single field
// comparison (Leaf) or a logical grouping of child filters (Composite).
type FilterNode interface {
	filterNode()
}

// Leaf is a single field comparison.
type Leaf struct {
	Field    string
	Operator FilterOperator
	Value    interface{}
}

func (*Leaf) filterNode() {}

// Composite groups child filters under a logical operator. Composites nest
// arbitrarily deep; an empty Composite is the neutral element and never
// excludes rows.
type Composite struct {
	Operator LogicalOperator
	Children []FilterNode
}

func (*Composite) filterNode() {}

// FilterOperator represents a filter comparison operator.
type FilterOperator string

const (
	// OpEq checks equality.
	OpEq FilterOperator = "eq"
	// OpNe checks inequality.
	OpNe FilterOperator = "ne"
	// OpGt checks if value is greater than.
	OpGt FilterOperator = "gt"
	// OpGte checks if value is greater than or equal.
	OpGte FilterOperator = "gte"
	// OpLt checks if value is less than.
	OpLt FilterOperator = "lt"
	// OpLte checks if value is less than or equal.
	OpLte FilterOperator = "lte"

	// OpContains checks if the field contains the value as a substring.
	OpContains FilterOperator = "contains"
	// OpNotContains checks if the field does not contain the value.
	OpNotContains FilterOperator = "ncontains"
	// OpContainsFold is the case-insensitive variant of OpContains.
	OpContainsFold FilterOperator = "containss"
	// OpNotContainsFold is the case-insensitive variant of OpNotContains.
	OpNotContainsFold FilterOperator = "ncontainss"
	// OpStartsWith checks if the field starts with the value.
	OpStartsWith FilterOperator = "startswith"
	// OpStartsWithFold is the case-insensitive variant of OpStartsWith.
	OpStartsWithFold FilterOperator = "startswiths"
	// OpEndsWith checks if the field ends with the value.
	OpEndsWith FilterOperator = "endswith"
	// OpEndsWithFold is the case-insensitive variant of OpEndsWith.
	OpEndsWithFold FilterOperator = "endswiths"

	// OpIn checks set membership; the value must be a list.
	OpIn FilterOperator = "in"
	// OpNotIn checks negated set membership; the value must be a list.
	OpNotIn FilterOperator = "nin"

	// OpNull checks for absence; the value is ignored.
	OpNull FilterOperator = "null"
	// OpNotNull checks for presence; the value is ignored.
	OpNotNull FilterOperator = "nnull"

	// OpBetween checks an inclusive range; the value must be a list of
	// exactly two bounds.
	OpBetween FilterOperator = "between"
	// OpNotBetween is the negated range check with the same arity rule.
	OpNotBetween FilterOperator = "nbetween"
)

// LogicalOperator represents logical operators for combining filters.
type LogicalOperator string

const (
	// And combines children with AND.
	And LogicalOperator = "and"
	// Or combines children with OR.
	Or LogicalOperator = "or"
)

// Sorter is one entry of an ordered sort specification.
type Sorter struct {
	Field string
	Order SortDirection
}

// SortDirection represents sort direction.
type SortDirection string

const (
	// Asc sorts ascending.
	Asc SortDirection = "asc"
	// Desc sorts descending.
	Desc SortDirection = "desc"
)

// PaginationMode selects between server-side pagination and unbounded reads.
type PaginationMode string

const (
	// PaginationServer limits reads to one page.
	PaginationServer PaginationMode = "server"
	// PaginationOff disables limiting entirely.
	PaginationOff PaginationMode = "off"
)

// PaginationSpec describes a 1-indexed page request.
type PaginationSpec struct {
	Mode     PaginationMode
	Current  int
	PageSize int
}

// Limits is the compiled form of a pagination spec. Nil fields mean no
// limiting.
type Limits struct {
	Limit  *int
	Offset *int
}

// ReadQuery is the abstract description of a read operation.
type ReadQuery struct {
	Fields     []string
	Filter     FilterNode
	Sort       []Sorter
	Pagination *PaginationSpec
}

// AggregateFunc represents aggregation functions.
type AggregateFunc string

const (
	// Count counts rows.
	Count AggregateFunc = "count"
	// Sum sums field values.
	Sum AggregateFunc = "sum"
	// Avg calculates the average.
	Avg AggregateFunc = "avg"
	// Min finds the minimum value.
	Min AggregateFunc = "min"
	// Max finds the maximum value.
	Max AggregateFunc = "max"
)

// AggregateFunction binds an aggregate computation to an alias. The alias is
// the only name resolvable inside a HAVING tree.
type AggregateFunction struct {
	Func  AggregateFunc
	Field string // required except for Count
	Alias string
}

// AggregateQuery is the abstract description of an aggregation. Having nodes
// at the top level are implicitly AND-ed; explicit composites override.
type AggregateQuery struct {
	Filter    FilterNode
	GroupBy   []string
	Functions []AggregateFunction
	Having    []FilterNode
}

// LockStrategy selects the optimistic locking strategy.
type LockStrategy string

const (
	// LockVersion guards writes with a monotonically increasing integer.
	LockVersion LockStrategy = "version"
	// LockTimestamp guards writes with a last-modified instant.
	LockTimestamp LockStrategy = "timestamp"
)

// LockPolicy describes how a resource is optimistically locked.
type LockPolicy struct {
	Strategy LockStrategy
	Field    string
}
