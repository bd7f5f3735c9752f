package domain

// Condition is the backend-neutral compiled form of a filter tree. Dialect
// generators render it to parameterized SQL.
type Condition interface {
	condition()
}

// Compare is a single compiled comparison. Column holds the resolved column
// name; for HAVING comparisons Aggregate is set instead and names the
// aggregate expression the comparison applies to.
type Compare struct {
	Column    string
	Aggregate *AggregateExpr
	Op        CompareOp
	Value     interface{}
}

func (*Compare) condition() {}

// Group combines child conditions with a logical operator. An empty Group
// renders as always-true.
type Group struct {
	Op       LogicalOperator
	Children []Condition
}

func (*Group) condition() {}

// AggregateExpr is a resolved aggregate expression. An empty Field means
// COUNT(*).
type AggregateExpr struct {
	Func  AggregateFunc
	Field string
}

// CompareOp is the normalized comparison operator set understood by the
// dialect generators.
type CompareOp string

const (
	// CmpEq renders as "=".
	CmpEq CompareOp = "="
	// CmpNe renders as "!=".
	CmpNe CompareOp = "!="
	// CmpGt renders as ">".
	CmpGt CompareOp = ">"
	// CmpGte renders as ">=".
	CmpGte CompareOp = ">="
	// CmpLt renders as "<".
	CmpLt CompareOp = "<"
	// CmpLte renders as "<=".
	CmpLte CompareOp = "<="
	// CmpLike renders as a case-sensitive pattern match.
	CmpLike CompareOp = "LIKE"
	// CmpNotLike renders as a negated case-sensitive pattern match.
	CmpNotLike CompareOp = "NOT LIKE"
	// CmpLikeFold renders as a case-insensitive pattern match.
	CmpLikeFold CompareOp = "ILIKE"
	// CmpNotLikeFold renders as a negated case-insensitive pattern match.
	CmpNotLikeFold CompareOp = "NOT ILIKE"
	// CmpIn renders as set membership.
	CmpIn CompareOp = "IN"
	// CmpNotIn renders as negated set membership.
	CmpNotIn CompareOp = "NOT IN"
	// CmpIsNull renders as an absence test.
	CmpIsNull CompareOp = "IS NULL"
	// CmpIsNotNull renders as a presence test.
	CmpIsNotNull CompareOp = "IS NOT NULL"
	// CmpBetween renders as an inclusive range test over two bounds.
	CmpBetween CompareOp = "BETWEEN"
	// CmpNotBetween renders as a negated inclusive range test.
	CmpNotBetween CompareOp = "NOT BETWEEN"
)

// OrderBy is one compiled ordering key.
type OrderBy struct {
	Column    string
	Direction SortDirection
}

// AggregateColumn is one compiled aggregate projection.
type AggregateColumn struct {
	Expr  AggregateExpr
	Alias string
}

// CompiledRead is a fully lowered read operation, ready for a dialect
// generator.
type CompiledRead struct {
	Table   string
	Columns []string
	Where   Condition
	OrderBy []OrderBy
	Limits  Limits
}

// CompiledAggregate is a fully lowered aggregation, ready for a dialect
// generator.
type CompiledAggregate struct {
	Table   string
	Where   Condition
	GroupBy []string
	Columns []AggregateColumn
	Having  Condition
}
