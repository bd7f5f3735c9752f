package compiler

import (
	"fmt"

	"github.com/refractdb/refract/query/domain"
	"github.com/refractdb/refract/schema"
)

// CompileAggregate lowers an aggregation: WHERE via the predicate compiler,
// group-by fields and aggregate projections resolved against the schema, and
// a HAVING tree whose leaves resolve against the alias set the function list
// produces. Unlike filter leaves, a HAVING leaf naming an unknown alias is a
// hard error; so is an aggregate or group-by over an undeclared field, since
// silently dropping either would change what the caller is measuring.
func CompileAggregate(res *schema.Resource, q *domain.AggregateQuery) (*domain.CompiledAggregate, error) {
	if q == nil || len(q.Functions) == 0 {
		return nil, ErrEmptyAggregate
	}

	aliases := make(map[string]domain.AggregateExpr, len(q.Functions))
	columns := make([]domain.AggregateColumn, 0, len(q.Functions))
	for _, fn := range q.Functions {
		if fn.Alias == "" {
			return nil, fmt.Errorf("%s: %w", fn.Func, ErrMissingAggregateAlias)
		}
		if _, dup := aliases[fn.Alias]; dup {
			return nil, fmt.Errorf("alias %q: %w", fn.Alias, ErrDuplicateAggregateAlias)
		}

		expr := domain.AggregateExpr{Func: fn.Func}
		switch {
		case fn.Func == domain.Count && fn.Field == "":
			// COUNT(*)
		case fn.Field == "":
			return nil, fmt.Errorf("%s as %q: %w", fn.Func, fn.Alias, ErrMissingAggregateField)
		default:
			field, ok := res.Field(fn.Field)
			if !ok {
				return nil, fmt.Errorf("%s(%s): %w", fn.Func, fn.Field, ErrUnknownField)
			}
			expr.Field = field.Column
		}

		aliases[fn.Alias] = expr
		columns = append(columns, domain.AggregateColumn{Expr: expr, Alias: fn.Alias})
	}

	groupBy := make([]string, 0, len(q.GroupBy))
	for _, name := range q.GroupBy {
		field, ok := res.Field(name)
		if !ok {
			return nil, fmt.Errorf("group by %q: %w", name, ErrUnknownField)
		}
		groupBy = append(groupBy, field.Column)
	}

	where, err := CompileFilter(res, q.Filter)
	if err != nil {
		return nil, err
	}

	having, err := compileHavingList(aliases, q.Having)
	if err != nil {
		return nil, err
	}

	return &domain.CompiledAggregate{
		Table:   res.Table,
		Where:   where,
		GroupBy: groupBy,
		Columns: columns,
		Having:  having,
	}, nil
}

// compileHavingList AND-combines top-level having nodes. An empty list means
// all groups pass.
func compileHavingList(aliases map[string]domain.AggregateExpr, nodes []domain.FilterNode) (domain.Condition, error) {
	var children []domain.Condition
	for _, node := range nodes {
		cond, err := compileHaving(aliases, node)
		if err != nil {
			return nil, err
		}
		if cond != nil {
			children = append(children, cond)
		}
	}
	switch len(children) {
	case 0:
		return nil, nil
	case 1:
		return children[0], nil
	default:
		return &domain.Group{Op: domain.And, Children: children}, nil
	}
}

// compileHaving mirrors CompileFilter but resolves leaves against the alias
// set instead of the schema.
func compileHaving(aliases map[string]domain.AggregateExpr, node domain.FilterNode) (domain.Condition, error) {
	if node == nil {
		return nil, nil
	}

	switch n := node.(type) {
	case *domain.Leaf:
		expr, ok := aliases[n.Field]
		if !ok {
			return nil, fmt.Errorf("having %q: %w", n.Field, ErrUnknownAggregateAlias)
		}
		op, value, err := lowerOperator(n.Operator, n.Value)
		if err != nil {
			return nil, fmt.Errorf("having %q: %w", n.Field, err)
		}
		return &domain.Compare{Aggregate: &expr, Op: op, Value: value}, nil
	case *domain.Composite:
		children := make([]domain.Condition, 0, len(n.Children))
		for _, child := range n.Children {
			cond, err := compileHaving(aliases, child)
			if err != nil {
				return nil, err
			}
			if cond != nil {
				children = append(children, cond)
			}
		}
		return &domain.Group{Op: normalizeLogical(n.Operator), Children: children}, nil
	default:
		return nil, fmt.Errorf("unsupported having node %T", node)
	}
}
