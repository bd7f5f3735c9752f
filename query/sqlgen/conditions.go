package sqlgen

import (
	"fmt"
	"strings"

	"github.com/refractdb/refract/query/domain"
)

// renderCondition renders a condition tree. An empty group renders as the
// neutral "1=1" so an empty composite never excludes rows.
func (g *Generator) renderCondition(cond domain.Condition, argIndex *int) (string, []interface{}) {
	switch c := cond.(type) {
	case *domain.Group:
		return g.renderGroup(c, argIndex)
	case *domain.Compare:
		return g.renderCompare(c, argIndex)
	default:
		return "1=1", nil
	}
}

func (g *Generator) renderGroup(group *domain.Group, argIndex *int) (string, []interface{}) {
	if len(group.Children) == 0 {
		return "1=1", nil
	}

	op := " AND "
	if group.Op == domain.Or {
		op = " OR "
	}

	clauses := make([]string, 0, len(group.Children))
	var args []interface{}
	for _, child := range group.Children {
		clause, childArgs := g.renderCondition(child, argIndex)
		clauses = append(clauses, clause)
		args = append(args, childArgs...)
	}

	if len(clauses) == 1 {
		return clauses[0], args
	}
	return "(" + strings.Join(clauses, op) + ")", args
}

func (g *Generator) renderCompare(cmp *domain.Compare, argIndex *int) (string, []interface{}) {
	lhs := g.renderOperand(cmp)

	switch cmp.Op {
	case domain.CmpEq, domain.CmpNe, domain.CmpGt, domain.CmpGte, domain.CmpLt, domain.CmpLte:
		return fmt.Sprintf("%s %s %s", lhs, cmp.Op, g.placeholder(argIndex)), []interface{}{cmp.Value}

	case domain.CmpLike:
		return fmt.Sprintf("%s LIKE %s", lhs, g.placeholder(argIndex)), []interface{}{cmp.Value}
	case domain.CmpNotLike:
		return fmt.Sprintf("%s NOT LIKE %s", lhs, g.placeholder(argIndex)), []interface{}{cmp.Value}

	case domain.CmpLikeFold:
		if g.dialect == Postgres {
			return fmt.Sprintf("%s ILIKE %s", lhs, g.placeholder(argIndex)), []interface{}{cmp.Value}
		}
		return fmt.Sprintf("LOWER(%s) LIKE LOWER(%s)", lhs, g.placeholder(argIndex)), []interface{}{cmp.Value}
	case domain.CmpNotLikeFold:
		if g.dialect == Postgres {
			return fmt.Sprintf("%s NOT ILIKE %s", lhs, g.placeholder(argIndex)), []interface{}{cmp.Value}
		}
		return fmt.Sprintf("LOWER(%s) NOT LIKE LOWER(%s)", lhs, g.placeholder(argIndex)), []interface{}{cmp.Value}

	case domain.CmpIn, domain.CmpNotIn:
		values, _ := cmp.Value.([]interface{})
		if len(values) == 0 {
			// Membership in the empty set is vacuously false.
			if cmp.Op == domain.CmpIn {
				return "1=0", nil
			}
			return "1=1", nil
		}
		placeholders := make([]string, len(values))
		args := make([]interface{}, len(values))
		for i, v := range values {
			placeholders[i] = g.placeholder(argIndex)
			args[i] = v
		}
		verb := "IN"
		if cmp.Op == domain.CmpNotIn {
			verb = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", lhs, verb, strings.Join(placeholders, ", ")), args

	case domain.CmpIsNull:
		return lhs + " IS NULL", nil
	case domain.CmpIsNotNull:
		return lhs + " IS NOT NULL", nil

	case domain.CmpBetween, domain.CmpNotBetween:
		values, _ := cmp.Value.([]interface{})
		if len(values) != 2 {
			// The compiler enforces arity; render the neutral element
			// rather than emitting malformed SQL.
			return "1=1", nil
		}
		verb := "BETWEEN"
		if cmp.Op == domain.CmpNotBetween {
			verb = "NOT BETWEEN"
		}
		low := g.placeholder(argIndex)
		high := g.placeholder(argIndex)
		return fmt.Sprintf("%s %s %s AND %s", lhs, verb, low, high), []interface{}{values[0], values[1]}

	default:
		return "1=1", nil
	}
}

// renderOperand renders the left-hand side of a comparison: a quoted column,
// or the aggregate expression for HAVING comparisons.
func (g *Generator) renderOperand(cmp *domain.Compare) string {
	if cmp.Aggregate == nil {
		return g.quote(cmp.Column)
	}
	return g.renderAggregate(*cmp.Aggregate)
}

func (g *Generator) renderAggregate(expr domain.AggregateExpr) string {
	fn := strings.ToUpper(string(expr.Func))
	if expr.Field == "" {
		return fn + "(*)"
	}
	return fmt.Sprintf("%s(%s)", fn, g.quote(expr.Field))
}
