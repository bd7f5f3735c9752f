// Package compiler lowers abstract query descriptions into backend-neutral
// condition trees and clauses.
package compiler

import (
	"fmt"
	"reflect"

	"github.com/refractdb/refract/query/domain"
	"github.com/refractdb/refract/schema"
)

// CompileFilter lowers a filter tree into a condition tree. A nil filter
// returns a nil condition (no WHERE). Leaves referencing fields the resource
// does not declare contribute nothing; dropping them keeps filter payloads
// forward compatible with callers that know newer fields than this schema.
func CompileFilter(res *schema.Resource, node domain.FilterNode) (domain.Condition, error) {
	if node == nil {
		return nil, nil
	}

	switch n := node.(type) {
	case *domain.Leaf:
		return compileLeaf(res, n)
	case *domain.Composite:
		children := make([]domain.Condition, 0, len(n.Children))
		for _, child := range n.Children {
			cond, err := CompileFilter(res, child)
			if err != nil {
				return nil, err
			}
			if cond != nil {
				children = append(children, cond)
			}
		}
		return &domain.Group{Op: normalizeLogical(n.Operator), Children: children}, nil
	default:
		return nil, fmt.Errorf("unsupported filter node %T", node)
	}
}

func compileLeaf(res *schema.Resource, leaf *domain.Leaf) (domain.Condition, error) {
	field, ok := res.Field(leaf.Field)
	if !ok {
		return nil, nil
	}

	op, value, err := lowerOperator(leaf.Operator, leaf.Value)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", leaf.Field, err)
	}

	return &domain.Compare{Column: field.Column, Op: op, Value: value}, nil
}

// lowerOperator normalizes a filter operator and its operand. Pattern
// operators embed their wildcards here so the dialect generators only quote
// and place arguments. Shared between schema-resolved leaves and HAVING
// alias leaves.
func lowerOperator(op domain.FilterOperator, value interface{}) (domain.CompareOp, interface{}, error) {
	switch op {
	case domain.OpEq:
		return domain.CmpEq, value, nil
	case domain.OpNe:
		return domain.CmpNe, value, nil
	case domain.OpGt:
		return domain.CmpGt, value, nil
	case domain.OpGte:
		return domain.CmpGte, value, nil
	case domain.OpLt:
		return domain.CmpLt, value, nil
	case domain.OpLte:
		return domain.CmpLte, value, nil

	case domain.OpContains:
		return domain.CmpLike, fmt.Sprintf("%%%v%%", value), nil
	case domain.OpNotContains:
		return domain.CmpNotLike, fmt.Sprintf("%%%v%%", value), nil
	case domain.OpContainsFold:
		return domain.CmpLikeFold, fmt.Sprintf("%%%v%%", value), nil
	case domain.OpNotContainsFold:
		return domain.CmpNotLikeFold, fmt.Sprintf("%%%v%%", value), nil
	case domain.OpStartsWith:
		return domain.CmpLike, fmt.Sprintf("%v%%", value), nil
	case domain.OpStartsWithFold:
		return domain.CmpLikeFold, fmt.Sprintf("%v%%", value), nil
	case domain.OpEndsWith:
		return domain.CmpLike, fmt.Sprintf("%%%v", value), nil
	case domain.OpEndsWithFold:
		return domain.CmpLikeFold, fmt.Sprintf("%%%v", value), nil

	case domain.OpIn, domain.OpNotIn:
		values, ok := toSlice(value)
		if !ok {
			return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidOperand)
		}
		if op == domain.OpIn {
			return domain.CmpIn, values, nil
		}
		return domain.CmpNotIn, values, nil

	case domain.OpNull:
		return domain.CmpIsNull, nil, nil
	case domain.OpNotNull:
		return domain.CmpIsNotNull, nil, nil

	case domain.OpBetween, domain.OpNotBetween:
		values, ok := toSlice(value)
		if !ok || len(values) != 2 {
			return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidOperatorArity)
		}
		if op == domain.OpBetween {
			return domain.CmpBetween, values, nil
		}
		return domain.CmpNotBetween, values, nil

	default:
		return "", nil, fmt.Errorf("%q: %w", op, ErrUnsupportedOperator)
	}
}

func normalizeLogical(op domain.LogicalOperator) domain.LogicalOperator {
	if op == domain.Or {
		return domain.Or
	}
	return domain.And
}

// toSlice converts any slice or array operand to []interface{}.
func toSlice(value interface{}) ([]interface{}, bool) {
	if values, ok := value.([]interface{}); ok {
		return values, true
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	values := make([]interface{}, rv.Len())
	for i := range values {
		values[i] = rv.Index(i).Interface()
	}
	return values, true
}
