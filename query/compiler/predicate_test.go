package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refractdb/refract/query/compiler"
	"github.com/refractdb/refract/query/domain"
	"github.com/refractdb/refract/schema"
)

func testResource() *schema.Resource {
	return schema.NewResource("users", "users", "id",
		schema.Field{Name: "id", Type: "int"},
		schema.Field{Name: "email", Type: "string"},
		schema.Field{Name: "name", Column: "full_name", Type: "string"},
		schema.Field{Name: "age", Type: "int"},
		schema.Field{Name: "deletedAt", Column: "deleted_at", Type: "time"},
	)
}

func TestCompileFilter_Operators(t *testing.T) {
	res := testResource()

	tests := []struct {
		name      string
		leaf      *domain.Leaf
		wantOp    domain.CompareOp
		wantValue interface{}
	}{
		{
			name:      "eq",
			leaf:      &domain.Leaf{Field: "age", Operator: domain.OpEq, Value: 18},
			wantOp:    domain.CmpEq,
			wantValue: 18,
		},
		{
			name:      "ne",
			leaf:      &domain.Leaf{Field: "age", Operator: domain.OpNe, Value: 18},
			wantOp:    domain.CmpNe,
			wantValue: 18,
		},
		{
			name:      "gt",
			leaf:      &domain.Leaf{Field: "age", Operator: domain.OpGt, Value: 18},
			wantOp:    domain.CmpGt,
			wantValue: 18,
		},
		{
			name:      "gte",
			leaf:      &domain.Leaf{Field: "age", Operator: domain.OpGte, Value: 18},
			wantOp:    domain.CmpGte,
			wantValue: 18,
		},
		{
			name:      "lt",
			leaf:      &domain.Leaf{Field: "age", Operator: domain.OpLt, Value: 65},
			wantOp:    domain.CmpLt,
			wantValue: 65,
		},
		{
			name:      "lte",
			leaf:      &domain.Leaf{Field: "age", Operator: domain.OpLte, Value: 65},
			wantOp:    domain.CmpLte,
			wantValue: 65,
		},
		{
			name:      "contains embeds wildcards",
			leaf:      &domain.Leaf{Field: "email", Operator: domain.OpContains, Value: "test"},
			wantOp:    domain.CmpLike,
			wantValue: "%test%",
		},
		{
			name:      "ncontains embeds wildcards",
			leaf:      &domain.Leaf{Field: "email", Operator: domain.OpNotContains, Value: "test"},
			wantOp:    domain.CmpNotLike,
			wantValue: "%test%",
		},
		{
			name:      "containss is case insensitive",
			leaf:      &domain.Leaf{Field: "email", Operator: domain.OpContainsFold, Value: "Test"},
			wantOp:    domain.CmpLikeFold,
			wantValue: "%Test%",
		},
		{
			name:      "ncontainss is case insensitive",
			leaf:      &domain.Leaf{Field: "email", Operator: domain.OpNotContainsFold, Value: "Test"},
			wantOp:    domain.CmpNotLikeFold,
			wantValue: "%Test%",
		},
		{
			name:      "startswith anchors prefix",
			leaf:      &domain.Leaf{Field: "email", Operator: domain.OpStartsWith, Value: "admin"},
			wantOp:    domain.CmpLike,
			wantValue: "admin%",
		},
		{
			name:      "startswiths anchors prefix",
			leaf:      &domain.Leaf{Field: "email", Operator: domain.OpStartsWithFold, Value: "Admin"},
			wantOp:    domain.CmpLikeFold,
			wantValue: "Admin%",
		},
		{
			name:      "endswith anchors suffix",
			leaf:      &domain.Leaf{Field: "email", Operator: domain.OpEndsWith, Value: ".org"},
			wantOp:    domain.CmpLike,
			wantValue: "%.org",
		},
		{
			name:      "endswiths anchors suffix",
			leaf:      &domain.Leaf{Field: "email", Operator: domain.OpEndsWithFold, Value: ".Org"},
			wantOp:    domain.CmpLikeFold,
			wantValue: "%.Org",
		},
		{
			name:      "in",
			leaf:      &domain.Leaf{Field: "age", Operator: domain.OpIn, Value: []interface{}{18, 21}},
			wantOp:    domain.CmpIn,
			wantValue: []interface{}{18, 21},
		},
		{
			name:      "nin",
			leaf:      &domain.Leaf{Field: "age", Operator: domain.OpNotIn, Value: []interface{}{18, 21}},
			wantOp:    domain.CmpNotIn,
			wantValue: []interface{}{18, 21},
		},
		{
			name:      "in accepts typed slices",
			leaf:      &domain.Leaf{Field: "age", Operator: domain.OpIn, Value: []int{18, 21}},
			wantOp:    domain.CmpIn,
			wantValue: []interface{}{18, 21},
		},
		{
			name:      "null ignores the value",
			leaf:      &domain.Leaf{Field: "deletedAt", Operator: domain.OpNull, Value: "ignored"},
			wantOp:    domain.CmpIsNull,
			wantValue: nil,
		},
		{
			name:      "nnull ignores the value",
			leaf:      &domain.Leaf{Field: "deletedAt", Operator: domain.OpNotNull, Value: 42},
			wantOp:    domain.CmpIsNotNull,
			wantValue: nil,
		},
		{
			name:      "between",
			leaf:      &domain.Leaf{Field: "age", Operator: domain.OpBetween, Value: []interface{}{18, 65}},
			wantOp:    domain.CmpBetween,
			wantValue: []interface{}{18, 65},
		},
		{
			name:      "nbetween",
			leaf:      &domain.Leaf{Field: "age", Operator: domain.OpNotBetween, Value: []interface{}{18, 65}},
			wantOp:    domain.CmpNotBetween,
			wantValue: []interface{}{18, 65},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := compiler.CompileFilter(res, tt.leaf)
			require.NoError(t, err)

			cmp, ok := cond.(*domain.Compare)
			require.True(t, ok, "expected *domain.Compare, got %T", cond)
			assert.Equal(t, tt.wantOp, cmp.Op)
			assert.Equal(t, tt.wantValue, cmp.Value)
		})
	}
}

func TestCompileFilter_ResolvesColumnNames(t *testing.T) {
	res := testResource()

	cond, err := compiler.CompileFilter(res, &domain.Leaf{
		Field:    "name",
		Operator: domain.OpEq,
		Value:    "alice",
	})
	require.NoError(t, err)

	cmp := cond.(*domain.Compare)
	assert.Equal(t, "full_name", cmp.Column)
}

func TestCompileFilter_NilFilter(t *testing.T) {
	cond, err := compiler.CompileFilter(testResource(), nil)
	require.NoError(t, err)
	assert.Nil(t, cond)
}

func TestCompileFilter_UnknownFieldDropped(t *testing.T) {
	res := testResource()

	cond, err := compiler.CompileFilter(res, &domain.Leaf{
		Field:    "not_a_field",
		Operator: domain.OpEq,
		Value:    1,
	})
	require.NoError(t, err)
	assert.Nil(t, cond)

	// Inside a composite the unknown leaf vanishes and the sibling survives.
	cond, err = compiler.CompileFilter(res, &domain.Composite{
		Operator: domain.And,
		Children: []domain.FilterNode{
			&domain.Leaf{Field: "not_a_field", Operator: domain.OpEq, Value: 1},
			&domain.Leaf{Field: "age", Operator: domain.OpGt, Value: 18},
		},
	})
	require.NoError(t, err)

	group := cond.(*domain.Group)
	require.Len(t, group.Children, 1)
	assert.Equal(t, "age", group.Children[0].(*domain.Compare).Column)
}

func TestCompileFilter_EmptyComposite(t *testing.T) {
	cond, err := compiler.CompileFilter(testResource(), &domain.Composite{Operator: domain.And})
	require.NoError(t, err)

	group, ok := cond.(*domain.Group)
	require.True(t, ok)
	assert.Empty(t, group.Children)
}

func TestCompileFilter_DefaultsToAnd(t *testing.T) {
	cond, err := compiler.CompileFilter(testResource(), &domain.Composite{
		Children: []domain.FilterNode{
			&domain.Leaf{Field: "age", Operator: domain.OpGt, Value: 18},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.And, cond.(*domain.Group).Op)
}

func TestCompileFilter_ArityErrors(t *testing.T) {
	res := testResource()

	tests := []struct {
		name    string
		leaf    *domain.Leaf
		wantErr error
	}{
		{
			name:    "between with one bound",
			leaf:    &domain.Leaf{Field: "age", Operator: domain.OpBetween, Value: []interface{}{18}},
			wantErr: compiler.ErrInvalidOperatorArity,
		},
		{
			name:    "between with three bounds",
			leaf:    &domain.Leaf{Field: "age", Operator: domain.OpBetween, Value: []interface{}{1, 2, 3}},
			wantErr: compiler.ErrInvalidOperatorArity,
		},
		{
			name:    "nbetween with scalar",
			leaf:    &domain.Leaf{Field: "age", Operator: domain.OpNotBetween, Value: 18},
			wantErr: compiler.ErrInvalidOperatorArity,
		},
		{
			name:    "in with scalar",
			leaf:    &domain.Leaf{Field: "age", Operator: domain.OpIn, Value: 18},
			wantErr: compiler.ErrInvalidOperand,
		},
		{
			name:    "nin with scalar",
			leaf:    &domain.Leaf{Field: "age", Operator: domain.OpNotIn, Value: "18"},
			wantErr: compiler.ErrInvalidOperand,
		},
		{
			name:    "unsupported operator",
			leaf:    &domain.Leaf{Field: "age", Operator: "regex", Value: ".*"},
			wantErr: compiler.ErrUnsupportedOperator,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compiler.CompileFilter(res, tt.leaf)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCompileFilter_DeepNesting(t *testing.T) {
	res := testResource()

	// 60 alternating and/or levels around a single leaf.
	var node domain.FilterNode = &domain.Leaf{Field: "age", Operator: domain.OpGt, Value: 18}
	for i := 0; i < 60; i++ {
		op := domain.And
		if i%2 == 0 {
			op = domain.Or
		}
		node = &domain.Composite{Operator: op, Children: []domain.FilterNode{node}}
	}

	cond, err := compiler.CompileFilter(res, node)
	require.NoError(t, err)

	depth := 0
	for {
		group, ok := cond.(*domain.Group)
		if !ok {
			break
		}
		require.Len(t, group.Children, 1)
		cond = group.Children[0]
		depth++
	}
	assert.Equal(t, 60, depth)
	assert.Equal(t, "age", cond.(*domain.Compare).Column)
}

func TestCompileFilter_MixedTree(t *testing.T) {
	res := testResource()

	cond, err := compiler.CompileFilter(res, &domain.Composite{
		Operator: domain.Or,
		Children: []domain.FilterNode{
			&domain.Leaf{Field: "email", Operator: domain.OpEndsWith, Value: "@example.com"},
			&domain.Composite{
				Operator: domain.And,
				Children: []domain.FilterNode{
					&domain.Leaf{Field: "age", Operator: domain.OpGte, Value: 18},
					&domain.Leaf{Field: "deletedAt", Operator: domain.OpNull},
				},
			},
		},
	})
	require.NoError(t, err)

	root := cond.(*domain.Group)
	assert.Equal(t, domain.Or, root.Op)
	require.Len(t, root.Children, 2)

	inner := root.Children[1].(*domain.Group)
	assert.Equal(t, domain.And, inner.Op)
	require.Len(t, inner.Children, 2)
	assert.Equal(t, domain.CmpIsNull, inner.Children[1].(*domain.Compare).Op)
}
