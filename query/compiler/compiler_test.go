package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refractdb/refract/query/compiler"
	"github.com/refractdb/refract/query/domain"
)

func TestCompileRead_SelectsResolvedColumns(t *testing.T) {
	res := testResource()

	read, err := compiler.CompileRead(res, &domain.ReadQuery{
		Fields: []string{"id", "name", "not_a_field", "email"},
	})
	require.NoError(t, err)

	assert.Equal(t, "users", read.Table)
	assert.Equal(t, []string{"id", "full_name", "email"}, read.Columns)
}

func TestCompileRead_EmptySelectionReadsAllColumns(t *testing.T) {
	read, err := compiler.CompileRead(testResource(), &domain.ReadQuery{})
	require.NoError(t, err)
	assert.Empty(t, read.Columns)
	assert.Nil(t, read.Where)
	assert.Empty(t, read.OrderBy)
	assert.Nil(t, read.Limits.Limit)
	assert.Nil(t, read.Limits.Offset)
}

func TestCompileRead_NilQuery(t *testing.T) {
	read, err := compiler.CompileRead(testResource(), nil)
	require.NoError(t, err)
	assert.Equal(t, "users", read.Table)
}

func TestCompileRead_FullQuery(t *testing.T) {
	res := testResource()

	read, err := compiler.CompileRead(res, &domain.ReadQuery{
		Fields: []string{"id", "email"},
		Filter: &domain.Leaf{Field: "age", Operator: domain.OpGte, Value: 18},
		Sort: []domain.Sorter{
			{Field: "name", Order: domain.Desc},
			{Field: "id"},
		},
		Pagination: &domain.PaginationSpec{
			Mode:     domain.PaginationServer,
			Current:  2,
			PageSize: 25,
		},
	})
	require.NoError(t, err)

	require.NotNil(t, read.Where)
	require.Len(t, read.OrderBy, 2)
	assert.Equal(t, domain.OrderBy{Column: "full_name", Direction: domain.Desc}, read.OrderBy[0])
	assert.Equal(t, domain.OrderBy{Column: "id", Direction: domain.Asc}, read.OrderBy[1])
	require.NotNil(t, read.Limits.Limit)
	require.NotNil(t, read.Limits.Offset)
	assert.Equal(t, 25, *read.Limits.Limit)
	assert.Equal(t, 25, *read.Limits.Offset)
}

func TestCompileRead_FilterErrorPropagates(t *testing.T) {
	_, err := compiler.CompileRead(testResource(), &domain.ReadQuery{
		Filter: &domain.Leaf{Field: "age", Operator: domain.OpBetween, Value: 18},
	})
	assert.ErrorIs(t, err, compiler.ErrInvalidOperatorArity)
}

func TestCompileSort(t *testing.T) {
	res := testResource()

	tests := []struct {
		name    string
		sorters []domain.Sorter
		want    []domain.OrderBy
	}{
		{
			name: "unknown fields dropped, order preserved",
			sorters: []domain.Sorter{
				{Field: "not_a_field", Order: domain.Desc},
				{Field: "age", Order: domain.Desc},
				{Field: "email", Order: domain.Asc},
			},
			want: []domain.OrderBy{
				{Column: "age", Direction: domain.Desc},
				{Column: "email", Direction: domain.Asc},
			},
		},
		{
			name:    "missing direction defaults to asc",
			sorters: []domain.Sorter{{Field: "id"}},
			want:    []domain.OrderBy{{Column: "id", Direction: domain.Asc}},
		},
		{
			name:    "all unknown yields no ordering",
			sorters: []domain.Sorter{{Field: "a"}, {Field: "b"}},
			want:    nil,
		},
		{
			name:    "empty input",
			sorters: nil,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compiler.CompileSort(res, tt.sorters))
		})
	}
}

func TestCompilePagination(t *testing.T) {
	intPtr := func(n int) *int { return &n }

	tests := []struct {
		name string
		spec *domain.PaginationSpec
		want domain.Limits
	}{
		{
			name: "first page",
			spec: &domain.PaginationSpec{Mode: domain.PaginationServer, Current: 1, PageSize: 20},
			want: domain.Limits{Limit: intPtr(20), Offset: intPtr(0)},
		},
		{
			name: "third page",
			spec: &domain.PaginationSpec{Mode: domain.PaginationServer, Current: 3, PageSize: 15},
			want: domain.Limits{Limit: intPtr(15), Offset: intPtr(30)},
		},
		{
			name: "zero current clamps to first page",
			spec: &domain.PaginationSpec{Mode: domain.PaginationServer, Current: 0, PageSize: 10},
			want: domain.Limits{Limit: intPtr(10), Offset: intPtr(0)},
		},
		{
			name: "negative current clamps to first page",
			spec: &domain.PaginationSpec{Mode: domain.PaginationServer, Current: -5, PageSize: 10},
			want: domain.Limits{Limit: intPtr(10), Offset: intPtr(0)},
		},
		{
			name: "mode off disables limiting",
			spec: &domain.PaginationSpec{Mode: domain.PaginationOff, Current: 2, PageSize: 10},
			want: domain.Limits{},
		},
		{
			name: "nil spec disables limiting",
			spec: nil,
			want: domain.Limits{},
		},
		{
			name: "zero page size disables limiting",
			spec: &domain.PaginationSpec{Mode: domain.PaginationServer, Current: 1, PageSize: 0},
			want: domain.Limits{},
		},
		{
			name: "negative page size disables limiting",
			spec: &domain.PaginationSpec{Mode: domain.PaginationServer, Current: 1, PageSize: -1},
			want: domain.Limits{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compiler.CompilePagination(tt.spec))
		})
	}
}
