package compiler

import (
	"github.com/refractdb/refract/query/domain"
	"github.com/refractdb/refract/schema"
)

// CompileRead lowers an abstract read into a CompiledRead: WHERE via the
// predicate compiler, ordering via the sort compiler, limit/offset via the
// pagination calculator. Selected fields that the resource does not declare
// are dropped like sort fields; an empty selection reads all columns.
func CompileRead(res *schema.Resource, q *domain.ReadQuery) (*domain.CompiledRead, error) {
	if q == nil {
		q = &domain.ReadQuery{}
	}

	where, err := CompileFilter(res, q.Filter)
	if err != nil {
		return nil, err
	}

	var columns []string
	for _, name := range q.Fields {
		if field, ok := res.Field(name); ok {
			columns = append(columns, field.Column)
		}
	}

	return &domain.CompiledRead{
		Table:   res.Table,
		Columns: columns,
		Where:   where,
		OrderBy: CompileSort(res, q.Sort),
		Limits:  CompilePagination(q.Pagination),
	}, nil
}
