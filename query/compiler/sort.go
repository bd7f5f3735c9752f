package compiler

import (
	"github.com/refractdb/refract/query/domain"
	"github.com/refractdb/refract/schema"
)

// CompileSort lowers a sort specification into ordering keys. It never fails:
// entries referencing fields the resource does not declare are dropped, the
// surviving entries keep their order, and the first entry stays the primary
// sort key.
func CompileSort(res *schema.Resource, sorters []domain.Sorter) []domain.OrderBy {
	var ordering []domain.OrderBy
	for _, s := range sorters {
		field, ok := res.Field(s.Field)
		if !ok {
			continue
		}
		direction := domain.Asc
		if s.Order == domain.Desc {
			direction = domain.Desc
		}
		ordering = append(ordering, domain.OrderBy{Column: field.Column, Direction: direction})
	}
	return ordering
}
