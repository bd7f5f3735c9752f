package compiler

import "github.com/refractdb/refract/query/domain"

// CompilePagination converts a 1-indexed page request into limit/offset. A
// nil spec or mode "off" yields no limiting. Out-of-range inputs never fail:
// Current is clamped to 1 and a non-positive PageSize disables limiting
// instead of producing a negative limit.
func CompilePagination(p *domain.PaginationSpec) domain.Limits {
	if p == nil || p.Mode == domain.PaginationOff {
		return domain.Limits{}
	}
	if p.PageSize <= 0 {
		return domain.Limits{}
	}

	current := p.Current
	if current < 1 {
		current = 1
	}

	limit := p.PageSize
	offset := (current - 1) * p.PageSize
	return domain.Limits{Limit: &limit, Offset: &offset}
}
