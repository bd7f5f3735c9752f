package sqlgen

import (
	"strings"

	"github.com/refractdb/refract/query/domain"
)

// GenerateAggregate renders a compiled aggregation: WHERE, GROUP BY, the
// aliased aggregate projections, and HAVING. HAVING comparisons repeat the
// aggregate expression instead of its alias, which every supported dialect
// accepts.
func (g *Generator) GenerateAggregate(agg *domain.CompiledAggregate) *Query {
	var parts []string
	var args []interface{}
	argIndex := 1

	selectParts := make([]string, 0, len(agg.Columns)+len(agg.GroupBy))
	for _, col := range agg.GroupBy {
		selectParts = append(selectParts, g.quote(col))
	}
	for _, col := range agg.Columns {
		selectParts = append(selectParts, g.renderAggregate(col.Expr)+" AS "+g.quote(col.Alias))
	}
	parts = append(parts, "SELECT "+strings.Join(selectParts, ", "))

	parts = append(parts, "FROM "+g.quote(agg.Table))

	if agg.Where != nil {
		whereSQL, whereArgs := g.renderCondition(agg.Where, &argIndex)
		parts = append(parts, "WHERE "+whereSQL)
		args = append(args, whereArgs...)
	}

	if len(agg.GroupBy) > 0 {
		groupParts := make([]string, len(agg.GroupBy))
		for i, col := range agg.GroupBy {
			groupParts[i] = g.quote(col)
		}
		parts = append(parts, "GROUP BY "+strings.Join(groupParts, ", "))
	}

	if agg.Having != nil {
		havingSQL, havingArgs := g.renderCondition(agg.Having, &argIndex)
		parts = append(parts, "HAVING "+havingSQL)
		args = append(args, havingArgs...)
	}

	return &Query{SQL: strings.Join(parts, " "), Args: args}
}
