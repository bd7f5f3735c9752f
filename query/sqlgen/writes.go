package sqlgen

import (
	"sort"
	"strings"

	"github.com/refractdb/refract/query/domain"
)

// GenerateInsert renders an INSERT. For PostgreSQL the statement carries
// RETURNING * so the caller reads the created row from the same round trip.
func (g *Generator) GenerateInsert(table string, values map[string]interface{}) *Query {
	var parts []string
	var args []interface{}
	argIndex := 1

	parts = append(parts, "INSERT INTO "+g.quote(table))

	columns := sortedColumns(values)
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		placeholders := make([]string, len(columns))
		for i, col := range columns {
			quoted[i] = g.quote(col)
			placeholders[i] = g.placeholder(&argIndex)
			args = append(args, values[col])
		}
		parts = append(parts, "("+strings.Join(quoted, ", ")+")")
		parts = append(parts, "VALUES ("+strings.Join(placeholders, ", ")+")")
	}

	if g.dialect == Postgres {
		parts = append(parts, "RETURNING *")
	}

	return &Query{SQL: strings.Join(parts, " "), Args: args}
}

// GenerateUpdate renders an UPDATE guarded by the given predicate. SET
// columns are emitted in sorted order so the same inputs always produce the
// same statement.
func (g *Generator) GenerateUpdate(table string, set map[string]interface{}, where domain.Condition) *Query {
	var parts []string
	var args []interface{}
	argIndex := 1

	parts = append(parts, "UPDATE "+g.quote(table))

	columns := sortedColumns(set)
	if len(columns) > 0 {
		setParts := make([]string, len(columns))
		for i, col := range columns {
			setParts[i] = g.quote(col) + " = " + g.placeholder(&argIndex)
			args = append(args, set[col])
		}
		parts = append(parts, "SET "+strings.Join(setParts, ", "))
	}

	if where != nil {
		whereSQL, whereArgs := g.renderCondition(where, &argIndex)
		parts = append(parts, "WHERE "+whereSQL)
		args = append(args, whereArgs...)
	}

	return &Query{SQL: strings.Join(parts, " "), Args: args}
}

// GenerateDelete renders a DELETE. A missing predicate renders an impossible
// one so a malformed call cannot empty a table.
func (g *Generator) GenerateDelete(table string, where domain.Condition) *Query {
	var parts []string
	var args []interface{}
	argIndex := 1

	parts = append(parts, "DELETE FROM "+g.quote(table))

	if where != nil {
		whereSQL, whereArgs := g.renderCondition(where, &argIndex)
		parts = append(parts, "WHERE "+whereSQL)
		args = append(args, whereArgs...)
	} else {
		parts = append(parts, "WHERE 1=0")
	}

	return &Query{SQL: strings.Join(parts, " "), Args: args}
}

func sortedColumns(values map[string]interface{}) []string {
	columns := make([]string, 0, len(values))
	for col := range values {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}
