// Package sqlgen renders compiled queries to parameterized SQL for different
// database providers.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/refractdb/refract/query/domain"
)

// Query represents a SQL query with arguments.
type Query struct {
	SQL  string
	Args []interface{}
}

// Dialect represents a SQL dialect.
type Dialect string

const (
	// Postgres dialect.
	Postgres Dialect = "postgres"
	// MySQL dialect.
	MySQL Dialect = "mysql"
	// SQLite dialect.
	SQLite Dialect = "sqlite"
)

// Generator renders compiled reads, writes and aggregations for one dialect.
type Generator struct {
	dialect Dialect
}

// NewGenerator creates a generator for the given provider.
func NewGenerator(provider string) *Generator {
	switch provider {
	case "postgresql", "postgres":
		return &Generator{dialect: Postgres}
	case "mysql":
		return &Generator{dialect: MySQL}
	case "sqlite", "sqlite3":
		return &Generator{dialect: SQLite}
	default:
		return &Generator{dialect: Postgres}
	}
}

// Dialect returns the generator's dialect.
func (g *Generator) Dialect() Dialect {
	return g.dialect
}

// GenerateSelect renders a compiled read.
func (g *Generator) GenerateSelect(read *domain.CompiledRead) *Query {
	var parts []string
	var args []interface{}
	argIndex := 1

	if len(read.Columns) == 0 {
		parts = append(parts, "SELECT *")
	} else {
		quoted := make([]string, len(read.Columns))
		for i, col := range read.Columns {
			quoted[i] = g.quote(col)
		}
		parts = append(parts, "SELECT "+strings.Join(quoted, ", "))
	}

	parts = append(parts, "FROM "+g.quote(read.Table))

	if read.Where != nil {
		whereSQL, whereArgs := g.renderCondition(read.Where, &argIndex)
		parts = append(parts, "WHERE "+whereSQL)
		args = append(args, whereArgs...)
	}

	if len(read.OrderBy) > 0 {
		orderParts := make([]string, len(read.OrderBy))
		for i, ob := range read.OrderBy {
			direction := "ASC"
			if ob.Direction == domain.Desc {
				direction = "DESC"
			}
			orderParts[i] = fmt.Sprintf("%s %s", g.quote(ob.Column), direction)
		}
		parts = append(parts, "ORDER BY "+strings.Join(orderParts, ", "))
	}

	limitSQL, limitArgs := g.renderLimits(read.Limits, &argIndex)
	if limitSQL != "" {
		parts = append(parts, limitSQL)
		args = append(args, limitArgs...)
	}

	return &Query{SQL: strings.Join(parts, " "), Args: args}
}

func (g *Generator) renderLimits(limits domain.Limits, argIndex *int) (string, []interface{}) {
	var parts []string
	var args []interface{}

	hasLimit := limits.Limit != nil && *limits.Limit > 0
	hasOffset := limits.Offset != nil && *limits.Offset > 0

	if hasLimit {
		parts = append(parts, "LIMIT "+g.placeholder(argIndex))
		args = append(args, *limits.Limit)
	}
	if hasOffset {
		if !hasLimit && g.dialect == MySQL {
			// MySQL requires LIMIT when using OFFSET.
			parts = append(parts, "LIMIT 18446744073709551615")
		}
		parts = append(parts, "OFFSET "+g.placeholder(argIndex))
		args = append(args, *limits.Offset)
	}

	return strings.Join(parts, " "), args
}

// placeholder returns the next argument placeholder for the dialect.
func (g *Generator) placeholder(argIndex *int) string {
	defer func() { *argIndex++ }()

	switch g.dialect {
	case Postgres:
		return fmt.Sprintf("$%d", *argIndex)
	default:
		return "?"
	}
}

// quote quotes an identifier for the dialect.
func (g *Generator) quote(name string) string {
	if g.dialect == MySQL {
		return fmt.Sprintf("`%s`", name)
	}
	return fmt.Sprintf(`"%s"`, name)
}
