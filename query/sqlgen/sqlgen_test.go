package sqlgen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/refractdb/refract/query/domain"
	"github.com/refractdb/refract/query/sqlgen"
)

func intPtr(n int) *int { return &n }

func TestNewGenerator_ProviderMapping(t *testing.T) {
	tests := []struct {
		provider string
		want     sqlgen.Dialect
	}{
		{"postgres", sqlgen.Postgres},
		{"postgresql", sqlgen.Postgres},
		{"mysql", sqlgen.MySQL},
		{"sqlite", sqlgen.SQLite},
		{"sqlite3", sqlgen.SQLite},
		{"", sqlgen.Postgres},
		{"oracle", sqlgen.Postgres},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			assert.Equal(t, tt.want, sqlgen.NewGenerator(tt.provider).Dialect())
		})
	}
}

func TestGenerateSelect_Postgres(t *testing.T) {
	gen := sqlgen.NewGenerator("postgres")

	q := gen.GenerateSelect(&domain.CompiledRead{
		Table:   "users",
		Columns: []string{"id", "email"},
		Where:   &domain.Compare{Column: "age", Op: domain.CmpGte, Value: 18},
		OrderBy: []domain.OrderBy{
			{Column: "email", Direction: domain.Asc},
			{Column: "id", Direction: domain.Desc},
		},
		Limits: domain.Limits{Limit: intPtr(20), Offset: intPtr(40)},
	})

	assert.Equal(t,
		`SELECT "id", "email" FROM "users" WHERE "age" >= $1 ORDER BY "email" ASC, "id" DESC LIMIT $2 OFFSET $3`,
		q.SQL)
	assert.Equal(t, []interface{}{18, 20, 40}, q.Args)
}

func TestGenerateSelect_MySQLPlaceholdersAndQuoting(t *testing.T) {
	gen := sqlgen.NewGenerator("mysql")

	q := gen.GenerateSelect(&domain.CompiledRead{
		Table:   "users",
		Columns: []string{"id"},
		Where:   &domain.Compare{Column: "age", Op: domain.CmpGt, Value: 18},
		Limits:  domain.Limits{Limit: intPtr(10)},
	})

	assert.Equal(t, "SELECT `id` FROM `users` WHERE `age` > ? LIMIT ?", q.SQL)
	assert.Equal(t, []interface{}{18, 10}, q.Args)
}

func TestGenerateSelect_NoColumnsSelectsStar(t *testing.T) {
	gen := sqlgen.NewGenerator("sqlite")

	q := gen.GenerateSelect(&domain.CompiledRead{Table: "users"})
	assert.Equal(t, `SELECT * FROM "users"`, q.SQL)
	assert.Empty(t, q.Args)
}

func TestGenerateSelect_OffsetWithoutLimit(t *testing.T) {
	read := &domain.CompiledRead{
		Table:  "users",
		Limits: domain.Limits{Offset: intPtr(30)},
	}

	q := sqlgen.NewGenerator("postgres").GenerateSelect(read)
	assert.Equal(t, `SELECT * FROM "users" OFFSET $1`, q.SQL)

	// MySQL cannot express OFFSET without LIMIT.
	q = sqlgen.NewGenerator("mysql").GenerateSelect(read)
	assert.Equal(t, "SELECT * FROM `users` LIMIT 18446744073709551615 OFFSET ?", q.SQL)
	assert.Equal(t, []interface{}{30}, q.Args)
}

func TestGenerateSelect_ZeroLimitsOmitted(t *testing.T) {
	gen := sqlgen.NewGenerator("postgres")

	q := gen.GenerateSelect(&domain.CompiledRead{
		Table:  "users",
		Limits: domain.Limits{Limit: intPtr(0), Offset: intPtr(0)},
	})
	assert.Equal(t, `SELECT * FROM "users"`, q.SQL)
}
