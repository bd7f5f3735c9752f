package runtime

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/refractdb/refract/internal/debug"
	"github.com/refractdb/refract/query/sqlgen"
)

// ExecResult is the outcome of a conditional write.
type ExecResult struct {
	Affected     int64
	LastInsertID int64
}

// querier is satisfied by *sql.DB and *sql.Tx so reads and conditional
// writes run identically inside and outside a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// queryMaps executes a generated query and scans every row into a generic
// column map.
func queryMaps(ctx context.Context, q querier, query *sqlgen.Query) ([]map[string]interface{}, error) {
	debug.Debug("executing query", "sql", query.SQL, "args", len(query.Args))

	rows, err := q.QueryContext(ctx, query.SQL, query.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	return scanRowsToMaps(rows)
}

// execConditional executes a predicate-gated write and reports how many rows
// it touched. The backend evaluates and applies the predicate indivisibly.
func execConditional(ctx context.Context, q querier, query *sqlgen.Query) (ExecResult, error) {
	debug.Debug("executing conditional write", "sql", query.SQL, "args", len(query.Args))

	result, err := q.ExecContext(ctx, query.SQL, query.Args...)
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to execute write: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to read affected rows: %w", err)
	}

	// Not every driver supports last-insert ids; treat failure as absent.
	lastID, err := result.LastInsertId()
	if err != nil {
		lastID = 0
	}

	return ExecResult{Affected: affected, LastInsertID: lastID}, nil
}

func scanRowsToMaps(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		result := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				result[col] = string(b)
			} else {
				result[col] = values[i]
			}
		}
		results = append(results, result)
	}

	return results, rows.Err()
}
