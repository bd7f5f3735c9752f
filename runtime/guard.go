package runtime

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/refractdb/refract/internal/debug"
	"github.com/refractdb/refract/query/compiler"
	"github.com/refractdb/refract/query/domain"
	"github.com/refractdb/refract/schema"
	"github.com/refractdb/refract/tenancy"
)

// VersionMap maps row ids to the lock-field value the caller last observed.
type VersionMap map[interface{}]interface{}

// conflictReaders bounds the pool that re-reads current lock values when a
// batch conflicts.
const conflictReaders = 4

// GuardedUpdate applies an optimistically locked update. The write is gated
// on the lock field still holding the expected value; a version-strategy
// update additionally advances the version, a timestamp-strategy update
// stamps the current instant. With tenancy enabled the gate also carries the
// tenant condition, so a row in another tenant's scope reads as absent. Zero
// affected rows means a concurrent writer won: the current lock value is
// re-read and a ConflictError returned. The controller never retries; retry
// policy belongs to the caller. A nil policy downgrades to a plain update
// that ignores the lock field.
func (c *Client) GuardedUpdate(ctx context.Context, resource string, id interface{}, payload map[string]interface{}, policy *domain.LockPolicy, expected interface{}, meta tenancy.RequestMeta) (map[string]interface{}, error) {
	if policy == nil {
		return c.Update(ctx, resource, id, payload, meta)
	}

	res, err := c.resource(resource)
	if err != nil {
		return nil, err
	}
	lockColumn, err := lockColumn(res, policy)
	if err != nil {
		return nil, err
	}

	rowCond, err := c.scopedIDCondition(res, id, meta)
	if err != nil {
		return nil, &QueryError{Operation: "guardedUpdate", Resource: resource, Cause: err}
	}

	payload, err = c.scopedPayload(res, payload, meta)
	if err != nil {
		return nil, &QueryError{Operation: "guardedUpdate", Resource: resource, Cause: err}
	}
	set, err := lockedSet(payload, lockColumn, policy, expected)
	if err != nil {
		return nil, &QueryError{Operation: "guardedUpdate", Resource: resource, Cause: err}
	}

	predicate := lockPredicate(rowCond, lockColumn, expected)
	result, err := execConditional(ctx, c.db, c.gen.GenerateUpdate(res.Table, set, predicate))
	if err != nil {
		return nil, &QueryError{Operation: "guardedUpdate", Resource: resource, Cause: err}
	}

	if result.Affected == 0 {
		// Re-read through the same scoped row condition: a row the caller
		// is not allowed to see must surface as not-found, not conflict.
		current, found, rerr := c.readLockValue(ctx, res, lockColumn, rowCond)
		if rerr != nil {
			return nil, &QueryError{Operation: "guardedUpdate", Resource: resource, Cause: rerr}
		}
		if !found {
			return nil, &NotFoundError{Resource: resource, ID: id}
		}
		debug.Debug("guarded update lost", "resource", resource, "id", id,
			"expected", expected, "current", current)
		return nil, &ConflictError{Resource: resource, ID: id, Expected: expected, Current: current}
	}

	c.invalidate(resource)
	return c.readByID(ctx, res, id)
}

// GuardedUpdateMany applies one optimistically locked update per id inside a
// single transaction. Any conflict rolls the whole batch back and the error
// reports every conflicting id with its current lock value; partial
// application would leave the batch's atomicity contract undefined. A nil
// policy downgrades to one plain bulk update over the ids.
func (c *Client) GuardedUpdateMany(ctx context.Context, resource string, versions VersionMap, payload map[string]interface{}, policy *domain.LockPolicy, meta tenancy.RequestMeta) ([]map[string]interface{}, error) {
	res, err := c.resource(resource)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, nil
	}
	ids := sortedIDs(versions)

	payload, err = c.scopedPayload(res, payload, meta)
	if err != nil {
		return nil, &QueryError{Operation: "guardedUpdateMany", Resource: resource, Cause: err}
	}

	if policy == nil {
		return c.updateMany(ctx, res, resource, ids, payload, meta)
	}
	lockColumn, err := lockColumn(res, policy)
	if err != nil {
		return nil, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &QueryError{Operation: "guardedUpdateMany", Resource: resource, Cause: err}
	}

	rowConds := make(map[interface{}]domain.Condition, len(ids))
	var conflicted []interface{}
	for _, id := range ids {
		expected := versions[id]
		set, serr := lockedSet(payload, lockColumn, policy, expected)
		if serr != nil {
			tx.Rollback()
			return nil, &QueryError{Operation: "guardedUpdateMany", Resource: resource, Cause: serr}
		}

		rowCond, cerr := c.scopedIDCondition(res, id, meta)
		if cerr != nil {
			tx.Rollback()
			return nil, &QueryError{Operation: "guardedUpdateMany", Resource: resource, Cause: cerr}
		}
		rowConds[id] = rowCond

		predicate := lockPredicate(rowCond, lockColumn, expected)
		result, werr := execConditional(ctx, tx, c.gen.GenerateUpdate(res.Table, set, predicate))
		if werr != nil {
			tx.Rollback()
			return nil, &QueryError{Operation: "guardedUpdateMany", Resource: resource, Cause: werr}
		}
		if result.Affected == 0 {
			conflicted = append(conflicted, id)
		}
	}

	if len(conflicted) > 0 {
		tx.Rollback()
		return nil, c.bulkConflict(ctx, res, resource, lockColumn, conflicted, versions, rowConds)
	}

	if err := tx.Commit(); err != nil {
		return nil, &QueryError{Operation: "guardedUpdateMany", Resource: resource, Cause: err}
	}

	c.invalidate(resource)
	return c.readRows(ctx, res, ids, meta)
}

// bulkConflict re-reads the current lock values of every conflicting row
// through a worker pool and assembles the batch error. Rows outside the
// caller's tenant scope re-read as absent and keep a nil Current.
func (c *Client) bulkConflict(ctx context.Context, res *schema.Resource, resource, lockColumn string, ids []interface{}, versions VersionMap, rowConds map[interface{}]domain.Condition) error {
	conflicts := make([]ConflictError, len(ids))
	for i, id := range ids {
		conflicts[i] = ConflictError{Resource: resource, ID: id, Expected: versions[id]}
	}

	size := conflictReaders
	if len(ids) < size {
		size = len(ids)
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		// Fall back to sequential re-reads.
		for i, id := range ids {
			conflicts[i].Current, _, _ = c.readLockValue(ctx, res, lockColumn, rowConds[id])
		}
		return &BulkConflictError{Resource: resource, Conflicts: conflicts}
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, id := range ids {
		i, id := i, id
		wg.Add(1)
		task := func() {
			defer wg.Done()
			conflicts[i].Current, _, _ = c.readLockValue(ctx, res, lockColumn, rowConds[id])
		}
		if err := pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()

	return &BulkConflictError{Resource: resource, Conflicts: conflicts}
}

// updateMany is the lock-free bulk path: one tenant-scoped update over all ids.
func (c *Client) updateMany(ctx context.Context, res *schema.Resource, resource string, ids []interface{}, payload map[string]interface{}, meta tenancy.RequestMeta) ([]map[string]interface{}, error) {
	filter, err := c.scopedFilter(res, &domain.Leaf{Field: res.IDField, Operator: domain.OpIn, Value: ids}, meta)
	if err != nil {
		return nil, &QueryError{Operation: "updateMany", Resource: resource, Cause: err}
	}
	where, err := compiler.CompileFilter(res, filter)
	if err != nil {
		return nil, &QueryError{Operation: "updateMany", Resource: resource, Cause: err}
	}
	if _, err := execConditional(ctx, c.db, c.gen.GenerateUpdate(res.Table, payload, where)); err != nil {
		return nil, &QueryError{Operation: "updateMany", Resource: resource, Cause: err}
	}
	c.invalidate(resource)
	return c.readRows(ctx, res, ids, meta)
}

func (c *Client) readRows(ctx context.Context, res *schema.Resource, ids []interface{}, meta tenancy.RequestMeta) ([]map[string]interface{}, error) {
	filter, err := c.scopedFilter(res, &domain.Leaf{Field: res.IDField, Operator: domain.OpIn, Value: ids}, meta)
	if err != nil {
		return nil, err
	}
	return c.readFiltered(ctx, res, filter)
}

// readLockValue re-reads the current lock-field value of the row the given
// condition selects.
func (c *Client) readLockValue(ctx context.Context, res *schema.Resource, lockColumn string, where domain.Condition) (interface{}, bool, error) {
	read := &domain.CompiledRead{
		Table:   res.Table,
		Columns: []string{lockColumn},
		Where:   where,
	}
	rows, err := queryMaps(ctx, c.db, c.gen.GenerateSelect(read))
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0][lockColumn], true, nil
}

func lockColumn(res *schema.Resource, policy *domain.LockPolicy) (string, error) {
	field, ok := res.Field(policy.Field)
	if !ok {
		return "", fmt.Errorf("resource %q, field %q: %w", res.Name, policy.Field, ErrLockFieldMissing)
	}
	return field.Column, nil
}

// lockedSet copies the payload and advances the lock field: the next version
// for the version strategy, the current instant for the timestamp strategy.
func lockedSet(payload map[string]interface{}, lockColumn string, policy *domain.LockPolicy, expected interface{}) (map[string]interface{}, error) {
	set := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		set[k] = v
	}

	switch policy.Strategy {
	case domain.LockVersion:
		version, err := toInt64(expected)
		if err != nil {
			return nil, err
		}
		// The predicate guarantees the row still holds the expected
		// version, so expected+1 equals an in-place increment.
		set[lockColumn] = version + 1
	case domain.LockTimestamp:
		set[lockColumn] = time.Now().UTC()
	default:
		return nil, fmt.Errorf("unsupported lock strategy %q", policy.Strategy)
	}
	return set, nil
}

func lockPredicate(row domain.Condition, lockColumn string, expected interface{}) domain.Condition {
	return &domain.Group{Op: domain.And, Children: []domain.Condition{
		row,
		&domain.Compare{Column: lockColumn, Op: domain.CmpEq, Value: expected},
	}}
}

func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		if v == float64(int64(v)) {
			return int64(v), nil
		}
	}
	return 0, fmt.Errorf("%v: %w", value, ErrInvalidExpectedVersion)
}

func sortedIDs(versions VersionMap) []interface{} {
	ids := make([]interface{}, 0, len(versions))
	for id := range versions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return fmt.Sprintf("%v", ids[i]) < fmt.Sprintf("%v", ids[j])
	})
	return ids
}
