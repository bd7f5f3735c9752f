package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/google/uuid"

	"github.com/refractdb/refract/internal/debug"
	"github.com/refractdb/refract/query/cache"
	"github.com/refractdb/refract/query/compiler"
	"github.com/refractdb/refract/query/domain"
	"github.com/refractdb/refract/query/sqlgen"
	"github.com/refractdb/refract/schema"
	"github.com/refractdb/refract/tenancy"
)

// Client is the data-access surface: it compiles abstract CRUD queries,
// executes them against the backend, and layers tenancy, caching and
// optimistic locking on top.
type Client struct {
	db       *sql.DB
	provider string
	gen      *sqlgen.Generator
	schema   *schema.Schema
	tenancy  *tenancy.Policy
	cache    *cache.Coordinator
	hooks    *Hooks
}

// Option configures a Client.
type Option func(*Client)

// WithTenancy enables tenant scoping on every read and write path.
func WithTenancy(policy tenancy.Policy) Option {
	return func(c *Client) {
		c.tenancy = &policy
	}
}

// WithCache enables read caching with the given LRU size and advisory TTL.
func WithCache(size int, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache.NewLRU(size, ttl)
	}
}

// WithCacheStore enables read caching over a caller-supplied store.
func WithCacheStore(store cache.Store) Option {
	return func(c *Client) {
		c.cache = cache.New(store)
	}
}

// Open creates a client for the given provider and connection string.
func Open(provider, connectionString string, s *schema.Schema, opts ...Option) (*Client, error) {
	driverName := getDriverName(provider)
	if driverName == "" {
		return nil, fmt.Errorf("%q: %w", provider, ErrUnsupportedProvider)
	}

	db, err := sql.Open(driverName, connectionString)
	if err != nil {
		return nil, err
	}

	return NewClientFromDB(provider, db, s, opts...), nil
}

// NewClientFromDB creates a client over an existing database handle.
func NewClientFromDB(provider string, db *sql.DB, s *schema.Schema, opts ...Option) *Client {
	c := &Client{
		db:       db,
		provider: provider,
		gen:      sqlgen.NewGenerator(provider),
		schema:   s,
		hooks:    NewHooks(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getDriverName maps provider names to Go database driver names.
func getDriverName(provider string) string {
	switch provider {
	case "postgresql", "postgres":
		return "postgres"
	case "mysql":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite3"
	default:
		return ""
	}
}

// Connect establishes the database connection.
func (c *Client) Connect(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the database connection.
func (c *Client) Close() error {
	return c.db.Close()
}

// DB returns the underlying database connection.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Hooks returns the hook registry.
func (c *Client) Hooks() *Hooks {
	return c.hooks
}

func (c *Client) resource(name string) (*schema.Resource, error) {
	res, ok := c.schema.Resource(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownResource)
	}
	return res, nil
}

// scopedFilter applies tenant injection to a filter when tenancy is enabled.
func (c *Client) scopedFilter(res *schema.Resource, filter domain.FilterNode, meta tenancy.RequestMeta) (domain.FilterNode, error) {
	if c.tenancy == nil {
		return filter, nil
	}
	return tenancy.Inject(res, filter, *c.tenancy, meta)
}

// scopedIDCondition compiles a primary-key predicate with tenant scoping
// applied, so writes gated on it can never touch another tenant's row.
func (c *Client) scopedIDCondition(res *schema.Resource, id interface{}, meta tenancy.RequestMeta) (domain.Condition, error) {
	filter, err := c.scopedFilter(res, idFilter(res, id), meta)
	if err != nil {
		return nil, err
	}
	return compiler.CompileFilter(res, filter)
}

// scopedPayload applies tenant stamping to a write payload when tenancy is
// enabled.
func (c *Client) scopedPayload(res *schema.Resource, payload map[string]interface{}, meta tenancy.RequestMeta) (map[string]interface{}, error) {
	if c.tenancy == nil {
		return payload, nil
	}
	return tenancy.MergePayload(res, payload, *c.tenancy, meta)
}

// ListParams describes a list read.
type ListParams struct {
	Fields     []string
	Filter     domain.FilterNode
	Sort       []domain.Sorter
	Pagination *domain.PaginationSpec
	Meta       tenancy.RequestMeta
}

// GetList compiles and executes a filtered, sorted, paginated read. Results
// are served from the cache when an identically shaped read was stored since
// the resource's last write.
func (c *Client) GetList(ctx context.Context, resource string, params ListParams) ([]map[string]interface{}, error) {
	res, err := c.resource(resource)
	if err != nil {
		return nil, err
	}

	filter, err := c.scopedFilter(res, params.Filter, params.Meta)
	if err != nil {
		return nil, &QueryError{Operation: "getList", Resource: resource, Cause: err}
	}

	shape := cache.Shape{
		Filter:     filter,
		Sort:       params.Sort,
		Pagination: params.Pagination,
		TenantID:   params.Meta.TenantID,
	}
	if c.cache != nil {
		if cached, ok := c.cache.Get("getList", resource, shape); ok {
			if rows, ok := cached.([]map[string]interface{}); ok {
				return copyRows(rows), nil
			}
		}
	}

	compiled, err := compiler.CompileRead(res, &domain.ReadQuery{
		Fields:     params.Fields,
		Filter:     filter,
		Sort:       params.Sort,
		Pagination: params.Pagination,
	})
	if err != nil {
		return nil, &QueryError{Operation: "getList", Resource: resource, Cause: err}
	}

	opID := uuid.NewString()
	debug.Debug("getList", "resource", resource, "op", opID)

	if err := c.hooks.run(ctx, BeforeQuery, resource, nil); err != nil {
		return nil, &QueryError{Operation: "getList", Resource: resource, Cause: err}
	}

	rows, err := queryMaps(ctx, c.db, c.gen.GenerateSelect(compiled))
	c.hooks.runAfter(ctx, AfterQuery, resource, rows, err)
	if err != nil {
		return nil, &QueryError{Operation: "getList", Resource: resource, Cause: err}
	}

	if c.cache != nil {
		c.cache.Put("getList", resource, shape, copyRows(rows))
	}
	return rows, nil
}

// copyRows shallow-copies a result set so cached rows and the rows handed to
// callers never share map storage.
func copyRows(rows []map[string]interface{}) []map[string]interface{} {
	if rows == nil {
		return nil
	}
	out := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		cp := make(map[string]interface{}, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

// GetOne reads a single record by id.
func (c *Client) GetOne(ctx context.Context, resource string, id interface{}, meta tenancy.RequestMeta) (map[string]interface{}, error) {
	res, err := c.resource(resource)
	if err != nil {
		return nil, err
	}

	filter, err := c.scopedFilter(res, idFilter(res, id), meta)
	if err != nil {
		return nil, &QueryError{Operation: "getOne", Resource: resource, Cause: err}
	}

	rows, err := c.readFiltered(ctx, res, filter)
	if err != nil {
		return nil, &QueryError{Operation: "getOne", Resource: resource, Cause: err}
	}
	if len(rows) == 0 {
		return nil, &NotFoundError{Resource: resource, ID: id}
	}
	return rows[0], nil
}

// Aggregate compiles and executes an aggregation with GROUP BY and HAVING.
func (c *Client) Aggregate(ctx context.Context, resource string, q domain.AggregateQuery, meta tenancy.RequestMeta) ([]map[string]interface{}, error) {
	res, err := c.resource(resource)
	if err != nil {
		return nil, err
	}

	q.Filter, err = c.scopedFilter(res, q.Filter, meta)
	if err != nil {
		return nil, &QueryError{Operation: "aggregate", Resource: resource, Cause: err}
	}

	compiled, err := compiler.CompileAggregate(res, &q)
	if err != nil {
		return nil, &QueryError{Operation: "aggregate", Resource: resource, Cause: err}
	}

	rows, err := queryMaps(ctx, c.db, c.gen.GenerateAggregate(compiled))
	if err != nil {
		return nil, &QueryError{Operation: "aggregate", Resource: resource, Cause: err}
	}
	return rows, nil
}

// Create inserts a record and returns the created row. The resolved tenant
// overrides any caller-supplied tenant value in the payload.
func (c *Client) Create(ctx context.Context, resource string, payload map[string]interface{}, meta tenancy.RequestMeta) (map[string]interface{}, error) {
	res, err := c.resource(resource)
	if err != nil {
		return nil, err
	}

	payload, err = c.scopedPayload(res, payload, meta)
	if err != nil {
		return nil, &QueryError{Operation: "create", Resource: resource, Cause: err}
	}

	if err := c.hooks.run(ctx, BeforeCreate, resource, payload); err != nil {
		return nil, &QueryError{Operation: "create", Resource: resource, Cause: err}
	}

	query := c.gen.GenerateInsert(res.Table, payload)

	var row map[string]interface{}
	if c.gen.Dialect() == sqlgen.Postgres {
		rows, qerr := queryMaps(ctx, c.db, query)
		if qerr != nil {
			err = qerr
		} else if len(rows) > 0 {
			row = rows[0]
		}
	} else {
		result, werr := execConditional(ctx, c.db, query)
		if werr != nil {
			err = werr
		} else if result.LastInsertID > 0 {
			row, err = c.readByID(ctx, res, result.LastInsertID)
		} else if id, ok := payload[res.IDColumn()]; ok {
			row, err = c.readByID(ctx, res, id)
		}
	}

	c.hooks.runAfter(ctx, AfterCreate, resource, row, err)
	if err != nil {
		return nil, &QueryError{Operation: "create", Resource: resource, Cause: err}
	}

	c.invalidate(resource)
	return row, nil
}

// Update applies an unguarded update by id. Lock fields are left untouched;
// use GuardedUpdate for optimistic locking.
func (c *Client) Update(ctx context.Context, resource string, id interface{}, payload map[string]interface{}, meta tenancy.RequestMeta) (map[string]interface{}, error) {
	res, err := c.resource(resource)
	if err != nil {
		return nil, err
	}

	where, err := c.scopedIDCondition(res, id, meta)
	if err != nil {
		return nil, &QueryError{Operation: "update", Resource: resource, Cause: err}
	}

	payload, err = c.scopedPayload(res, payload, meta)
	if err != nil {
		return nil, &QueryError{Operation: "update", Resource: resource, Cause: err}
	}

	if err := c.hooks.run(ctx, BeforeUpdate, resource, payload); err != nil {
		return nil, &QueryError{Operation: "update", Resource: resource, Cause: err}
	}

	result, err := execConditional(ctx, c.db, c.gen.GenerateUpdate(res.Table, payload, where))
	if err == nil && result.Affected == 0 {
		err = &NotFoundError{Resource: resource, ID: id}
	}

	var row map[string]interface{}
	if err == nil {
		c.invalidate(resource)
		row, err = c.readByID(ctx, res, id)
	}

	c.hooks.runAfter(ctx, AfterUpdate, resource, row, err)
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, &QueryError{Operation: "update", Resource: resource, Cause: err}
	}
	return row, nil
}

// Delete removes a record by id.
func (c *Client) Delete(ctx context.Context, resource string, id interface{}, meta tenancy.RequestMeta) error {
	res, err := c.resource(resource)
	if err != nil {
		return err
	}

	where, err := c.scopedIDCondition(res, id, meta)
	if err != nil {
		return &QueryError{Operation: "delete", Resource: resource, Cause: err}
	}

	if err := c.hooks.run(ctx, BeforeDelete, resource, nil); err != nil {
		return &QueryError{Operation: "delete", Resource: resource, Cause: err}
	}

	result, err := execConditional(ctx, c.db, c.gen.GenerateDelete(res.Table, where))
	if err == nil && result.Affected == 0 {
		err = &NotFoundError{Resource: resource, ID: id}
	}

	c.hooks.runAfter(ctx, AfterDelete, resource, nil, err)
	if err != nil {
		if IsNotFound(err) {
			return err
		}
		return &QueryError{Operation: "delete", Resource: resource, Cause: err}
	}

	c.invalidate(resource)
	return nil
}

func (c *Client) invalidate(resource string) {
	if c.cache != nil {
		c.cache.Invalidate(resource)
	}
}

// readFiltered reads rows matching an already-scoped filter.
func (c *Client) readFiltered(ctx context.Context, res *schema.Resource, filter domain.FilterNode) ([]map[string]interface{}, error) {
	compiled, err := compiler.CompileRead(res, &domain.ReadQuery{Filter: filter})
	if err != nil {
		return nil, err
	}
	return queryMaps(ctx, c.db, c.gen.GenerateSelect(compiled))
}

// readByID reads a row by primary key without tenant scoping; it is only
// used to return rows the client itself just wrote.
func (c *Client) readByID(ctx context.Context, res *schema.Resource, id interface{}) (map[string]interface{}, error) {
	rows, err := c.readFiltered(ctx, res, idFilter(res, id))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &NotFoundError{Resource: res.Name, ID: id}
	}
	return rows[0], nil
}

func idFilter(res *schema.Resource, id interface{}) domain.FilterNode {
	return &domain.Leaf{Field: res.IDField, Operator: domain.OpEq, Value: id}
}
