// Package schema models the resources and fields that queries are resolved
// against. Loading schema definitions from disk or a live database is the
// responsibility of the surrounding application; callers construct the
// registry programmatically.
package schema

import "github.com/refractdb/refract/query/domain"

// Field maps an abstract field name to a physical column.
type Field struct {
	Name   string
	Column string
	Type   string
}

// Resource describes one queryable table.
type Resource struct {
	Name    string
	Table   string
	IDField string
	Lock    *domain.LockPolicy

	fields map[string]Field
	order  []string
}

// NewResource creates a resource with the given fields. The IDField must be
// one of the declared fields.
func NewResource(name, table, idField string, fields ...Field) *Resource {
	r := &Resource{
		Name:    name,
		Table:   table,
		IDField: idField,
		fields:  make(map[string]Field, len(fields)),
	}
	for _, f := range fields {
		if f.Column == "" {
			f.Column = f.Name
		}
		if _, exists := r.fields[f.Name]; !exists {
			r.order = append(r.order, f.Name)
		}
		r.fields[f.Name] = f
	}
	return r
}

// WithLock attaches a default lock policy to the resource.
func (r *Resource) WithLock(policy domain.LockPolicy) *Resource {
	r.Lock = &policy
	return r
}

// Field resolves a field by name.
func (r *Resource) Field(name string) (Field, bool) {
	f, ok := r.fields[name]
	return f, ok
}

// HasField reports whether the resource declares the named field.
func (r *Resource) HasField(name string) bool {
	_, ok := r.fields[name]
	return ok
}

// IDColumn returns the physical column of the primary key field. It falls
// back to the field name when the field is not declared.
func (r *Resource) IDColumn() string {
	if f, ok := r.fields[r.IDField]; ok {
		return f.Column
	}
	return r.IDField
}

// Fields returns the declared fields in declaration order.
func (r *Resource) Fields() []Field {
	out := make([]Field, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.fields[name])
	}
	return out
}

// Schema is a registry of resources.
type Schema struct {
	resources map[string]*Resource
}

// New creates a schema from the given resources.
func New(resources ...*Resource) *Schema {
	s := &Schema{resources: make(map[string]*Resource, len(resources))}
	for _, r := range resources {
		s.resources[r.Name] = r
	}
	return s
}

// Add registers a resource, replacing any previous definition.
func (s *Schema) Add(r *Resource) {
	s.resources[r.Name] = r
}

// Resource resolves a resource by name.
func (s *Schema) Resource(name string) (*Resource, bool) {
	r, ok := s.resources[name]
	return r, ok
}
