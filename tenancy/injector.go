// Package tenancy injects and enforces tenant scoping across read and write
// paths.
package tenancy

import (
	"errors"
	"fmt"

	"github.com/refractdb/refract/query/domain"
	"github.com/refractdb/refract/schema"
)

// Error types for tenancy enforcement.
var (
	// ErrMissingTenantID is returned when neither the request nor the
	// policy supplies a tenant.
	ErrMissingTenantID = errors.New("missing tenant id")

	// ErrTenancyFieldMissing is returned in strict mode when a resource
	// does not declare the configured tenant field.
	ErrTenancyFieldMissing = errors.New("resource lacks tenant field")
)

// Policy configures tenant scoping. In strict mode every scoped resource
// must declare TenantField.
type Policy struct {
	TenantField   string
	DefaultTenant interface{}
	Strict        bool
}

// RequestMeta carries per-request tenancy inputs. BypassTenancy is the
// administrative escape hatch and must be set explicitly.
type RequestMeta struct {
	TenantID      interface{}
	BypassTenancy bool
}

// Resolve returns the effective tenant id: the request's tenant if present,
// else the policy default.
func (p Policy) Resolve(meta RequestMeta) (interface{}, error) {
	if meta.TenantID != nil {
		return meta.TenantID, nil
	}
	if p.DefaultTenant != nil {
		return p.DefaultTenant, nil
	}
	return nil, ErrMissingTenantID
}

// Inject AND-combines a tenant equality filter with the base filter. With
// the bypass flag set the base filter is returned unchanged. A resource that
// does not declare the tenant field fails in strict mode and passes through
// unfiltered otherwise, the caller being assumed to know the resource is
// tenant-agnostic.
func Inject(res *schema.Resource, base domain.FilterNode, policy Policy, meta RequestMeta) (domain.FilterNode, error) {
	if meta.BypassTenancy {
		return base, nil
	}

	tenant, err := policy.Resolve(meta)
	if err != nil {
		return nil, err
	}

	if !res.HasField(policy.TenantField) {
		if policy.Strict {
			return nil, fmt.Errorf("resource %q, field %q: %w", res.Name, policy.TenantField, ErrTenancyFieldMissing)
		}
		return base, nil
	}

	scoped := &domain.Leaf{Field: policy.TenantField, Operator: domain.OpEq, Value: tenant}
	if base == nil {
		return scoped, nil
	}
	return &domain.Composite{
		Operator: domain.And,
		Children: []domain.FilterNode{scoped, base},
	}, nil
}

// MergePayload stamps the resolved tenant into a write payload, overriding
// any caller-supplied value so a caller cannot escape its tenant scope. The
// input map is not modified.
func MergePayload(res *schema.Resource, payload map[string]interface{}, policy Policy, meta RequestMeta) (map[string]interface{}, error) {
	if meta.BypassTenancy {
		return payload, nil
	}

	tenant, err := policy.Resolve(meta)
	if err != nil {
		return nil, err
	}

	field, ok := res.Field(policy.TenantField)
	if !ok {
		if policy.Strict {
			return nil, fmt.Errorf("resource %q, field %q: %w", res.Name, policy.TenantField, ErrTenancyFieldMissing)
		}
		return payload, nil
	}

	merged := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		merged[k] = v
	}
	merged[field.Column] = tenant
	return merged, nil
}
