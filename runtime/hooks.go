package runtime

import (
	"context"
	"sync"
)

// HookType represents the type of hook event.
type HookType string

const (
	// BeforeQuery is called before a read.
	BeforeQuery HookType = "beforeQuery"
	// AfterQuery is called after a read.
	AfterQuery HookType = "afterQuery"

	// BeforeCreate is called before a create operation.
	BeforeCreate HookType = "beforeCreate"
	// AfterCreate is called after a create operation.
	AfterCreate HookType = "afterCreate"

	// BeforeUpdate is called before an update operation.
	BeforeUpdate HookType = "beforeUpdate"
	// AfterUpdate is called after an update operation.
	AfterUpdate HookType = "afterUpdate"

	// BeforeDelete is called before a delete operation.
	BeforeDelete HookType = "beforeDelete"
	// AfterDelete is called after a delete operation.
	AfterDelete HookType = "afterDelete"
)

// HookContext contains information passed to hooks.
type HookContext struct {
	// Resource is the resource being operated on.
	Resource string

	// Data is the input payload for writes, or the result for after hooks.
	Data interface{}

	// Error is any error that occurred (for after hooks).
	Error error

	// Context is the request context.
	Context context.Context
}

// HookFunc is a function that can be registered as a hook.
type HookFunc func(ctx *HookContext) error

// Hooks manages lifecycle hooks per resource. The resource "*" matches every
// resource.
type Hooks struct {
	mu    sync.RWMutex
	hooks map[string]map[HookType][]HookFunc
}

// NewHooks creates an empty hook registry.
func NewHooks() *Hooks {
	return &Hooks{hooks: make(map[string]map[HookType][]HookFunc)}
}

// Register adds a hook for a resource and event.
func (h *Hooks) Register(resource string, hookType HookType, fn HookFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	byType, ok := h.hooks[resource]
	if !ok {
		byType = make(map[HookType][]HookFunc)
		h.hooks[resource] = byType
	}
	byType[hookType] = append(byType[hookType], fn)
}

// run invokes before-hooks; the first error aborts the operation.
func (h *Hooks) run(ctx context.Context, hookType HookType, resource string, data interface{}) error {
	for _, fn := range h.matching(resource, hookType) {
		if err := fn(&HookContext{Resource: resource, Data: data, Context: ctx}); err != nil {
			return err
		}
	}
	return nil
}

// runAfter invokes after-hooks with the operation's outcome; their errors are
// ignored since the operation already happened.
func (h *Hooks) runAfter(ctx context.Context, hookType HookType, resource string, data interface{}, opErr error) {
	for _, fn := range h.matching(resource, hookType) {
		_ = fn(&HookContext{Resource: resource, Data: data, Error: opErr, Context: ctx})
	}
}

func (h *Hooks) matching(resource string, hookType HookType) []HookFunc {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var fns []HookFunc
	if byType, ok := h.hooks[resource]; ok {
		fns = append(fns, byType[hookType]...)
	}
	if byType, ok := h.hooks["*"]; ok {
		fns = append(fns, byType[hookType]...)
	}
	return fns
}
