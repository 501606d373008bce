package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Handler is a job handler. Fire is the default entry point for a job
// declaration without an "@method" suffix.
type Handler interface {
	Fire(ctx context.Context, payload Payload) error
}

// Method is a named entry point of a handler
type Method func(ctx context.Context, payload Payload) error

// MethodSet is implemented by handlers that expose entry points besides Fire
type MethodSet interface {
	Methods() map[string]Method
}

// HandlerFunc adapts a plain function to Handler
type HandlerFunc func(ctx context.Context, payload Payload) error

// Fire calls f(ctx, payload)
func (f HandlerFunc) Fire(ctx context.Context, payload Payload) error {
	return f(ctx, payload)
}

// Factory builds a fresh handler instance for one dispatch
type Factory func() Handler

// Registry maps canonical handler identifiers to factories. It is populated
// at startup and read by the dispatcher on every job.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register registers a factory under a canonical identifier
func (r *Registry) Register(id string, factory Factory) error {
	if id == "" || factory == nil {
		return fmt.Errorf("%w: empty identifier or factory", ErrInvalidHandler)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, id)
	}
	r.factories[id] = factory
	return nil
}

// MustRegister is like Register but panics on error
func (r *Registry) MustRegister(id string, factory Factory) {
	if err := r.Register(id, factory); err != nil {
		panic(err)
	}
}

// Lookup returns the factory registered under id
func (r *Registry) Lookup(id string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[id]
	return factory, ok
}

// Names returns the registered identifiers in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for id := range r.factories {
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}
