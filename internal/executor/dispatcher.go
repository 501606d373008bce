// Package executor resolves job handler declarations of the form
// "[module/]Class[@method]" into registered handlers and invokes them.
package executor

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	// DefaultMethod is invoked when a declaration has no "@method" suffix
	DefaultMethod = "fire"

	// DefaultNamespace prefixes short handler declarations
	DefaultNamespace = "app"

	jobSegment = "job"
)

// Dispatcher turns a job's handler declaration and payload into a call
type Dispatcher struct {
	logger    *zap.Logger
	registry  *Registry
	namespace string
}

// NewDispatcher creates a dispatcher over registry. Short declarations are
// expanded below namespace.
func NewDispatcher(registry *Registry, namespace string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		logger:    logger.Named("dispatcher"),
		registry:  registry,
		namespace: namespace,
	}
}

// ParseHandler splits a declaration into target and method
func ParseHandler(declaration string) (target, method string) {
	segments := strings.Split(declaration, "@")
	if len(segments) > 1 && segments[1] != "" {
		return segments[0], segments[1]
	}
	return segments[0], DefaultMethod
}

// Canonical expands a target into its canonical identifier. A target that
// contains a dot is already fully qualified; "module/Class" becomes
// "<namespace>.<module>.job.Class" and "Class" becomes "<namespace>.job.Class".
func (d *Dispatcher) Canonical(target string) string {
	if strings.Contains(target, ".") {
		return target
	}

	module, name := "", target
	if before, after, ok := strings.Cut(target, "/"); ok {
		module, name = strings.ToLower(before), after
	}

	segments := make([]string, 0, 4)
	if d.namespace != "" {
		segments = append(segments, d.namespace)
	}
	if module != "" {
		segments = append(segments, module)
	}
	segments = append(segments, jobSegment, name)
	return strings.Join(segments, ".")
}

// Resolve builds a handler for target. ok is false when nothing is
// registered under its canonical identifier.
func (d *Dispatcher) Resolve(target string) (Handler, bool) {
	factory, ok := d.registry.Lookup(d.Canonical(target))
	if !ok {
		return nil, false
	}

	handler := factory()
	if handler == nil {
		return nil, false
	}
	return handler, true
}

// Invoke decodes payload and calls method on handler
func (d *Dispatcher) Invoke(ctx context.Context, handler Handler, method string, payload []byte) error {
	decoded, err := DecodePayload(payload)
	if err != nil {
		return err
	}

	if method == "" || strings.EqualFold(method, DefaultMethod) {
		return handler.Fire(ctx, decoded)
	}

	fn, ok := lookupMethod(handler, method)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMethodNotFound, method)
	}
	return fn(ctx, decoded)
}

// Dispatch parses, resolves and invokes a declaration. It returns
// ErrHandlerNotFound when the declaration resolves to nothing; callers
// treat that as a no-op rather than a failure.
func (d *Dispatcher) Dispatch(ctx context.Context, declaration string, payload []byte) error {
	if strings.TrimSpace(declaration) == "" {
		return fmt.Errorf("%w: empty declaration", ErrInvalidHandler)
	}

	target, method := ParseHandler(declaration)
	handler, ok := d.Resolve(target)
	if !ok {
		return fmt.Errorf("%w: %s", ErrHandlerNotFound, d.Canonical(target))
	}

	d.logger.Debug("Dispatching job",
		zap.String("handler", d.Canonical(target)),
		zap.String("method", method))

	return d.Invoke(ctx, handler, method, payload)
}

// lookupMethod matches method names case-insensitively
func lookupMethod(handler Handler, method string) (Method, bool) {
	set, ok := handler.(MethodSet)
	if !ok {
		return nil, false
	}

	methods := set.Methods()
	if fn, ok := methods[method]; ok && fn != nil {
		return fn, true
	}
	for name, fn := range methods {
		if strings.EqualFold(name, method) && fn != nil {
			return fn, true
		}
	}
	return nil, false
}
