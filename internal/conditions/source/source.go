// Package source acquires condition snapshots from external providers.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
)

// Source errors.
var (
	// ErrAcquisition is matched by every *AcquisitionError.
	ErrAcquisition = errors.New("condition acquisition failed")

	// ErrUnsupported is returned when a source cannot supply a condition type.
	ErrUnsupported = errors.New("condition type not supported by source")
)

// Source supplies timestamped condition snapshots for a target.
type Source interface {
	// Fetch returns the current snapshot of condition type ct for target.
	Fetch(ctx context.Context, target conditions.Target, ct conditions.Type) (conditions.Snapshot, error)

	// Name returns the source name for logging.
	Name() string
}

// AcquisitionError reports which target and condition type could not be fetched.
type AcquisitionError struct {
	Source    string
	TargetID  string
	Condition conditions.Type
	Err       error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquiring %s for target %s from %s: %v", e.Condition, e.TargetID, e.Source, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrAcquisition) succeed.
func (e *AcquisitionError) Is(target error) bool {
	return target == ErrAcquisition
}

func acquisitionError(src string, target conditions.Target, ct conditions.Type, err error) error {
	return &AcquisitionError{Source: src, TargetID: target.ID, Condition: ct, Err: err}
}

// Func adapts a function to the Source interface.
type Func struct {
	SourceName string
	Fn         func(ctx context.Context, target conditions.Target, ct conditions.Type) (conditions.Snapshot, error)
}

// Fetch calls the wrapped function.
func (f Func) Fetch(ctx context.Context, target conditions.Target, ct conditions.Type) (conditions.Snapshot, error) {
	snap, err := f.Fn(ctx, target, ct)
	if err != nil {
		return conditions.Snapshot{}, acquisitionError(f.Name(), target, ct, err)
	}
	return snap, nil
}

// Name returns the configured name, or "func".
func (f Func) Name() string {
	if f.SourceName == "" {
		return "func"
	}
	return f.SourceName
}

// Router dispatches each condition type to the source registered for it.
type Router struct {
	sources map[conditions.Type]Source
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{sources: make(map[conditions.Type]Source)}
}

// Handle registers src for the given condition types.
func (r *Router) Handle(src Source, types ...conditions.Type) *Router {
	for _, ct := range types {
		r.sources[ct] = src
	}
	return r
}

// Fetch forwards to the source registered for ct.
func (r *Router) Fetch(ctx context.Context, target conditions.Target, ct conditions.Type) (conditions.Snapshot, error) {
	src, ok := r.sources[ct]
	if !ok {
		return conditions.Snapshot{}, acquisitionError(r.Name(), target, ct, ErrUnsupported)
	}
	return src.Fetch(ctx, target, ct)
}

// Name returns "router".
func (r *Router) Name() string { return "router" }

// Supports reports whether a source is registered for ct.
func (r *Router) Supports(ct conditions.Type) bool {
	_, ok := r.sources[ct]
	return ok
}
