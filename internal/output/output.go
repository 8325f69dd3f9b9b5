package output

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrUnknown is returned by outputs whose value cannot be known before apply,
// e.g. while computing a preview.
var ErrUnknown = errors.New("output: value not known until apply")

// errUninitialized is returned by the zero Output.
var errUninitialized = errors.New("output: uninitialized")

// IsUnknown reports whether err means the value is not known yet.
func IsUnknown(err error) bool {
	return errors.Is(err, ErrUnknown)
}

// Input is the type-erased view of an Output used when resolving
// resource properties.
type Input interface {
	// Sources returns the names of the resources this value derives from.
	Sources() []string
	// IsResolved reports whether Await would return without blocking.
	IsResolved() bool
	// AwaitAny blocks until the value is resolved.
	AwaitAny(ctx context.Context) (any, error)
}

// cell holds a single settled value.
type cell[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func newCell[T any]() *cell[T] {
	return &cell[T]{done: make(chan struct{})}
}

func (c *cell[T]) settle(v T, err error) bool {
	settled := false
	c.once.Do(func() {
		c.val = v
		c.err = err
		close(c.done)
		settled = true
	})
	return settled
}

func (c *cell[T]) resolved() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *cell[T]) await(ctx context.Context) (T, error) {
	// A settled value wins over a cancelled context.
	select {
	case <-c.done:
		return c.val, c.err
	default:
	}
	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Promise is the producer side of a deferred value.
type Promise[T any] struct {
	c      *cell[T]
	source string
}

// NewPromise creates an unsettled promise owned by the named resource.
func NewPromise[T any](source string) *Promise[T] {
	return &Promise[T]{c: newCell[T](), source: source}
}

// Resolve settles the promise with a value. It returns false if the promise
// was already settled.
func (p *Promise[T]) Resolve(v T) bool {
	return p.c.settle(v, nil)
}

// Reject settles the promise with an error. It returns false if the promise
// was already settled.
func (p *Promise[T]) Reject(err error) bool {
	var zero T
	if err == nil {
		err = fmt.Errorf("output: %s rejected without cause", p.source)
	}
	return p.c.settle(zero, err)
}

// Output returns the consumer view of the promise.
func (p *Promise[T]) Output() Output[T] {
	c := p.c
	return Output[T]{
		sources: []string{p.source},
		ready:   c.resolved,
		await:   c.await,
	}
}

// Output is a value that may not be known yet.
//
// The zero Output is never resolved and returns an error from Await.
type Output[T any] struct {
	sources []string
	ready   func() bool
	await   func(ctx context.Context) (T, error)
}

// Resolved returns an Output that already holds v. It has no sources.
func Resolved[T any](v T) Output[T] {
	return Output[T]{
		ready: func() bool { return true },
		await: func(context.Context) (T, error) { return v, nil },
	}
}

// Rejected returns an Output that already failed with err.
func Rejected[T any](err error) Output[T] {
	return Output[T]{
		ready: func() bool { return true },
		await: func(context.Context) (T, error) {
			var zero T
			return zero, err
		},
	}
}

// Sources returns the names of the resources this output derives from.
func (o Output[T]) Sources() []string {
	return slices.Clone(o.sources)
}

// IsResolved reports whether the value (or its failure) is available.
func (o Output[T]) IsResolved() bool {
	if o.ready == nil {
		return false
	}
	return o.ready()
}

// Await blocks until the value is available or ctx is done.
func (o Output[T]) Await(ctx context.Context) (T, error) {
	if o.await == nil {
		var zero T
		return zero, errUninitialized
	}
	return o.await(ctx)
}

// AwaitAny implements Input.
func (o Output[T]) AwaitAny(ctx context.Context) (any, error) {
	return o.Await(ctx)
}

// Map derives a new output by applying fn once the source value is known.
// fn runs on every Await and must be free of side effects.
func Map[T, U any](o Output[T], fn func(T) (U, error)) Output[U] {
	return Output[U]{
		sources: o.Sources(),
		ready:   o.IsResolved,
		await: func(ctx context.Context) (U, error) {
			v, err := o.Await(ctx)
			if err != nil {
				var zero U
				return zero, err
			}
			return fn(v)
		},
	}
}

// All combines outputs into one output holding every value in order.
// It fails with the first error encountered.
func All[T any](outs ...Output[T]) Output[[]T] {
	var sources []string
	for _, o := range outs {
		for _, s := range o.sources {
			if !slices.Contains(sources, s) {
				sources = append(sources, s)
			}
		}
	}
	return Output[[]T]{
		sources: sources,
		ready: func() bool {
			for _, o := range outs {
				if !o.IsResolved() {
					return false
				}
			}
			return true
		},
		await: func(ctx context.Context) ([]T, error) {
			vals := make([]T, 0, len(outs))
			for _, o := range outs {
				v, err := o.Await(ctx)
				if err != nil {
					return nil, err
				}
				vals = append(vals, v)
			}
			return vals, nil
		},
	}
}
