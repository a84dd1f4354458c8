// Package chain runs an ordered list of interchangeable strategies and stops
// at the first result that satisfies a predicate.
package chain

import "context"

// Strategy produces an output for an input. Implementations are tried in the
// order they are given; none is ever run concurrently with another.
type Strategy[In, Out any] interface {
	Name() string
	Attempt(ctx context.Context, in In) Out
}

// Func adapts a named function to the Strategy interface.
type Func[In, Out any] struct {
	Fn    func(ctx context.Context, in In) Out
	Label string
}

// Name returns the strategy label.
func (f Func[In, Out]) Name() string { return f.Label }

// Attempt calls the wrapped function.
func (f Func[In, Out]) Attempt(ctx context.Context, in In) Out { return f.Fn(ctx, in) }

// First tries each strategy in order and returns the first output accepted by
// accept, along with the index of the strategy that produced it.
// If none is accepted, it returns the zero Out and -1.
// A cancelled context stops iteration before the next strategy starts.
func First[In, Out any](ctx context.Context, in In, strategies []Strategy[In, Out], accept func(Out) bool) (Out, int) {
	var zero Out
	for i, s := range strategies {
		if ctx.Err() != nil {
			return zero, -1
		}
		if out := s.Attempt(ctx, in); accept(out) {
			return out, i
		}
	}
	return zero, -1
}
