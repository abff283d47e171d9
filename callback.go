package airtable

import "context"

// Callback receives the outcome of a call made through a WithCallback method.
type Callback[T any] func(value T, err error)

// runAsync performs fn on its own goroutine and reports to done, if any.
// It adds nothing to fn: the same single call runs either way.
func runAsync[T any](ctx context.Context, fn func(context.Context) (T, error), done Callback[T]) {
	go func() {
		value, err := fn(ctx)
		if done != nil {
			done(value, err)
		}
	}()
}
