// Package promise provides a single-assignment result that can be awaited by
// multiple goroutines.
package promise

import (
	"context"
	"sync"
)

type Promise interface {
	Deferred
	Waitable
}

// Deferred settles a promise. Only the first call has any effect.
type Deferred interface {
	Resolve()
	Reject(err error)
}

type Waitable interface {
	// Done is closed once the promise settles.
	Done() <-chan struct{}
	// Err returns the rejection error, or nil while pending or when resolved.
	Err() error
	// Wait blocks until the promise settles or ctx is done.
	Wait(ctx context.Context) error
}

type promise struct {
	once   sync.Once
	doneCh chan struct{}
	err    error
}

func New() Promise {
	return &promise{
		doneCh: make(chan struct{}),
	}
}

func (p *promise) settle(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.doneCh)
	})
}

func (p *promise) Resolve() {
	p.settle(nil)
}

func (p *promise) Reject(err error) {
	p.settle(err)
}

func (p *promise) Done() <-chan struct{} {
	return p.doneCh
}

func (p *promise) Err() error {
	select {
	case <-p.doneCh:
		return p.err
	default:
		return nil
	}
}

func (p *promise) Wait(ctx context.Context) error {
	select {
	case <-p.doneCh:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
