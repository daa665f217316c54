package loader

import (
	"context"
	"sync"
)

// Lazy defers building a Loader until the first Resolve. New wipes the
// scratch directory, so runs that stop before plugin sync leave the cache
// untouched.
type Lazy struct {
	opts Options

	mu     sync.Mutex
	loader *Loader
	closed bool
}

// NewLazy returns a resolver that builds its Loader from opts on demand.
func NewLazy(opts Options) *Lazy {
	return &Lazy{opts: opts}
}

// Resolve builds the Loader on first use and resolves through it.
func (z *Lazy) Resolve(ctx context.Context, locator, version string) (Result, error) {
	l, err := z.get()
	if err != nil {
		return Result{}, err
	}
	return l.Resolve(ctx, locator, version)
}

// Started reports whether the Loader has been built.
func (z *Lazy) Started() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.loader != nil
}

// Close stops the Loader if one was built. Later Resolve calls fail with
// ErrClosed.
func (z *Lazy) Close() error {
	z.mu.Lock()
	z.closed = true
	l := z.loader
	z.mu.Unlock()
	if l == nil {
		return nil
	}
	return l.Close()
}

func (z *Lazy) get() (*Loader, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.closed {
		return nil, ErrClosed
	}
	if z.loader != nil {
		return z.loader, nil
	}
	l, err := New(z.opts)
	if err != nil {
		return nil, err
	}
	z.loader = l
	return l, nil
}
