package geocode

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkordes/mileage-tracker/internal/domain"
)

// Resolver is the capability exposed once the provider is loaded.
type Resolver interface {
	Resolve(ctx context.Context, lat, lng float64) (string, error)
}

// Loader initializes a Resolver at most once and reports readiness without
// blocking. Callers that arrive before initialization has finished, or after
// it has failed, get domain.ErrResolverUnavailable.
type Loader struct {
	init func(ctx context.Context) (Resolver, error)

	once     sync.Once
	done     chan struct{}
	resolver Resolver
	err      error
}

// NewLoader wraps an initialization function.
func NewLoader(init func(ctx context.Context) (Resolver, error)) *Loader {
	return &Loader{init: init, done: make(chan struct{})}
}

// Load starts initialization if it has not started yet and waits for it to
// finish or for ctx to be done. Concurrent callers share the same attempt.
func (l *Loader) Load(ctx context.Context) error {
	l.once.Do(func() {
		go func() {
			defer close(l.done)
			// Detached from ctx: one caller's cancellation must not fail
			// the shared attempt for everyone else.
			l.resolver, l.err = l.init(context.WithoutCancel(ctx))
		}()
	})

	select {
	case <-l.done:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports whether initialization finished successfully.
func (l *Loader) Ready() bool {
	select {
	case <-l.done:
		return l.err == nil
	default:
		return false
	}
}

// Resolve delegates to the loaded resolver.
func (l *Loader) Resolve(ctx context.Context, lat, lng float64) (string, error) {
	if !l.Ready() {
		return "", fmt.Errorf("geocode.Loader.Resolve: %w", domain.ErrResolverUnavailable)
	}
	return l.resolver.Resolve(ctx, lat, lng)
}
