package events

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/skekre98/observers/observer"
)

// Completion tracks an asynchronous firing.
type Completion struct {
	done chan struct{}
	err  error
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

func (c *Completion) finish(err error) {
	c.err = err
	close(c.done)
}

// Done is closed once every observer has been notified.
func (c *Completion) Done() <-chan struct{} { return c.done }

// Err returns the joined observer errors. It is only meaningful after Done
// is closed.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Wait blocks until the firing completes or ctx is done.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// notifyAll runs every receiving observer with at most b.workers running at
// once and joins their failures.
func (b *Bus) notifyAll(observers []observer.ObserverMethod[any], event any, meta observer.EventMetadata) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(b.workers)
	for _, om := range observers {
		if !b.receives(om) {
			continue
		}
		g.Go(func() error {
			if err := b.notify(om, event, meta); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
