package geocode

import (
	"context"
	"sync"
	"time"

	"github.com/yigit/motobuddies/internal/pkg/apperrors"
)

// Debouncer lets only the latest call per key through after a quiet period.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*ticket
}

type ticket struct {
	superseded chan struct{}
}

// NewDebouncer returns a Debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, pending: make(map[string]*ticket)}
}

// Wait blocks for the quiet period. It returns ErrSuperseded if another Wait
// for the same key starts meanwhile, or ctx.Err() if ctx ends first.
func (d *Debouncer) Wait(ctx context.Context, key string) error {
	t := &ticket{superseded: make(chan struct{})}

	d.mu.Lock()
	if prev, ok := d.pending[key]; ok {
		close(prev.superseded)
	}
	d.pending[key] = t
	d.mu.Unlock()

	timer := time.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-t.superseded:
		return apperrors.ErrSuperseded
	case <-ctx.Done():
		d.release(key, t)
		return ctx.Err()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[key] != t {
		return apperrors.ErrSuperseded
	}
	delete(d.pending, key)
	return nil
}

func (d *Debouncer) release(key string, t *ticket) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[key] == t {
		delete(d.pending, key)
	}
}
