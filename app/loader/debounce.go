package loader

import (
	"context"
	"sync"
	"time"

	"github.com/bep/debounce"
)

const DefaultDebounceDelay = 100 * time.Millisecond

// Debouncer coalesces bursts of triggers: fn runs only for the last trigger
// of a burst, once the delay has passed without another trigger.
type Debouncer struct {
	debounced func(f func())

	mu      sync.Mutex
	waiting chan bool
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{debounced: debounce.New(delay)}
}

// Do blocks for the debounce delay. It returns true after running fn when no
// other Do call arrived in the meantime, and false when it was superseded.
func (d *Debouncer) Do(ctx context.Context, fn func()) (bool, error) {
	mine := make(chan bool, 1)

	d.mu.Lock()
	if d.waiting != nil {
		d.waiting <- false
	}
	d.waiting = mine
	d.mu.Unlock()

	d.debounced(d.fire)

	select {
	case <-ctx.Done():
		d.mu.Lock()
		if d.waiting == mine {
			d.waiting = nil
		}
		d.mu.Unlock()
		return false, ctx.Err()
	case last := <-mine:
		if !last {
			return false, nil
		}
	}

	fn()
	return true, nil
}

// fire wakes the latest waiter once the burst is over.
func (d *Debouncer) fire() {
	d.mu.Lock()
	waiting := d.waiting
	d.waiting = nil
	d.mu.Unlock()

	if waiting != nil {
		waiting <- true
	}
}
