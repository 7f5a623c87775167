package voice

import (
	"context"
	"fmt"
	"time"
)

type waiter[S comparable] struct {
	target S
	done   chan error
}

// watchers tracks goroutines waiting for a state. It is not locked; owners
// guard it with their own mutex.
type watchers[S comparable] struct {
	list []*waiter[S]
}

func (w *watchers[S]) add(target S) *waiter[S] {
	wt := &waiter[S]{target: target, done: make(chan error, 1)}
	w.list = append(w.list, wt)
	return wt
}

func (w *watchers[S]) remove(wt *waiter[S]) {
	for i, other := range w.list {
		if other == wt {
			w.list = append(w.list[:i], w.list[i+1:]...)
			return
		}
	}
}

// notify releases waiters whose target is next. When fail is non-nil every
// other waiter is released with it.
func (w *watchers[S]) notify(next S, fail error) {
	kept := w.list[:0]
	for _, wt := range w.list {
		switch {
		case wt.target == next:
			wt.done <- nil
		case fail != nil:
			wt.done <- fail
		default:
			kept = append(kept, wt)
		}
	}
	for i := len(kept); i < len(w.list); i++ {
		w.list[i] = nil
	}
	w.list = kept
}

// await blocks on a registered waiter. cancel runs with the owner's lock
// held when the wait gives up.
func await[S comparable](ctx context.Context, wt *waiter[S], timeout time.Duration, what string, cancel func()) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-wt.done:
		return err
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	case <-timer.C:
		cancel()
		return fmt.Errorf("%s did not become %v within %s: %w", what, wt.target, timeout, ErrStateTimeout)
	}
}
