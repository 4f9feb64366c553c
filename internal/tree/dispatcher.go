package tree

import (
	"sync"

	"repotree/internal/logging"
)

// Dispatcher serializes all tree mutation onto a single goroutine, the Go
// rendition of a UI-affine thread. Children collections are mutated, nodes
// constructed and disposed, and property changes announced only from the
// dispatch loop; watcher and timer callbacks hand work off with Post and
// return immediately.
type Dispatcher struct {
	tasks     chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewDispatcher creates a dispatcher and starts its loop.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		tasks: make(chan func(), 64),
		done:  make(chan struct{}),
	}
	go d.loop()
	return d
}

// Post hands fn to the dispatch loop and returns without waiting. After
// Close, tasks are silently dropped; every posted task guards against a
// disposed owner anyway, so a dropped task is indistinguishable from one
// that ran and bailed out.
func (d *Dispatcher) Post(fn func()) {
	select {
	case <-d.done:
	case d.tasks <- fn:
	}
}

// Call runs fn on the dispatch loop and waits for it to finish. Must not
// be called from the loop itself; tasks that need more dispatcher work
// call plain methods directly, they are already on the loop.
func (d *Dispatcher) Call(fn func()) {
	ran := make(chan struct{})
	d.Post(func() {
		defer close(ran)
		fn()
	})
	select {
	case <-ran:
	case <-d.done:
	}
}

// Close stops the loop. Idempotent. Queued tasks that have not started are
// discarded.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
	})
}

func (d *Dispatcher) loop() {
	for {
		select {
		case <-d.done:
			return
		case fn := <-d.tasks:
			d.run(fn)
		}
	}
}

// run executes one task, never letting a panic take down the loop.
func (d *Dispatcher) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Dispatched task panicked", "panic", r)
		}
	}()
	fn()
}
