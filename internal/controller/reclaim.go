package controller

// #region imports
import (
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// #endregion

// #region runtime-reclaimer

// RuntimeReclaimer returns freed heap to the OS on a background goroutine.
// Requests made while one is pending coalesce into a single pass.
type RuntimeReclaimer struct {
	requests chan struct{}
	quit     chan struct{}
	done     chan struct{}
	free     func()

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	completed atomic.Int64
}

// NewRuntimeReclaimer creates a reclaimer backed by debug.FreeOSMemory.
func NewRuntimeReclaimer() *RuntimeReclaimer {
	return newReclaimer(debug.FreeOSMemory)
}

func newReclaimer(free func()) *RuntimeReclaimer {
	return &RuntimeReclaimer{
		requests: make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		free:     free,
	}
}

// Start launches the worker goroutine. Safe to call more than once.
func (r *RuntimeReclaimer) Start() {
	r.startOnce.Do(func() {
		r.started.Store(true)
		go r.run()
	})
}

// Stop terminates the worker and waits for it to exit. A pending request is
// dropped.
func (r *RuntimeReclaimer) Stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
		if r.started.Load() {
			<-r.done
		}
	})
}

// RequestReclaim queues a reclamation pass without blocking.
func (r *RuntimeReclaimer) RequestReclaim() {
	select {
	case r.requests <- struct{}{}:
	default:
	}
}

// Completed returns the number of passes run so far.
func (r *RuntimeReclaimer) Completed() int64 {
	return r.completed.Load()
}

func (r *RuntimeReclaimer) run() {
	defer close(r.done)
	for {
		select {
		case <-r.quit:
			return
		case <-r.requests:
			r.free()
			r.completed.Add(1)
		}
	}
}

// #endregion
