// Package dispatcher implements the gateway's admission control: a bounded
// number of requests run concurrently against the engine, while the rest
// wait for a free slot. Unlike the model-loading scheduler it is descended
// from, it has nothing to load or unload -- one engine, one admission
// gate. Every release wakes all waiters and whichever of them takes the
// lock first is admitted, so the order in which waiters are admitted is
// not defined; it is not first in first out.
package dispatcher

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueFull is returned by Submit when the wait queue is already at
// its configured capacity.
var ErrQueueFull = errors.New("dispatcher: queue is full")

// ErrDispatcherClosed is returned when Submit is called after Close.
var ErrDispatcherClosed = errors.New("dispatcher: closed")

// Dispatcher admits up to maxActive concurrent requests; up to maxQueued
// more wait, in no defined order, for a slot. It provides admission, not
// execution: callers run their own work inside the function passed to Run
// once admitted, and the slot is released on every exit path, including
// panics.
type Dispatcher struct {
	mu          sync.Mutex
	cond        *sync.Cond
	maxActive   int
	maxQueued   int
	active      int
	queued      int
	closed      bool
}

// New constructs a Dispatcher that allows at most maxActive requests to
// run at once, queuing up to maxQueued more before rejecting admission.
func New(maxActive, maxQueued int) *Dispatcher {
	d := &Dispatcher{maxActive: maxActive, maxQueued: maxQueued}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Run blocks until a slot is free (or ctx is cancelled, or the queue is
// already full), then calls fn with the slot held, releasing it when fn
// returns or panics. It never leaks a slot: the release happens in a
// deferred func that runs on every exit path.
func (d *Dispatcher) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := d.acquire(ctx); err != nil {
		return err
	}
	defer d.release()
	return fn(ctx)
}

func (d *Dispatcher) acquire(ctx context.Context) error {
	d.mu.Lock()

	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}

	if d.active >= d.maxActive && d.queued >= d.maxQueued {
		d.mu.Unlock()
		return ErrQueueFull
	}

	d.queued++

	// Wake the waiter if ctx is cancelled while it's parked in cond.Wait.
	// cond.Wait only returns on Broadcast/Signal, so a goroutine forwards
	// ctx.Done() into one.
	stop := make(chan struct{})
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				d.cond.Broadcast()
			case <-stop:
			}
		}()
	}

	for !d.closed && d.active >= d.maxActive {
		if ctx != nil && ctx.Err() != nil {
			break
		}
		d.cond.Wait()
	}
	close(stop)

	d.queued--

	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	if ctx != nil && ctx.Err() != nil {
		d.mu.Unlock()
		return ctx.Err()
	}

	d.active++
	d.mu.Unlock()
	return nil
}

func (d *Dispatcher) release() {
	d.mu.Lock()
	d.active--
	d.cond.Broadcast()
	d.mu.Unlock()
}

// Close wakes every waiter with ErrDispatcherClosed and prevents further
// admission. Requests already running are unaffected.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()
}

// Stats is a point-in-time snapshot of dispatcher occupancy, used by the
// /metrics and /slots endpoints.
type Stats struct {
	Active    int
	Queued    int
	MaxActive int
	MaxQueued int
}

func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{Active: d.active, Queued: d.queued, MaxActive: d.maxActive, MaxQueued: d.maxQueued}
}
