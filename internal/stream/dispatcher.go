package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
)

type observer struct {
	id uint64
	fn Handler
}

// Dispatcher fans lifecycle events out to registered observers.
// A faulting observer never affects the caller or the observers after it.
type Dispatcher struct {
	mu        sync.RWMutex
	nextID    uint64
	observers map[EventKind][]observer

	faults atomic.Uint64
	logger zerolog.Logger
}

func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		observers: make(map[EventKind][]observer),
		logger:    logger,
	}
}

// Subscribe registers fn for kind and returns a func that removes it.
// Safe to call at any time, including from inside a handler.
func (d *Dispatcher) Subscribe(kind EventKind, fn Handler) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.observers[kind] = append(d.observers[kind], observer{id: id, fn: fn})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(kind, id) })
	}
}

func (d *Dispatcher) remove(kind EventKind, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.observers[kind]
	for i, o := range list {
		if o.id == id {
			// copy so snapshots held by in-flight dispatches stay intact
			next := make([]observer, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			d.observers[kind] = next
			return
		}
	}
}

// Len returns the number of observers registered for kind.
func (d *Dispatcher) Len(kind EventKind) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers[kind])
}

// Faults returns how many handler faults have been logged.
func (d *Dispatcher) Faults() uint64 { return d.faults.Load() }

// Dispatch invokes every observer of ev.Kind in registration order.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	d.mu.RLock()
	list := d.observers[ev.Kind]
	d.mu.RUnlock()

	for _, o := range list {
		if fault := invoke(ctx, o.fn, ev); fault != nil {
			d.report(ctx, fault)
		}
	}
}

func invoke(ctx context.Context, fn Handler, ev Event) *HandlerFault {
	var (
		pc  panics.Catcher
		err error
	)
	pc.Try(func() { err = fn(ctx, ev) })

	if r := pc.Recovered(); r != nil {
		perr, ok := r.Value.(error)
		if !ok {
			perr = fmt.Errorf("panic: %v", r.Value)
		}
		return &HandlerFault{Event: ev.Kind, Err: perr, Stack: r.Stack}
	}
	if err != nil {
		return &HandlerFault{Event: ev.Kind, Err: err}
	}
	return nil
}

func (d *Dispatcher) report(ctx context.Context, f *HandlerFault) {
	// interrupted by the cancellation of the dispatch context itself
	if cerr := ctx.Err(); cerr != nil && errors.Is(f.Err, cerr) {
		return
	}
	d.faults.Add(1)
	e := d.logger.Error().Err(f.Err).Str("event", f.Event.String())
	if len(f.Stack) > 0 {
		e = e.Bytes("stack", f.Stack)
	}
	e.Msg("unhandled handler exception")
}
