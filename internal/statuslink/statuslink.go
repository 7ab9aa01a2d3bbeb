// Package statuslink counts operations in flight and publishes a busy
// signal derived from the count.
package statuslink

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	eventbus "github.com/hanpama/gqlink/internal/eventbus"
	events "github.com/hanpama/gqlink/internal/events"
	"github.com/hanpama/gqlink/internal/link"
)

// Link increments the in-flight count before forwarding and decrements it
// once the rest of the chain settles, whatever the outcome.
type Link struct {
	bus *eventbus.Bus

	// mu orders count transitions with their BusyChanged events.
	mu       sync.Mutex
	inFlight atomic.Int64
}

// New returns a Link publishing on bus. A nil bus gets a private one so
// Subscribe still works.
func New(bus *eventbus.Bus) *Link {
	if bus == nil {
		bus = eventbus.New()
	}
	return &Link{bus: bus}
}

func (l *Link) Request(ctx context.Context, op *link.Operation, forward link.NextLink) (res *link.Result, err error) {
	start := time.Now()
	l.acquire(ctx)
	eventbus.Publish(ctx, l.bus, events.OperationStart{Name: op.Name, Kind: string(op.Kind)})
	defer func() {
		l.release(ctx)
		fin := events.OperationFinish{Name: op.Name, Kind: string(op.Kind), Err: err, Duration: time.Since(start)}
		if res != nil {
			fin.GraphQLErrors = len(res.Errors)
		}
		eventbus.Publish(ctx, l.bus, fin)
	}()
	return forward(ctx, op)
}

func (l *Link) acquire(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := l.inFlight.Add(1); n == 1 {
		eventbus.Publish(ctx, l.bus, events.BusyChanged{Busy: true, InFlight: n})
	}
}

func (l *Link) release(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch n := l.inFlight.Add(-1); {
	case n == 0:
		eventbus.Publish(ctx, l.bus, events.BusyChanged{Busy: false})
	case n < 0:
		panic("statuslink: release without acquire")
	}
}

// InFlight is the number of operations that have started and not settled.
func (l *Link) InFlight() int64 { return l.inFlight.Load() }

// Busy reports whether any operation is in flight.
func (l *Link) Busy() bool { return l.InFlight() > 0 }

// Subscribe calls fn on every busy/idle transition. fn runs synchronously
// while the transition is being recorded and must not start operations
// itself.
func (l *Link) Subscribe(fn func(busy bool)) (unsubscribe func()) {
	return eventbus.Subscribe(l.bus, func(_ context.Context, e events.BusyChanged) { fn(e.Busy) })
}

var _ link.Link = (*Link)(nil)
