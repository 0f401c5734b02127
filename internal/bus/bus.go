package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/hintscan/internal/event"
	"github.com/gyaneshwarpardhi/hintscan/internal/metrics"
)

// Listener reacts to one event firing. Returning an error records a fault
// for the firing; it never stops the remaining listeners.
type Listener func(ctx context.Context, name event.Name, payload event.Payload) error

// Typed adapts a listener that expects a concrete payload type.
func Typed[T event.Payload](fn func(ctx context.Context, payload T) error) Listener {
	return func(ctx context.Context, name event.Name, payload event.Payload) error {
		v, ok := payload.(T)
		if !ok {
			return fmt.Errorf("%w: %s delivered %T", ErrPayloadType, name, payload)
		}
		return fn(ctx, v)
	}
}

// Options configures a Bus.
type Options struct {
	Logger *slog.Logger
	// ListenerTimeout bounds each listener invocation through its context.
	// Zero means no deadline.
	ListenerTimeout time.Duration
	// OnFault receives every captured listener fault.
	OnFault func(*Fault)
}

type subscription struct {
	owner    string
	pattern  event.Pattern
	listener Listener
}

// Bus routes event firings to subscribed listeners. For a given firing,
// exact-name subscriptions run first and wildcard subscriptions second, each
// group in registration order, strictly one after another.
type Bus struct {
	mu       sync.RWMutex
	exact    map[string][]*subscription
	wildcard []*subscription
	closed   bool
	inflight sync.WaitGroup

	logger  *slog.Logger
	timeout time.Duration
	onFault func(*Fault)

	dispatched atomic.Uint64
	faults     atomic.Uint64
}

// New creates an empty Bus.
func New(opts Options) *Bus {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		exact:   make(map[string][]*subscription),
		logger:  logger,
		timeout: opts.ListenerTimeout,
		onFault: opts.OnFault,
	}
}

// On subscribes an anonymous listener.
func (b *Bus) On(pattern string, l Listener) error {
	return b.Subscribe("", pattern, l)
}

// Subscribe registers l against pattern on behalf of owner. Owner is used to
// attribute faults. The listener receives firings that start after Subscribe
// returns.
func (b *Bus) Subscribe(owner, pattern string, l Listener) error {
	if l == nil {
		return fmt.Errorf("subscribe %q: nil listener", pattern)
	}
	p, err := event.ParsePattern(pattern)
	if err != nil {
		return err
	}
	s := &subscription{owner: owner, pattern: p, listener: l}

	b.mu.Lock()
	defer b.mu.Unlock()
	if p.IsWildcard() {
		b.wildcard = append(b.wildcard, s)
	} else {
		key := p.String()
		b.exact[key] = append(b.exact[key], s)
	}
	return nil
}

// Emit dispatches a firing and reports whether any listener matched. Faults
// are captured exactly as in EmitAsync and never reach the caller, so Emit
// is safe for informational markers whose listeners are plugin code.
// Listeners run on the caller's goroutine; work they hand off to other
// goroutines is not waited for.
func (b *Bus) Emit(ctx context.Context, name string, payload event.Payload) bool {
	n, err := event.ParseName(name)
	if err != nil {
		b.logger.Warn("emit rejected", "event", name, "err", err)
		return false
	}
	subs, ok := b.begin(n)
	if !ok {
		return false
	}
	defer b.inflight.Done()
	metrics.EventsEmitted.WithLabelValues(n.Category(), "sync").Inc()
	b.dispatch(rebase(ctx), n, subs, payload)
	return len(subs) > 0
}

// EmitAsync dispatches a firing and returns once every matching listener has
// returned, invoking them one at a time. A listener error, panic or timeout
// is recorded as a Fault and the next listener still runs. The only errors
// returned are an invalid name and ErrClosed.
func (b *Bus) EmitAsync(ctx context.Context, name string, payload event.Payload) error {
	n, err := event.ParseName(name)
	if err != nil {
		return err
	}
	subs, ok := b.begin(n)
	if !ok {
		return fmt.Errorf("emit %s: %w", name, ErrClosed)
	}
	defer b.inflight.Done()
	metrics.EventsEmitted.WithLabelValues(n.Category(), "async").Inc()
	b.dispatch(rebase(ctx), n, subs, payload)
	return nil
}

// Close stops accepting new firings. Firings already being dispatched are
// left to finish; use Wait to block until they have.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Wait blocks until all in-flight firings have settled.
func (b *Bus) Wait() { b.inflight.Wait() }

// Closed reports whether Close has been called.
func (b *Bus) Closed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// Stats reports the number of listener invocations and faults so far.
func (b *Bus) Stats() (dispatched, faults uint64) {
	return b.dispatched.Load(), b.faults.Load()
}

// begin snapshots the matching subscriptions and registers the firing as in
// flight, unless the bus is closed.
func (b *Bus) begin(n event.Name) ([]*subscription, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, false
	}
	b.inflight.Add(1)
	return b.matchLocked(n), true
}

func (b *Bus) matchLocked(n event.Name) []*subscription {
	exact := b.exact[n.String()]
	out := make([]*subscription, 0, len(exact)+len(b.wildcard))
	out = append(out, exact...)
	for _, s := range b.wildcard {
		if s.pattern.Matches(n) {
			out = append(out, s)
		}
	}
	return out
}

func (b *Bus) dispatch(ctx context.Context, n event.Name, subs []*subscription, payload event.Payload) {
	for _, s := range subs {
		if f := b.invoke(ctx, n, s, payload); f != nil {
			f.Resource = resourceOf(payload)
			b.fault(f)
		}
	}
}

// invoke runs one listener with panic recovery and the optional deadline.
func (b *Bus) invoke(ctx context.Context, n event.Name, s *subscription, payload event.Payload) (f *Fault) {
	b.dispatched.Add(1)
	metrics.ListenersInvoked.Inc()

	lctx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(context.WithValue(ctx, baseKey{}, ctx), b.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			f = &Fault{
				Owner:   s.owner,
				Event:   n.String(),
				Pattern: s.pattern.String(),
				Kind:    FaultPanic,
				Err:     err,
				Message: err.Error(),
				Stack:   debug.Stack(),
			}
		}
	}()

	start := time.Now()
	err := s.listener(lctx, n, payload)
	b.logger.Debug("listener done", "event", n.String(), "owner", s.owner, "duration", time.Since(start))
	if err == nil {
		return nil
	}
	kind := FaultError
	if errors.Is(err, context.DeadlineExceeded) && lctx.Err() != nil && ctx.Err() == nil {
		kind = FaultTimeout
	}
	return &Fault{
		Owner:   s.owner,
		Event:   n.String(),
		Pattern: s.pattern.String(),
		Kind:    kind,
		Err:     err,
		Message: err.Error(),
	}
}

type baseKey struct{}

// rebase drops the deadline of an enclosing listener invocation so a firing
// emitted from inside a listener gives each of its listeners a full budget.
// Cancellation of the context the outer firing started from still applies.
func rebase(ctx context.Context) context.Context {
	if base, ok := ctx.Value(baseKey{}).(context.Context); ok {
		return base
	}
	return ctx
}

// resourceOf reads the payload's resource, tolerating broken payloads such as
// typed nil pointers.
func resourceOf(payload event.Payload) (resource string) {
	if payload == nil {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			resource = ""
		}
	}()
	return payload.ResourceURL()
}

func (b *Bus) fault(f *Fault) {
	b.faults.Add(1)
	metrics.ListenerFaults.WithLabelValues(string(f.Kind)).Inc()
	b.logger.Warn("listener fault", "event", f.Event, "owner", f.Owner, "kind", f.Kind, "err", f.Err)
	if b.onFault == nil {
		return
	}
	// A misbehaving fault handler must not take the dispatch loop down with it.
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("fault handler panicked", "panic", r)
		}
	}()
	b.onFault(f)
}
