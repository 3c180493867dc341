// Package eventbus provides the in-process publish/subscribe channel pods use to
// notify the shell, and each other, of domain events without importing one
// another's code.
//
// Dispatch is synchronous: Publish invokes every live subscriber of the event
// name on the calling goroutine, in registration order, and returns when the
// last one has finished. Events with no subscribers are dropped. Nothing is
// buffered or replayed.
package eventbus

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/GoCodeAlone/micropods"
)

// Event is the envelope dispatched to subscribers. The payload shape is defined
// by the publisher and its consumers.
type Event struct {
	// Name addresses the event, e.g. "shell/notification".
	Name string `json:"name"`

	// Payload is the structured data carried by the event.
	Payload any `json:"payload"`

	// PublishedAt is set by the bus when the event is published.
	PublishedAt time.Time `json:"publishedAt"`
}

// Handler handles one event. A returned error or a panic is reported and never
// stops delivery to the other subscribers.
type Handler func(ctx context.Context, event Event) error

// ErrorHandler receives handler failures.
type ErrorHandler func(ctx context.Context, sub Subscription, event Event, err error)

// Subscription is the capability returned by Subscribe.
type Subscription interface {
	// ID returns the unique identifier of the subscription.
	ID() string

	// Name returns the event name subscribed to.
	Name() string

	// Cancel deregisters the handler. Once Cancel returns the handler is not
	// invoked again, including by a dispatch pass that is already running on
	// the same goroutine. Calling Cancel more than once has no further effect.
	Cancel()
}

// Bus is the event bus. The zero value is not usable; create one with New.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string][]*subscription
	logger  micropods.Logger
	onError ErrorHandler
	now     func() time.Time

	published atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger micropods.Logger) Option {
	return func(b *Bus) { b.logger = micropods.LoggerOrNop(logger) }
}

// WithErrorHandler sets a callback for handler errors and panics.
func WithErrorHandler(h ErrorHandler) Option {
	return func(b *Bus) { b.onError = h }
}

// WithClock replaces time.Now for the PublishedAt stamp.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) { b.now = now }
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[string][]*subscription),
		logger: micropods.NopLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type subscription struct {
	id        string
	name      string
	handler   Handler
	bus       *Bus
	cancelled atomic.Bool
}

func (s *subscription) ID() string   { return s.id }
func (s *subscription) Name() string { return s.name }

func (s *subscription) Cancel() {
	if !s.cancelled.CompareAndSwap(false, true) {
		return
	}
	s.bus.remove(s)
}

// Subscribe registers handler for name. Subscriptions to the same name are
// independent and fire in the order they were registered.
func (b *Bus) Subscribe(name string, handler Handler) (Subscription, error) {
	if name == "" {
		return nil, ErrEventNameEmpty
	}
	if handler == nil {
		return nil, ErrEventHandlerNil
	}
	sub := &subscription{
		id:      uuid.New().String(),
		name:    name,
		handler: handler,
		bus:     b,
	}

	b.mu.Lock()
	b.subs[name] = append(b.subs[name], sub)
	b.mu.Unlock()

	b.logger.Debug("Subscribed", "event", name, "subscription", sub.id)
	return sub, nil
}

func (b *Bus) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[sub.name]
	idx := slices.Index(subs, sub)
	if idx < 0 {
		return
	}
	// Build a new slice so snapshots taken by running dispatches stay intact.
	next := make([]*subscription, 0, len(subs)-1)
	next = append(next, subs[:idx]...)
	next = append(next, subs[idx+1:]...)
	if len(next) == 0 {
		delete(b.subs, sub.name)
	} else {
		b.subs[sub.name] = next
	}
	b.logger.Debug("Unsubscribed", "event", sub.name, "subscription", sub.id)
}

// Publish dispatches payload to every current subscriber of name.
func (b *Bus) Publish(ctx context.Context, name string, payload any) error {
	return b.PublishEvent(ctx, Event{Name: name, Payload: payload})
}

// PublishEvent dispatches a prepared event. A zero PublishedAt is stamped.
func (b *Bus) PublishEvent(ctx context.Context, event Event) error {
	if event.Name == "" {
		return ErrEventNameEmpty
	}
	if event.PublishedAt.IsZero() {
		event.PublishedAt = b.now()
	}
	b.published.Add(1)

	b.mu.RLock()
	subs := b.subs[event.Name]
	b.mu.RUnlock()

	if len(subs) == 0 {
		b.dropped.Add(1)
		b.logger.Debug("Dropped event without subscribers", "event", event.Name)
		return nil
	}

	for _, sub := range subs {
		if sub.cancelled.Load() {
			continue
		}
		b.invoke(ctx, sub, event)
	}
	return nil
}

func (b *Bus) invoke(ctx context.Context, sub *subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.fail(ctx, sub, event, fmt.Errorf("%w: %v", ErrHandlerPanic, r))
		}
	}()
	if err := sub.handler(ctx, event); err != nil {
		b.fail(ctx, sub, event, err)
		return
	}
	b.delivered.Add(1)
}

func (b *Bus) fail(ctx context.Context, sub *subscription, event Event, err error) {
	b.failed.Add(1)
	b.logger.Error("Event handler failed", "event", event.Name, "subscription", sub.id, "error", err)
	if b.onError != nil {
		b.onError(ctx, sub, event, err)
	}
}

// Names returns the event names that currently have subscribers, sorted.
func (b *Bus) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.subs))
	for name := range b.subs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SubscriberCount returns the number of live subscriptions to name.
func (b *Bus) SubscriberCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

// Stats is a snapshot of dispatch counters.
type Stats struct {
	Published uint64 `json:"published"`
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

// Stats returns the dispatch counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Failed:    b.failed.Load(),
		Dropped:   b.dropped.Load(),
	}
}
