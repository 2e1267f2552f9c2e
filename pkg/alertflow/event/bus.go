package event

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Listener receives events from the bus. A non-nil error is isolated by the
// dispatcher: it is logged, converted to a synthesized error event, and does
// not affect delivery to other listeners.
type Listener func(ctx context.Context, evt *Event) error

// Subscription identifies one registered listener and can remove it.
type Subscription struct {
	bus     *Bus
	pattern string
	id      int64
}

// Unsubscribe removes the listener. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.remove(s.pattern, s.id)
	s.bus = nil
}

// registration is a listener with its dispatch ordering keys.
type registration struct {
	id       int64
	pattern  string
	priority Priority
	fn       Listener
}

// Bus routes published events to registered listeners.
//
// A subscription pattern is one of:
//   - "*"            every topic
//   - an exact name  that topic only
//   - "prefix*"      any topic starting with prefix
//
// Within one Publish call listeners run sequentially on the calling
// goroutine, ordered by priority (highest first) and then by registration
// order. The bus holds no lock while a listener runs.
type Bus struct {
	logger *slog.Logger

	mu        sync.RWMutex
	listeners map[string][]*registration
	nextID    int64
}

// NewBus creates an event bus. logger may be nil to disable logging.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger:    logger,
		listeners: make(map[string][]*registration),
	}
}

// Subscribe registers a listener for topics matching pattern.
func (b *Bus) Subscribe(pattern string, fn Listener, priority Priority) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	reg := &registration{
		id:       b.nextID,
		pattern:  pattern,
		priority: priority,
		fn:       fn,
	}
	b.listeners[pattern] = append(b.listeners[pattern], reg)

	return &Subscription{bus: b, pattern: pattern, id: reg.id}
}

func (b *Bus) remove(pattern string, id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.listeners[pattern]
	for i, reg := range regs {
		if reg.id == id {
			b.listeners[pattern] = append(regs[:i], regs[i+1:]...)
			break
		}
	}
	if len(b.listeners[pattern]) == 0 {
		delete(b.listeners, pattern)
	}
}

// Publish delivers evt to every matching listener and returns after the
// full dispatch completes. Listener failures do not abort dispatch; only an
// explicit StopPropagation does.
func (b *Bus) Publish(ctx context.Context, evt *Event) {
	candidates := b.match(evt.Name)

	for _, reg := range candidates {
		if evt.PropagationStopped() {
			break
		}

		if err := b.invoke(ctx, reg, evt); err != nil {
			if b.logger != nil {
				b.logger.Error("event listener failed",
					slog.String("event", evt.Name),
					slog.String("pattern", reg.pattern),
					slog.String("error", err.Error()),
				)
			}
			// Re-publish as a synthesized error event, unless the failure
			// came from an error listener itself.
			if evt.Name != TopicListenerError {
				failure := NewErrorEvent(TopicListenerError, "bus", err, "listener_failure")
				failure.Data["failed_event"] = evt.Name
				b.Publish(ctx, failure)
			}
		}
	}
}

// match returns listeners for name, sorted by priority then registration
// order.
func (b *Bus) match(name string) []*registration {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []*registration
	for pattern, regs := range b.listeners {
		if patternMatches(pattern, name) {
			matched = append(matched, regs...)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].priority != matched[j].priority {
			return matched[i].priority < matched[j].priority
		}
		return matched[i].id < matched[j].id
	})

	return matched
}

// patternMatches reports whether a subscription pattern matches a topic.
func patternMatches(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(name, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == name
}

// invoke runs one listener, converting panics into errors.
func (b *Bus) invoke(ctx context.Context, reg *registration, evt *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return reg.fn(ctx, evt)
}
