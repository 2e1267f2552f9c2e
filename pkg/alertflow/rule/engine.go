package rule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	alerterrors "github.com/randalmurphal/alertflow/pkg/alertflow/errors"
	"github.com/randalmurphal/alertflow/pkg/alertflow/event"
	"github.com/randalmurphal/alertflow/pkg/alertflow/observability"
	"github.com/randalmurphal/alertflow/pkg/alertflow/store"
)

// EngineConfig configures engine behavior.
type EngineConfig struct {
	// BufferSize is the consumption queue depth between the bus listener
	// and the evaluation loop. Default: 256.
	BufferSize int

	// Store, when set, receives every consumed event before rule
	// evaluation and every produced alert. Writes are best-effort.
	Store store.EventStore

	// Logger for engine diagnostics. Nil disables logging.
	Logger *slog.Logger

	// Metrics records engine metrics. Nil means no metrics.
	Metrics observability.MetricsRecorder

	// Spans records evaluation trace spans. Nil means no tracing.
	Spans observability.SpanManager
}

// ruleState pairs a rule with its engine-owned mutable state. The mutex
// protects the counter/cooldown pair so the cooldown invariant holds even
// if evaluation is ever parallelized.
type ruleState struct {
	rule *Rule

	mu        sync.Mutex
	lastAlert time.Time
	count     int
}

// Engine evaluates rules against the event stream and fans out alerts.
type Engine struct {
	bus     *event.Bus
	store   store.EventStore
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	bufferSize int

	mu       sync.Mutex
	rules    []*ruleState
	handlers []Handler
	running  bool
	sub      *event.Subscription
	cancel   context.CancelFunc
	done     chan struct{}
	events   chan *event.Event
}

// NewEngine creates a rule engine consuming from bus.
func NewEngine(bus *event.Bus, cfg EngineConfig) *Engine {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	spans := cfg.Spans
	if spans == nil {
		spans = observability.NoopSpanManager{}
	}

	return &Engine{
		bus:        bus,
		store:      cfg.Store,
		logger:     cfg.Logger,
		metrics:    metrics,
		spans:      spans,
		bufferSize: cfg.BufferSize,
	}
}

// AddRule registers a rule. Rule names must be unique within the engine.
func (e *Engine) AddRule(r *Rule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, rs := range e.rules {
		if rs.rule.Name == r.Name {
			return &alerterrors.ConfigError{
				Field:   "name",
				Message: "duplicate rule name: " + r.Name,
			}
		}
	}

	e.rules = append(e.rules, &ruleState{rule: r})
	return nil
}

// RemoveRule unregisters the rule with the given name. Removing an unknown
// name is a no-op.
func (e *Engine) RemoveRule(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, rs := range e.rules {
		if rs.rule.Name == name {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			return
		}
	}
}

// ReplaceRules swaps the full rule set, resetting all counters and
// cooldowns. Used by config hot reload.
func (e *Engine) ReplaceRules(rules []*Rule) error {
	states := make([]*ruleState, 0, len(rules))
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if seen[r.Name] {
			return &alerterrors.ConfigError{
				Field:   "name",
				Message: "duplicate rule name: " + r.Name,
			}
		}
		seen[r.Name] = true
		states = append(states, &ruleState{rule: r})
	}

	e.mu.Lock()
	e.rules = states
	e.mu.Unlock()
	return nil
}

// Rules returns the registered rules in registration order.
func (e *Engine) Rules() []*Rule {
	e.mu.Lock()
	defer e.mu.Unlock()

	rules := make([]*Rule, len(e.rules))
	for i, rs := range e.rules {
		rules[i] = rs.rule
	}
	return rules
}

// AddHandler registers an alert handler. Handlers receive every alert the
// engine produces, concurrently with each other.
func (e *Engine) AddHandler(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, h)
}

// Start subscribes to the bus and begins consuming events. Calling Start on
// a running engine is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.events = make(chan *event.Event, e.bufferSize)

	events := e.events
	// Lowest priority: the monitor observes events after application
	// listeners have run.
	e.sub = e.bus.Subscribe("*", func(_ context.Context, evt *event.Event) error {
		select {
		case events <- evt:
		case <-loopCtx.Done():
		}
		return nil
	}, event.PriorityLowest)

	go e.loop(loopCtx, events, e.done)

	e.running = true
	observability.LogEngineStart(e.logger, len(e.rules), len(e.handlers))
	return nil
}

// Stop cancels the consumption loop and waits for it to finish the event it
// is processing. No events are processed after Stop returns. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	sub, cancel, done := e.sub, e.cancel, e.done
	e.running = false
	e.sub, e.cancel, e.done = nil, nil, nil
	e.mu.Unlock()

	sub.Unsubscribe()
	cancel()
	<-done

	observability.LogEngineStop(e.logger)
}

func (e *Engine) loop(ctx context.Context, events <-chan *event.Event, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			e.process(ctx, evt)
		}
	}
}

// process persists one event and evaluates every rule against it.
func (e *Engine) process(ctx context.Context, evt *event.Event) {
	ctx, span := e.spans.StartEventSpan(ctx, evt.Name, string(evt.Kind))
	defer e.spans.EndSpanWithError(span, nil)

	e.metrics.RecordEventProcessed(ctx, string(evt.Kind))

	if e.store != nil {
		err := e.store.StoreEvent(ctx, evt)
		e.metrics.RecordStoreWrite(ctx, err == nil)
		if err != nil && e.logger != nil {
			perr := &alerterrors.PersistenceError{Op: "store", Err: err}
			e.logger.Warn("event persistence failed", slog.String("error", perr.Error()))
		}
	}

	now := time.Now()

	e.mu.Lock()
	states := make([]*ruleState, len(e.rules))
	copy(states, e.rules)
	e.mu.Unlock()

	for _, rs := range states {
		if alert := e.evaluate(rs, evt, now); alert != nil {
			e.dispatch(ctx, alert)
		}
	}
}

// evaluate runs one rule against one event, returning an alert if the rule
// fired. The cooldown gate runs before the condition: events arriving during
// cooldown are ignored entirely, not counted.
func (e *Engine) evaluate(rs *ruleState, evt *event.Event, now time.Time) *Alert {
	r := rs.rule

	if !r.MatchesKind(evt.Kind) {
		return nil
	}
	if !r.MatchesSource(evt.Source) {
		return nil
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.lastAlert.IsZero() && now.Sub(rs.lastAlert) < r.Cooldown {
		return nil
	}

	if !e.conditionHolds(r, evt) {
		return nil
	}

	rs.count++
	if rs.count < r.Threshold {
		return nil
	}

	rs.count = 0
	rs.lastAlert = now
	return newAlert(r, evt, now)
}

// conditionHolds runs the rule condition, treating a panic as no match.
func (e *Engine) conditionHolds(r *Rule, evt *event.Event) (matched bool) {
	if r.Condition == nil {
		return true
	}
	defer func() {
		if rec := recover(); rec != nil {
			matched = false
			if e.logger != nil {
				e.logger.Error("rule condition panicked",
					slog.String("rule", r.Name),
					slog.String("panic", fmt.Sprint(rec)),
				)
			}
		}
	}()
	return r.Condition(evt)
}

// dispatch persists the alert and fans it out to every handler
// concurrently, waiting for all of them. Handler failures are collected and
// logged, never re-raised.
func (e *Engine) dispatch(ctx context.Context, alert *Alert) {
	if e.store != nil {
		if err := e.store.StoreEvent(ctx, alert.Event()); err != nil && e.logger != nil {
			perr := &alerterrors.PersistenceError{Op: "store", Err: err}
			e.logger.Warn("alert persistence failed",
				slog.String("rule", alert.RuleName),
				slog.String("error", perr.Error()),
			)
		}
	}

	e.metrics.RecordAlert(ctx, alert.RuleName, alert.Level.String())

	e.mu.Lock()
	handlers := make([]Handler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.Unlock()

	start := time.Now()
	var wg sync.WaitGroup
	for _, h := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()

			name := handlerName(h)
			hctx, span := e.spans.StartHandlerSpan(ctx, name)
			t0 := time.Now()
			err := safeHandle(hctx, h, alert)
			e.spans.EndSpanWithError(span, err)
			e.metrics.RecordHandlerDispatch(hctx, name, time.Since(t0), err)

			if err != nil && e.logger != nil {
				herr := &alerterrors.HandlerError{Handler: name, Rule: alert.RuleName, Err: err}
				e.logger.Error("alert handler failed", slog.String("error", herr.Error()))
			}
		}(h)
	}
	wg.Wait()

	observability.LogAlert(e.logger, alert.RuleName, alert.Level.String(), alert.Source,
		len(handlers), time.Since(start))
}

// safeHandle invokes one handler, converting panics into errors.
func safeHandle(ctx context.Context, h Handler, alert *Alert) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.HandleAlert(ctx, alert)
}

// handlerName extracts a name for a handler (for logging/metrics).
func handlerName(h Handler) string {
	return fmt.Sprintf("%T", h)
}
