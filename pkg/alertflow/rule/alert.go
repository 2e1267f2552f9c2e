package rule

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/alertflow/pkg/alertflow/event"
)

// Alert is the output of a rule crossing its threshold. Alerts are created
// once by the engine and must not be mutated by handlers.
type Alert struct {
	ID        string
	RuleName  string
	Level     Level
	Message   string
	Source    string
	Timestamp time.Time

	// Events holds the triggering event. The aggregation counter is not a
	// batch: only the event that crossed the threshold is captured.
	Events []*event.Event

	Context map[string]any
}

// TruncatedMessage returns the message shortened to at most max runes,
// with a trailing ellipsis when truncated.
func (a *Alert) TruncatedMessage(max int) string {
	runes := []rune(a.Message)
	if len(runes) <= max {
		return a.Message
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// Event converts the alert to its persisted event form. The store holds
// alerts as events of kind alert so analytics can query them with the same
// read contract as any other event.
func (a *Alert) Event() *event.Event {
	return &event.Event{
		ID:        a.ID,
		Name:      "alert." + a.RuleName,
		Kind:      event.KindAlert,
		Source:    a.Source,
		Timestamp: a.Timestamp,
		Data: map[string]any{
			"rule_name":   a.RuleName,
			"level":       a.Level.String(),
			"message":     a.Message,
			"event_count": len(a.Events),
			"context":     a.Context,
		},
	}
}

// AlertFromEvent reconstructs an alert from its persisted event form.
// Returns false if evt is not an alert event. The triggering events are not
// round-tripped; analytics only needs the alert's own fields.
func AlertFromEvent(evt *event.Event) (*Alert, bool) {
	if evt.Kind != event.KindAlert {
		return nil, false
	}

	level, err := ParseLevel(evt.String("level"))
	if err != nil {
		return nil, false
	}

	ctx, _ := evt.Data["context"].(map[string]any)

	return &Alert{
		ID:        evt.ID,
		RuleName:  evt.String("rule_name"),
		Level:     level,
		Message:   evt.String("message"),
		Source:    evt.Source,
		Timestamp: evt.Timestamp,
		Context:   ctx,
	}, true
}

// newAlert builds an alert for a rule firing on the triggering event.
func newAlert(r *Rule, trigger *event.Event, now time.Time) *Alert {
	return &Alert{
		ID:        uuid.New().String(),
		RuleName:  r.Name,
		Level:     r.Level,
		Message:   r.Description,
		Source:    trigger.Source,
		Timestamp: now,
		Events:    []*event.Event{trigger},
		Context:   make(map[string]any),
	}
}

// Handler receives fired alerts. Handlers must not mutate the alert; a
// returned error is logged by the engine and never blocks delivery to other
// handlers.
type Handler interface {
	HandleAlert(ctx context.Context, alert *Alert) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, alert *Alert) error

// HandleAlert implements Handler.
func (f HandlerFunc) HandleAlert(ctx context.Context, alert *Alert) error {
	return f(ctx, alert)
}
