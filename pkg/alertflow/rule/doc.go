// Package rule implements the alert rule engine.
//
// The Engine consumes the event stream from an event.Bus, evaluates every
// registered Rule against each event, and on threshold crossing produces an
// Alert that fans out to all registered Handlers concurrently. Each rule
// carries its own aggregation counter and cooldown clock, owned by the
// engine's evaluation path.
//
// A rule refuses to refire until its cooldown has elapsed; events arriving
// during cooldown are silently ignored for that rule, not queued or counted.
// The aggregation threshold counts matching events since the last firing
// with no time bound: a rule with threshold 5 fires on the fifth matching
// event ever received, however spread out those events were. The Window
// field is carried for configuration compatibility but is not enforced.
package rule
