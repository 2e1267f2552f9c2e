// Package event provides the publish/subscribe core of alertflow.
//
// The package implements:
//   - Event, an immutable timestamped fact with a typed kind and payload data
//   - Priority, which orders listener invocation within one dispatch
//   - Bus, a pub/sub dispatcher with wildcard topic matching, priority
//     ordering, and mid-dispatch propagation control
//
// Dispatch is strictly sequential: listeners for one Publish call run one at
// a time on the calling goroutine, highest priority first. A listener may
// call StopPropagation on the event to halt delivery to the remaining
// listeners of that dispatch. Listener failures are isolated: an error or
// panic is converted into a synthesized error event on TopicListenerError
// and dispatch of the original event continues.
package event
