/*
Package event provides a type-safe, pub/sub event system used to decouple
an operation's progress from whoever needs to observe it: a headless CLI
command printing deltas, a gRPC stream relaying them to a remote client,
or the approval coordinator waiting on a user decision.

# Architecture

The bus dispatches directly to registered subscriber functions, keyed by
EventType plus a global catch-all, preserving each event's concrete Data
type end to end. It provides both synchronous and asynchronous event
publishing patterns.

# Event Types

File Events:
  - file.edited: File was modified

Todo Events:
  - todo.updated: A session's todo list changed

Tool Approval Events:
  - tool.approval_requested: A tool call is awaiting a decision
  - tool.approval_granted: A session-scoped approval was recorded
  - tool.approval_resolved: The pending decision (any outcome) resolved
  - tool.finished: A tool call completed, successfully or not

Permission Events (declared for future use; not currently published):
  - permission.required
  - permission.resolved

# Basic Usage

Publishing events:

	// Asynchronous publishing (non-blocking)
	event.Publish(event.Event{
		Type: event.TodoUpdated,
		Data: map[string]any{"session_id": sid, "todos": todos},
	})

	// Synchronous publishing (blocking until all subscribers complete)
	event.PublishSync(event.Event{
		Type: event.ToolApprovalRequested,
		Data: approval.Request{SessionID: sid, ToolName: "bash"},
	})

Subscribing to specific events:

	unsubscribe := event.Subscribe(event.ToolApprovalRequested, func(e event.Event) {
		req := e.Data.(approval.Request)
		log.Info("approval requested", "tool", req.ToolName)
	})
	defer unsubscribe()

Subscribing to all events:

	unsubscribe := event.SubscribeAll(func(e event.Event) {
		log.Debug("event received", "type", e.Type)
	})
	defer unsubscribe()

# Subscriber Safety Guidelines

When using PublishSync, subscribers are called synchronously in the publisher's
goroutine. To avoid blocking or deadlocks, subscribers MUST:

  - Complete quickly (avoid long-running operations)
  - Use non-blocking channel sends (select with default case)
  - Never call Publish/PublishSync from within a subscriber (no re-entrant publishing)
  - Never acquire locks that the publisher might hold

Example of a safe subscriber:

	event.SubscribeAll(func(e event.Event) {
	    select {
	    case eventChan <- e:
	        // Event sent successfully
	    default:
	        // Channel full, drop event to avoid blocking
	        log.Warn("Event dropped due to full channel", "type", e.Type)
	    }
	})

# Custom Event Bus

For testing or isolation, you can create custom bus instances:

	bus := event.NewBus()
	defer bus.Close()

	unsubscribe := bus.Subscribe(event.FileEdited, handler)
	bus.PublishSync(event.Event{Type: event.FileEdited, Data: data})

# Testing

The package provides utilities for testing:

	// Reset global bus state (use in test cleanup)
	event.Reset()

# Thread Safety

The event bus is thread-safe and can be used concurrently from multiple goroutines.
Both publishing and subscribing operations are protected by internal synchronization.

# Performance Considerations

- Asynchronous publishing (Publish) creates a goroutine per subscriber per event
- Synchronous publishing (PublishSync) calls all subscribers in the current goroutine
- Use PublishSync for critical events where ordering matters
- Use Publish for fire-and-forget notifications
- Consider subscriber performance impact on PublishSync calls

*/
package event
