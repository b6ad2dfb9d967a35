// Package pubsub fans out reload notifications to the pager and any
// other listener.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	CreatedEvent EventType = "created"
	UpdatedEvent EventType = "updated"
	// FailedEvent reports a reload that could not be applied; the
	// previous value stays in use.
	FailedEvent EventType = "failed"
)

// Event is one published notification. Seq increases by one per Publish
// on the same broker, so a subscriber can tell when it missed events.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Seq       uint64
	Timestamp time.Time
}

// SubscribeFunc opens a subscription that ends when ctx is done.
type SubscribeFunc[T any] func(ctx context.Context) <-chan Event[T]

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
