package pubsub

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// ClosedMsg is delivered once when a listener's subscription ends.
type ClosedMsg struct{}

// ListenCmd waits for the next event on ch and returns it as a tea.Msg.
// It returns ClosedMsg when ch is closed and nil when ctx is done.
func ListenCmd[T any](ctx context.Context, ch <-chan Event[T]) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return ClosedMsg{}
			}
			return event
		}
	}
}

// ContinuousListener keeps one subscription open across Update calls.
// Call Listen again after handling each event.
type ContinuousListener[T any] struct {
	ctx context.Context
	ch  <-chan Event[T]
}

// NewContinuousListener subscribes through subscribe for the lifetime of
// ctx.
func NewContinuousListener[T any](ctx context.Context, subscribe SubscribeFunc[T]) *ContinuousListener[T] {
	return &ContinuousListener[T]{
		ctx: ctx,
		ch:  subscribe(ctx),
	}
}

// Listen returns a tea.Cmd that waits for the next event.
func (l *ContinuousListener[T]) Listen() tea.Cmd {
	return ListenCmd(l.ctx, l.ch)
}
