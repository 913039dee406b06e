package audit

import "context"

// Sink persists or forwards audit events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
