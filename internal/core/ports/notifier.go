package ports

import "context"

// Notifier sends account emails. Implementations may be disabled and
// silently succeed.
type Notifier interface {
	SendWelcome(ctx context.Context, toEmail, toName string) error
}
