// Package sinks delivers normalized status updates to their destinations:
// the application-status store, the searchable status history, and the
// applicant notification channel.
package sinks

import (
	"context"

	"uniapply/internal/canonical"
)

// StatusSink persists a normalized status update.
type StatusSink interface {
	Apply(ctx context.Context, update *canonical.Update) error
}

// NotificationSink tells the applicant about a status change.
type NotificationSink interface {
	Notify(ctx context.Context, update *canonical.Update) error
}
