// Package notify delivers alerts to the console and to outbound webhooks.
package notify

import (
	"context"

	"post-sniper/internal/domain"
)

// Sender is one outbound alert channel.
type Sender interface {
	// Send delivers one alert.
	Send(ctx context.Context, alert domain.Alert) error
	// Name returns an identifier for logs and metrics (e.g. "discord").
	Name() string
}
