package notifier

import (
	"context"

	"sns-notify/internal/models"
)

// Publisher sends one message to a topic and returns the provider's
// acknowledgment. Implementations must be safe for concurrent use and make
// exactly one remote attempt per call.
type Publisher interface {
	Publish(ctx context.Context, req models.PublishRequest) (*models.Acknowledgment, error)
}
