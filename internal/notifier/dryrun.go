package notifier

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sns-notify/internal/models"
)

// DryRunPublisher implements Publisher by logging the request instead of
// sending it. Every call is acknowledged with a fresh random message id.
type DryRunPublisher struct {
	logger zerolog.Logger
}

func NewDryRunPublisher(logger zerolog.Logger) *DryRunPublisher {
	return &DryRunPublisher{
		logger: logger.With().Str("component", "DryRunPublisher").Logger(),
	}
}

func (p *DryRunPublisher) Publish(ctx context.Context, req models.PublishRequest) (*models.Acknowledgment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ack := &models.Acknowledgment{MessageID: uuid.New().String()}
	p.logger.Info().
		Str("topic_arn", req.Topic).
		Str("subject", req.SubjectOrEmpty()).
		Int("message_bytes", len(req.Message)).
		Str("message_id", ack.MessageID).
		Msg("Dry run, message not sent")
	return ack, nil
}
