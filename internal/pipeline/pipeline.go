package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"sns-notify/internal/models"
	"sns-notify/internal/notifier"
)

// Result is what a pipeline execution produced. Request is nil when
// normalization failed; Ack is nil unless the publish succeeded.
type Result struct {
	Request *models.PublishRequest
	Ack     *models.Acknowledgment
}

// Pipeline turns a Source into exactly one publish. It is safe for
// concurrent use: all fields are read-only after New.
type Pipeline struct {
	publisher notifier.Publisher
	topic     string
	timeout   time.Duration
	logger    zerolog.Logger
}

// New creates a pipeline publishing to topic. A timeout of zero disables
// the per-publish deadline.
func New(publisher notifier.Publisher, topic string, timeout time.Duration, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		publisher: publisher,
		topic:     topic,
		timeout:   timeout,
		logger:    logger.With().Str("component", "Pipeline").Logger(),
	}
}

// Execute normalizes src, validates it, and publishes it. Errors other than
// ErrUsage are *models.PipelineError.
func (p *Pipeline) Execute(ctx context.Context, src Source) (*Result, error) {
	res := &Result{}

	req, err := src.Normalize(p.topic)
	if err != nil {
		if errors.Is(err, ErrUsage) {
			return res, err
		}
		return res, p.fail(classifyNormalize(err))
	}
	res.Request = &req

	if err := validate(req); err != nil {
		return res, p.fail(err)
	}

	ack, perr := p.publish(ctx, req)
	if perr != nil {
		return res, p.fail(perr)
	}
	res.Ack = ack

	publishTotal.WithLabelValues(outcomeSuccess).Inc()
	p.logger.Info().
		Str("topic_arn", req.Topic).
		Str("subject", req.SubjectOrEmpty()).
		Str("message_id", ack.MessageID).
		Msg("Message published")
	return res, nil
}

func (p *Pipeline) publish(ctx context.Context, req models.PublishRequest) (*models.Acknowledgment, *models.PipelineError) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	ack, err := p.publisher.Publish(ctx, req)
	publishDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, classify(err)
	}
	if ack == nil {
		ack = &models.Acknowledgment{}
	}
	return ack, nil
}

func (p *Pipeline) fail(pe *models.PipelineError) error {
	publishTotal.WithLabelValues(pe.Kind.String()).Inc()

	ev := p.logger.Warn()
	if pe.Kind == models.KindTransportFailure || pe.Kind == models.KindProviderRejected {
		ev = p.logger.Error()
	}
	ev.Err(pe).
		Str("kind", pe.Kind.String()).
		Str("op", pe.Op).
		Str("code", pe.Code).
		Int("provider_status", pe.StatusCode).
		Msg("Publish pipeline failed")
	return pe
}

// validate rejects empty messages in every mode.
func validate(req models.PublishRequest) *models.PipelineError {
	if req.Message == "" {
		return models.NewError(models.KindInvalidInput, "validate", "message must not be empty", nil)
	}
	if req.Topic == "" {
		return models.NewError(models.KindConfigurationFailure, "validate", "no topic configured", nil)
	}
	return nil
}

func classifyNormalize(err error) *models.PipelineError {
	var pe *models.PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	return models.NewError(models.KindInvalidInput, "normalize", "", err)
}
