package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog"

	"sns-notify/internal/models"
)

// PublishAPI is the part of *sns.Client used by SNSPublisher.
type PublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSConfig holds what is needed to build the SNS client.
type SNSConfig struct {
	Region string
	// EndpointURL overrides the SNS endpoint, e.g. for LocalStack. Empty uses the default.
	EndpointURL string
}

// SNSPublisher implements Publisher on top of Amazon SNS.
// It holds no mutable state and is shared by all requests.
type SNSPublisher struct {
	api    PublishAPI
	logger zerolog.Logger
}

// NewSNSPublisher resolves credentials through the default AWS chain and
// builds a client that never retries. Failures are configuration failures.
func NewSNSPublisher(ctx context.Context, cfg SNSConfig, logger zerolog.Logger) (*SNSPublisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	)
	if err != nil {
		return nil, models.NewError(models.KindConfigurationFailure, "configure", "failed to load AWS configuration", err)
	}

	if awsCfg.Credentials == nil {
		return nil, models.NewError(models.KindConfigurationFailure, "configure", "no AWS credentials provider configured", nil)
	}
	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil {
		return nil, models.NewError(models.KindConfigurationFailure, "configure", "no usable AWS credentials", err)
	}

	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
	})

	logger.Info().
		Str("region", cfg.Region).
		Str("endpoint_url", cfg.EndpointURL).
		Str("credentials_source", creds.Source).
		Msg("SNS publisher initialized")

	return NewSNSPublisherWithAPI(client, logger), nil
}

// NewSNSPublisherWithAPI wraps an existing client.
func NewSNSPublisherWithAPI(api PublishAPI, logger zerolog.Logger) *SNSPublisher {
	return &SNSPublisher{
		api:    api,
		logger: logger.With().Str("component", "SNSPublisher").Logger(),
	}
}

// Publish sends the message with only Message, Subject and TopicArn set.
func (p *SNSPublisher) Publish(ctx context.Context, req models.PublishRequest) (*models.Acknowledgment, error) {
	if req.Topic == "" {
		return nil, errors.New("publish request has no topic")
	}

	out, err := p.api.Publish(ctx, buildPublishInput(req))
	if err != nil {
		p.logger.Debug().Err(err).Str("topic_arn", req.Topic).Msg("SNS publish failed")
		return nil, fmt.Errorf("sns publish: %w", err)
	}

	ack := &models.Acknowledgment{
		MessageID:      aws.ToString(out.MessageId),
		SequenceNumber: aws.ToString(out.SequenceNumber),
	}
	p.logger.Debug().Str("topic_arn", req.Topic).Str("message_id", ack.MessageID).Msg("SNS publish succeeded")
	return ack, nil
}

func buildPublishInput(req models.PublishRequest) *sns.PublishInput {
	input := &sns.PublishInput{
		Message:  aws.String(req.Message),
		TopicArn: aws.String(req.Topic),
	}
	if req.Subject != nil {
		input.Subject = aws.String(*req.Subject)
	}
	return input
}
