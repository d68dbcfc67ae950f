package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sns-notify/internal/config"
	"sns-notify/internal/handlers"
	"sns-notify/internal/logging"
	"sns-notify/internal/models"
	"sns-notify/internal/notifier"
	"sns-notify/internal/pipeline"
	"sns-notify/internal/server"
)

// newPublisher builds the shared client handle. Tests replace it.
var newPublisher = func(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (notifier.Publisher, error) {
	if cfg.DryRun {
		logger.Warn().Msg("DRY-RUN MODE ENABLED: messages are logged, not published")
		return notifier.NewDryRunPublisher(logger), nil
	}
	pub, err := notifier.NewSNSPublisher(ctx, notifier.SNSConfig{
		Region:      cfg.Region,
		EndpointURL: cfg.EndpointURL,
	}, logger)
	if err != nil {
		return nil, err
	}
	return pub, nil
}

// run is main without the process globals: it takes the arguments and
// output streams and returns an error instead of exiting.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args[1:])
	return cmd.ExecuteContext(ctx)
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sns-notify [flags] [message]",
		Short: "Publish a message to an SNS topic",
		Long: `sns-notify publishes a plain-text message, with an optional subject,
to a single Amazon SNS topic.

Without -e it publishes the message given as the only argument and exits.
With -e it serves HTTP instead: POST {"message": "...", "subject": "..."}
to any path and the message is published to the configured topic.`,
		Example: `  sns-notify -s "Backup" "nightly backup finished"
  sns-notify -t arn:aws:sns:eu-west-1:123456789012:ops -r eu-west-1 "disk at 91%"
  sns-notify -e --listen 0.0.0.0:3000`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, args, stderr)
		},
	}
	config.BindFlags(cmd.Flags())
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd
}

func execute(cmd *cobra.Command, args []string, stderr io.Writer) error {
	ctx := cmd.Context()

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	logger := logging.New(stderr, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return err
	}

	src := pipeline.Args{Positional: args, Subject: cfg.Subject, SubjectSet: cfg.SubjectSet}
	if !cfg.Server {
		if _, err := src.Normalize(cfg.TopicARN); errors.Is(err, pipeline.ErrUsage) {
			return cmd.Usage()
		}
	}

	publisher, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	p := pipeline.New(publisher, cfg.TopicARN, cfg.PublishTimeout, logger)

	if cfg.Server {
		if len(args) > 0 {
			logger.Warn().Msg("Positional message ignored in server mode")
		}
		return serve(ctx, cfg, p, logger)
	}
	return publishOnce(ctx, p, src, cmd.OutOrStdout())
}

func publishOnce(ctx context.Context, p *pipeline.Pipeline, src pipeline.Args, out io.Writer) error {
	res, err := p.Execute(ctx, src)
	if res.Request != nil {
		fmt.Fprintf(out, "Subject: %s\n", res.Request.SubjectOrEmpty())
		fmt.Fprintf(out, "Message: %s\n", res.Request.Message)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "MessageId: %s\n", res.Ack.MessageID)
	return nil
}

func serve(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, logger zerolog.Logger) error {
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return models.NewError(models.KindConfigurationFailure, "configure", "failed to bind listen address", err)
	}

	opts := server.Options{Listener: ln, ShutdownTimeout: cfg.ShutdownTimeout}
	if cfg.MetricsListen != "" {
		metricsLn, err := net.Listen("tcp", cfg.MetricsListen)
		if err != nil {
			ln.Close()
			return models.NewError(models.KindConfigurationFailure, "configure", "failed to bind metrics address", err)
		}
		opts.MetricsListener = metricsLn
	}

	logger.Info().
		Str("topic_arn", cfg.TopicARN).
		Str("region", cfg.Region).
		Dur("publish_timeout", cfg.PublishTimeout).
		Int64("max_body_bytes", cfg.MaxBodyBytes).
		Msg("Starting sns-notify server")

	router := handlers.NewRouter(handlers.NewPublishHandler(p, cfg.MaxBodyBytes), cfg.CORSOrigins, logger)
	return server.Run(ctx, router, opts, logger)
}
