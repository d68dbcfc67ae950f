package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sns-notify/internal/models"
)

// Flag names, also used as config file keys. Environment variables use the
// EnvPrefix and underscores, e.g. SNS_NOTIFY_TOPIC_ARN.
const (
	FlagRegion          = "region"
	FlagTopicARN        = "topic-arn"
	FlagSubject         = "subject"
	FlagServer          = "server"
	FlagListen          = "listen"
	FlagPublishTimeout  = "publish-timeout"
	FlagShutdownTimeout = "shutdown-timeout"
	FlagMaxBodyBytes    = "max-body-bytes"
	FlagEndpointURL     = "endpoint-url"
	FlagMetricsListen   = "metrics-listen"
	FlagCORSOrigins     = "cors-origins"
	FlagLogLevel        = "log-level"
	FlagConfigFile      = "config"
	FlagDryRun          = "dry-run"

	EnvPrefix = "SNS_NOTIFY"
)

const (
	DefaultRegion   = "us-east-2"
	DefaultTopicARN = "arn:aws:sns:us-east-2:250463611689:email-me"
	DefaultListen   = "127.0.0.1:3000"

	// SNS accepts messages up to 256 KiB; the extra room covers JSON framing and the subject.
	DefaultMaxBodyBytes = 256*1024 + 4096
)

var regionPattern = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-[0-9]+$`)

// Config represents the process configuration for both modes.
type Config struct {
	// Region is the AWS region of the SNS topic
	Region string

	// TopicARN is the only destination; requests can never override it
	TopicARN string

	// Subject is the CLI subject; SubjectSet distinguishes "" from unset
	Subject    string
	SubjectSet bool

	// Server switches to the long-running HTTP mode
	Server bool

	// Listen is the service-mode bind address
	Listen string

	// PublishTimeout bounds a single publish call (0 disables it)
	PublishTimeout time.Duration

	// ShutdownTimeout bounds the graceful drain of in-flight requests
	ShutdownTimeout time.Duration

	// MaxBodyBytes caps the HTTP request body
	MaxBodyBytes int64

	EndpointURL   string
	MetricsListen string
	CORSOrigins   []string
	LogLevel      string
	DryRun        bool
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Region:          DefaultRegion,
		TopicARN:        DefaultTopicARN,
		Listen:          DefaultListen,
		PublishTimeout:  10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    DefaultMaxBodyBytes,
		CORSOrigins:     []string{},
		LogLevel:        "info",
	}
}

// BindFlags defines every configuration flag on fs with its default.
func BindFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()

	fs.StringP(FlagRegion, "r", d.Region, "AWS region of the SNS topic")
	fs.StringP(FlagTopicARN, "t", d.TopicARN, "Topic ARN")
	fs.StringP(FlagSubject, "s", "", "Subject")
	fs.BoolP(FlagServer, "e", false, "Serve requests continuously")
	fs.String(FlagListen, d.Listen, "Address to listen on in server mode")
	fs.Duration(FlagPublishTimeout, d.PublishTimeout, "Timeout for a single publish (0 disables)")
	fs.Duration(FlagShutdownTimeout, d.ShutdownTimeout, "Time allowed for in-flight requests on shutdown")
	fs.Int64(FlagMaxBodyBytes, d.MaxBodyBytes, "Maximum HTTP request body size in bytes")
	fs.String(FlagEndpointURL, "", "Custom SNS endpoint URL (e.g. LocalStack)")
	fs.String(FlagMetricsListen, "", "Address for the Prometheus /metrics listener (disabled when empty)")
	fs.StringSlice(FlagCORSOrigins, d.CORSOrigins, "Allowed CORS origins for the publish route")
	fs.String(FlagLogLevel, d.LogLevel, "Log level (trace, debug, info, warn, error)")
	fs.String(FlagConfigFile, "", "Path to an optional YAML config file")
	fs.Bool(FlagDryRun, false, "Log messages instead of publishing them")
}

// Load resolves the configuration from, in order of precedence, explicitly
// set flags, SNS_NOTIFY_* environment variables, the optional config file,
// and flag defaults. fs must have been set up with BindFlags and parsed.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, configError("failed to bind flags", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString(FlagConfigFile); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, configError(fmt.Sprintf("failed to read config file %q", path), err)
		}
	}

	return &Config{
		Region:          v.GetString(FlagRegion),
		TopicARN:        v.GetString(FlagTopicARN),
		Subject:         v.GetString(FlagSubject),
		SubjectSet:      v.IsSet(FlagSubject),
		Server:          v.GetBool(FlagServer),
		Listen:          v.GetString(FlagListen),
		PublishTimeout:  v.GetDuration(FlagPublishTimeout),
		ShutdownTimeout: v.GetDuration(FlagShutdownTimeout),
		MaxBodyBytes:    v.GetInt64(FlagMaxBodyBytes),
		EndpointURL:     v.GetString(FlagEndpointURL),
		MetricsListen:   v.GetString(FlagMetricsListen),
		CORSOrigins:     v.GetStringSlice(FlagCORSOrigins),
		LogLevel:        v.GetString(FlagLogLevel),
		DryRun:          v.GetBool(FlagDryRun),
	}, nil
}

// Validate reports a configuration failure for settings that can never work.
func (c *Config) Validate() error {
	if !regionPattern.MatchString(c.Region) {
		return configError(fmt.Sprintf("invalid region %q", c.Region), nil)
	}
	if c.TopicARN == "" {
		return configError("topic ARN must not be empty", nil)
	}
	if c.Server && c.Listen == "" {
		return configError("listen address must not be empty in server mode", nil)
	}
	if c.PublishTimeout < 0 {
		return configError("publish timeout must not be negative", nil)
	}
	if c.ShutdownTimeout < 0 {
		return configError("shutdown timeout must not be negative", nil)
	}
	if c.MaxBodyBytes <= 0 {
		return configError("max body bytes must be positive", nil)
	}
	return nil
}

func configError(msg string, err error) error {
	return models.NewError(models.KindConfigurationFailure, "configure", msg, err)
}
