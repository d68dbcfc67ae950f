package pipeline

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"sns-notify/internal/models"
)

// ErrUsage is returned by Args.Normalize when no message was given on the
// command line. It is a request to print usage, not a failure.
var ErrUsage = errors.New("no message given")

// Source is an inbound request that can be turned into a PublishRequest.
// The topic always comes from configuration, never from the source.
type Source interface {
	Normalize(topic string) (models.PublishRequest, error)
}

// Args is a command-line invocation.
type Args struct {
	Positional []string
	Subject    string
	SubjectSet bool
}

func (a Args) Normalize(topic string) (models.PublishRequest, error) {
	if len(a.Positional) == 0 {
		return models.PublishRequest{}, ErrUsage
	}

	req := models.PublishRequest{Message: a.Positional[0], Topic: topic}
	if a.SubjectSet {
		subject := a.Subject
		req.Subject = &subject
	}
	return req, nil
}

// JSONBody is an HTTP request body. Size limits are applied by the caller,
// typically with http.MaxBytesReader.
type JSONBody struct {
	Body io.Reader
}

type jsonPayload struct {
	Message *string `json:"message"`
	Subject *string `json:"subject"`
}

func (b JSONBody) Normalize(topic string) (models.PublishRequest, error) {
	if b.Body == nil {
		return models.PublishRequest{}, models.NewError(models.KindSerializationFailure, "normalize", "request body is empty", nil)
	}

	data, err := io.ReadAll(b.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return models.PublishRequest{}, models.NewError(models.KindInvalidInput, "normalize", "request body too large", err)
		}
		return models.PublishRequest{}, models.NewError(models.KindTransportFailure, "normalize", "failed to read request body", err)
	}

	var payload jsonPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return models.PublishRequest{}, models.NewError(models.KindSerializationFailure, "normalize", "invalid JSON body", err)
	}
	if payload.Message == nil {
		return models.PublishRequest{}, models.NewError(models.KindSerializationFailure, "normalize", "missing field `message`", nil)
	}

	return models.PublishRequest{
		Message: *payload.Message,
		Subject: payload.Subject,
		Topic:   topic,
	}, nil
}
