package pipeline

import (
	"context"
	"errors"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"sns-notify/internal/models"
)

// classify maps an error returned by a Publisher onto the error taxonomy.
// A structured API error means SNS answered and declined; everything else
// means the request never got a usable answer.
func classify(err error) *models.PipelineError {
	var pe *models.PipelineError
	if errors.As(err, &pe) {
		return pe
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		out := &models.PipelineError{
			Kind: models.KindProviderRejected,
			Op:   "publish",
			Code: apiErr.ErrorCode(),
			Msg:  apiErr.ErrorMessage(),
			Err:  err,
		}
		if out.Msg == "" {
			out.Msg = "SNS rejected the publish"
		}
		var respErr *awshttp.ResponseError
		if errors.As(err, &respErr) {
			out.StatusCode = respErr.HTTPStatusCode()
		}
		return out
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &models.PipelineError{
			Kind:    models.KindTransportFailure,
			Op:      "publish",
			Timeout: true,
			Msg:     "publish timed out",
			Err:     err,
		}
	}

	msg := "could not reach SNS"
	if errors.Is(err, context.Canceled) {
		msg = "publish canceled"
	}
	return &models.PipelineError{
		Kind: models.KindTransportFailure,
		Op:   "publish",
		Msg:  msg,
		Err:  err,
	}
}

// HTTPStatus returns the response status for a pipeline error.
func HTTPStatus(err error) int {
	var pe *models.PipelineError
	if !errors.As(err, &pe) {
		return http.StatusInternalServerError
	}

	switch pe.Kind {
	case models.KindInvalidInput:
		var tooLarge *http.MaxBytesError
		if errors.As(pe, &tooLarge) {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case models.KindSerializationFailure:
		return http.StatusBadRequest
	case models.KindTransportFailure:
		if pe.Timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case models.KindProviderRejected:
		if pe.Code == "Throttling" || pe.Code == "ThrottlingException" || pe.StatusCode == http.StatusTooManyRequests {
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
