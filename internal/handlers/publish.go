package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"sns-notify/internal/models"
	"sns-notify/internal/pipeline"
)

type PublishHandler struct {
	pipeline     *pipeline.Pipeline
	maxBodyBytes int64
}

func NewPublishHandler(p *pipeline.Pipeline, maxBodyBytes int64) *PublishHandler {
	return &PublishHandler{
		pipeline:     p,
		maxBodyBytes: maxBodyBytes,
	}
}

// ErrorResponse is the body of every failed publish.
type ErrorResponse struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// --- POST /* ---

func (h *PublishHandler) Publish(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	// The request context is canceled when the client goes away, which
	// aborts the in-flight publish.
	res, err := h.pipeline.Execute(r.Context(), pipeline.JSONBody{Body: body})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res.Ack)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := pipeline.HTTPStatus(err)
	kind := models.KindOf(err)

	if r.Context().Err() != nil {
		// Nobody is left to read the response.
		hlog.FromRequest(r).Debug().Err(err).Msg("Client gone before publish completed")
		return
	}

	writeJSON(w, status, ErrorResponse{
		Message: err.Error(),
		Kind:    kind.String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
