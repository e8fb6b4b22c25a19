package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/alnah/go-clipper/internal/apierr"
	"github.com/alnah/go-clipper/internal/clip"
	"github.com/alnah/go-clipper/internal/ingest"
	"github.com/alnah/go-clipper/internal/media"
	"github.com/alnah/go-clipper/internal/planner"
	"github.com/alnah/go-clipper/internal/store"
	"github.com/alnah/go-clipper/internal/transcribe"
	"github.com/alnah/go-clipper/internal/transcript"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Hint  string `json:"hint,omitempty"`
}

// problem is how one class of error is reported to clients.
type problem struct {
	target error
	status int
	kind   string
	hint   string
}

// problems is checked in order; the first errors.Is match wins.
var problems = []problem{
	{ingest.ErrTooLarge, http.StatusRequestEntityTooLarge, "too_large", "Uploads are limited in size; trim or compress the recording."},
	{ingest.ErrInvalidType, http.StatusUnsupportedMediaType, "invalid_type", ""}, // hint depends on the route
	{ingest.ErrInvalidUpload, http.StatusBadRequest, "invalid_upload", "Send multipart/form-data with exactly one file part."},
	{ingest.ErrStream, http.StatusBadRequest, "stream", "The upload was interrupted; retry it."},
	{clip.ErrInvalidPlan, http.StatusBadRequest, "invalid_plan", `The plan field must be {"clips": [...]} or a JSON array of clips.`},
	{errInvalidField, http.StatusBadRequest, "invalid_field", ""},
	{media.ErrProbe, http.StatusUnprocessableEntity, "probe", "The file could not be read as media; check it plays locally."},
	{media.ErrExtraction, http.StatusUnprocessableEntity, "extraction", "No usable audio track was found in the file."},
	{transcript.ErrInvalidPlan, http.StatusUnprocessableEntity, "invalid_duration", "The media reports an unusable duration."},
	{planner.ErrNoClips, http.StatusUnprocessableEntity, "no_clips", "No clip-worthy moment was found; send an explicit plan."},
	{planner.ErrEmptyTranscript, http.StatusUnprocessableEntity, "no_speech", "No speech was recognized in the recording."},
	{planner.ErrTranscriptTooLong, http.StatusUnprocessableEntity, "too_long", "The transcript is too long to plan clips from; send an explicit plan."},
	{transcribe.ErrOperationTimeout, http.StatusGatewayTimeout, "timeout", "The recording took too long to process; try a shorter one."},
	{clip.ErrOperationTimeout, http.StatusGatewayTimeout, "timeout", "Cutting took too long; ask for fewer or shorter clips."},
	{apierr.ErrAuthFailed, http.StatusBadGateway, "service_auth", "The server's transcription credentials were rejected."},
	{apierr.ErrQuotaExceeded, http.StatusBadGateway, "service_quota", "The transcription service quota is exhausted."},
	{apierr.ErrRateLimit, http.StatusServiceUnavailable, "service_busy", "The transcription service is rate limiting; retry shortly."},
	{transcribe.ErrTranscriptionService, http.StatusBadGateway, "transcription_service", "The transcription service failed; retry later."},
	{store.ErrNotFound, http.StatusNotFound, "not_found", ""},
	{store.ErrUnavailable, http.StatusServiceUnavailable, "storage", ""},
	{context.Canceled, http.StatusServiceUnavailable, "canceled", ""},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout", ""},
}

// classify maps err to its problem. Unknown errors are internal.
func classify(err error) problem {
	for _, p := range problems {
		if errors.Is(err, p.target) {
			return p
		}
	}
	return problem{status: http.StatusInternalServerError, kind: "internal"}
}

// errorHandler renders errors returned by handlers as errorBody JSON.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		body := errorBody{Error: http.StatusText(he.Code), Kind: "http"}
		if msg, ok := he.Message.(string); ok {
			body.Error = msg
		}
		_ = c.JSON(he.Code, body)
		return
	}

	p := classify(err)
	if p.target == ingest.ErrInvalidType {
		p.hint = s.typeHint(c)
	}
	msg := err.Error()
	if p.status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
		msg = http.StatusText(http.StatusInternalServerError)
	}
	_ = c.JSON(p.status, errorBody{Error: msg, Kind: p.kind, Hint: p.hint})
}

// typeHint names the Content-Types accepted by the request's route.
func (s *Server) typeHint(c echo.Context) string {
	in := s.mediaIn
	if c.Path() == routeClips {
		in = s.videoIn
	}
	types := in.AllowedTypes()
	for i, t := range types {
		types[i] = t + "*"
	}
	return "Send the file part with Content-Type " + strings.Join(types, " or ") + "."
}
