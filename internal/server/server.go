// Package server exposes the transcription and clip pipeline over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/alnah/go-clipper/internal/clip"
	"github.com/alnah/go-clipper/internal/ingest"
	"github.com/alnah/go-clipper/internal/lang"
	"github.com/alnah/go-clipper/internal/media"
	"github.com/alnah/go-clipper/internal/planner"
	"github.com/alnah/go-clipper/internal/store"
	"github.com/alnah/go-clipper/internal/transcribe"
	"github.com/alnah/go-clipper/internal/transcript"
)

// Form fields understood by the upload endpoints.
const (
	FieldFormat     = "format"     // json (default), text or srt
	FieldPlan       = "plan"       // clip plan JSON
	FieldTranscript = "transcript" // transcript JSON as returned by /v1/transcriptions
	FieldCount      = "count"      // clips to generate when no plan is sent
	FieldLanguage   = "language"   // language for generated titles
)

// Response headers of text and srt transcriptions, which carry no JSON envelope.
const (
	HeaderTranscriptID  = "X-Transcript-ID"
	HeaderPartial       = "X-Transcript-Partial" // "true" when chunks were skipped
	HeaderChunks        = "X-Chunks"
	HeaderSkippedChunks = "X-Skipped-Chunks"
)

// errInvalidField indicates a malformed form field.
var errInvalidField = errors.New("invalid form field")

// Routes.
const (
	routeTranscriptions = "/v1/transcriptions"
	routeClips          = "/v1/clips"
)

// readHeaderTimeout bounds slow-header clients; bodies are bounded by the ingestor.
const readHeaderTimeout = 30 * time.Second

// Transcriber turns a media file into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath string) (transcript.Transcript, error)
}

// Cutter cuts clips from a video.
type Cutter interface {
	CutClips(ctx context.Context, videoPath string, reqs []clip.Request, outDir string) ([]clip.Result, error)
}

// Compile-time interface compliance checks.
var (
	_ Transcriber = (*transcribe.Pipeline)(nil)
	_ Cutter      = (*clip.Cutter)(nil)
)

// Config holds server settings. Zero fields take defaults.
type Config struct {
	WorkDir        string // parent of per-request workspaces
	OutputDir      string // where clips are written
	MaxUploadBytes int64
	ClipCount      int // clips generated when a request carries no plan

	// OperationTimeout bounds one clip request from planning to the last cut.
	OperationTimeout time.Duration
	Logger           *slog.Logger
}

// Deps are the pipeline stages the server drives. Planner and Store are
// optional: without a planner, /v1/clips requires a plan; without a store,
// nothing is persisted and lookups return 404.
type Deps struct {
	Transcriber Transcriber
	Cutter      Cutter
	Planner     planner.Planner
	Store       store.Recorder
}

// Server routes HTTP requests to the pipeline.
type Server struct {
	cfg     Config
	deps    Deps
	echo    *echo.Echo
	mediaIn *ingest.Ingestor // audio or video, for transcriptions
	videoIn *ingest.Ingestor // video only, for clips
	logger  *slog.Logger
}

// New builds a Server and registers its routes.
func New(cfg Config, deps Deps) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.ClipCount <= 0 {
		cfg.ClipCount = planner.DefaultClipCount
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = clip.DefaultOperationTimeout
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		echo:   echo.New(),
		logger: cfg.Logger,
	}
	s.mediaIn = ingest.New(ingest.Config{MaxBytes: cfg.MaxUploadBytes, Logger: cfg.Logger})
	s.videoIn = ingest.New(ingest.Config{
		MaxBytes:     cfg.MaxUploadBytes,
		AllowedTypes: []string{"video/"},
		Logger:       cfg.Logger,
	})

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler
	e.Server.ReadHeaderTimeout = readHeaderTimeout

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info("request",
				"id", v.RequestID, "method", v.Method, "uri", v.URI,
				"status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	e.GET("/healthz", s.health)
	e.POST(routeTranscriptions, s.createTranscription)
	e.GET(routeTranscriptions+"/:id", s.getTranscription)
	e.POST(routeClips, s.createClips)

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// transcriptionResponse is the JSON body of POST /v1/transcriptions.
type transcriptionResponse struct {
	ID         string                `json:"id,omitempty"`
	Partial    bool                  `json:"partial"`
	Transcript transcript.Transcript `json:"transcript"`
}

func (s *Server) createTranscription(c echo.Context) error {
	ctx := c.Request().Context()
	ws, up, err := s.receive(c, s.mediaIn)
	if err != nil {
		return err
	}
	defer s.closeWorkspace(ws)

	format := strings.ToLower(strings.TrimSpace(up.Fields[FieldFormat]))
	if format == "" {
		format = transcript.FormatJSON
	}
	if !transcript.IsFormat(format) {
		return fmt.Errorf("%w: format %q (use json, text or srt)", errInvalidField, format)
	}

	tr, err := s.deps.Transcriber.Transcribe(ctx, up.File.Path)
	if err != nil {
		return err
	}

	var id string
	if s.deps.Store != nil {
		if id, err = s.deps.Store.SaveTranscript(ctx, up.Filename, tr); err != nil {
			s.logger.Warn("transcript not stored", "error", err)
		}
	}

	if format != transcript.FormatJSON {
		var buf bytes.Buffer
		if err := transcript.Write(&buf, tr, format); err != nil {
			return err
		}
		h := c.Response().Header()
		if id != "" {
			h.Set(HeaderTranscriptID, id)
		}
		// Text bodies have nowhere else to say that chunks are missing.
		h.Set(HeaderPartial, strconv.FormatBool(tr.Partial()))
		h.Set(HeaderChunks, strconv.Itoa(tr.Chunks))
		h.Set(HeaderSkippedChunks, strconv.Itoa(tr.Skipped))
		return c.Blob(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
	}
	return c.JSON(http.StatusOK, transcriptionResponse{ID: id, Partial: tr.Partial(), Transcript: tr})
}

func (s *Server) getTranscription(c echo.Context) error {
	if s.deps.Store == nil {
		return fmt.Errorf("transcript %s: %w", c.Param("id"), store.ErrNotFound)
	}
	rec, err := s.deps.Store.Transcript(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// clipsResponse is the JSON body of POST /v1/clips.
type clipsResponse struct {
	TranscriptID string        `json:"transcript_id,omitempty"`
	Requested    int           `json:"requested"`
	Clips        []clip.Result `json:"clips"`
}

// createClips cuts clips from the uploaded video. The clip list comes from
// the plan field if present; otherwise it is generated by the planner from
// the transcript field, or from a fresh transcription of the upload.
// Planning and cutting share one OperationTimeout.
func (s *Server) createClips(c echo.Context) error {
	ctx := c.Request().Context()
	ws, up, err := s.receive(c, s.videoIn)
	if err != nil {
		return err
	}
	defer s.closeWorkspace(ws)

	var (
		reqs         []clip.Request
		transcriptID string
		results      []clip.Result
	)
	err = clip.WithinTimeout(ctx, s.cfg.OperationTimeout, func(ctx context.Context) error {
		var err error
		if reqs, transcriptID, err = s.clipRequests(ctx, up); err != nil {
			return err
		}
		results, err = s.deps.Cutter.CutClips(ctx, up.File.Path, reqs, s.cfg.OutputDir)
		return err
	})
	if err != nil {
		return err
	}
	if results == nil {
		results = []clip.Result{}
	}

	if s.deps.Store != nil {
		if err := s.deps.Store.SaveClips(ctx, transcriptID, up.Filename, results); err != nil {
			s.logger.Warn("clips not stored", "error", err)
		}
	}
	return c.JSON(http.StatusOK, clipsResponse{TranscriptID: transcriptID, Requested: len(reqs), Clips: results})
}

// clipRequests resolves the clip list for an upload.
func (s *Server) clipRequests(ctx context.Context, up *ingest.Upload) ([]clip.Request, string, error) {
	if plan := strings.TrimSpace(up.Fields[FieldPlan]); plan != "" {
		reqs, err := clip.DecodePlan(strings.NewReader(plan))
		return reqs, "", err
	}

	if s.deps.Planner == nil {
		return nil, "", fmt.Errorf("%w: plan is required, clip generation is not configured", errInvalidField)
	}

	n := s.cfg.ClipCount
	if raw := strings.TrimSpace(up.Fields[FieldCount]); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return nil, "", fmt.Errorf("%w: count %q", errInvalidField, raw)
		}
		n = v
	}

	var outLang lang.Language
	if raw := up.Fields[FieldLanguage]; raw != "" {
		l, err := lang.Parse(raw)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", errInvalidField, err)
		}
		outLang = l
	}

	var (
		tr  transcript.Transcript
		id  string
		err error
	)
	if raw := strings.TrimSpace(up.Fields[FieldTranscript]); raw != "" {
		if tr, err = transcript.Decode(strings.NewReader(raw)); err != nil {
			return nil, "", fmt.Errorf("%w: transcript: %w", errInvalidField, err)
		}
	} else {
		if tr, err = s.deps.Transcriber.Transcribe(ctx, up.File.Path); err != nil {
			return nil, "", err
		}
		if s.deps.Store != nil {
			if id, err = s.deps.Store.SaveTranscript(ctx, up.Filename, tr); err != nil {
				s.logger.Warn("transcript not stored", "error", err)
				id = ""
			}
		}
	}

	reqs, err := s.deps.Planner.Plan(ctx, tr, n, outLang)
	return reqs, id, err
}

// receive creates the request workspace and ingests the upload into it
// with in. On success the caller closes the workspace.
func (s *Server) receive(c echo.Context, in *ingest.Ingestor) (*media.Workspace, *ingest.Upload, error) {
	ws, err := media.NewWorkspace(s.cfg.WorkDir)
	if err != nil {
		return nil, nil, err
	}
	up, err := in.Ingest(ws, c.Request())
	if err != nil {
		s.closeWorkspace(ws)
		return nil, nil, err
	}
	return ws, up, nil
}

func (s *Server) closeWorkspace(ws *media.Workspace) {
	if err := ws.Close(); err != nil {
		s.logger.Warn("workspace cleanup failed", "op", ws.ID(), "error", err)
	}
}
