package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-clipper/internal/clip"
	"github.com/alnah/go-clipper/internal/config"
	"github.com/alnah/go-clipper/internal/ffmpeg"
	"github.com/alnah/go-clipper/internal/media"
	"github.com/alnah/go-clipper/internal/planner"
	"github.com/alnah/go-clipper/internal/server"
	"github.com/alnah/go-clipper/internal/store"
	"github.com/alnah/go-clipper/internal/transcribe"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Logger *slog.Logger

	// Factories for domain objects
	FFmpegResolver   FFmpegResolver
	ConfigLoader     ConfigLoader
	PipelineFactory  PipelineFactory
	PlannerFactory   PlannerFactory
	CutterFactory    CutterFactory
	ExtractorFactory ExtractorFactory
	StoreFactory     StoreFactory
}

// FFmpegResolver locates the ffmpeg and ffprobe binaries.
type FFmpegResolver interface {
	Resolve(ctx context.Context) (ffmpeg.Tools, error)
}

// ConfigLoader loads settings, using getenv for environment fallbacks.
type ConfigLoader interface {
	Load(getenv func(string) string) (config.Settings, error)
}

// PipelineFactory creates the long-form transcription pipeline.
type PipelineFactory interface {
	NewPipeline(apiKey string, tools ffmpeg.Tools, cfg transcribe.Config) server.Transcriber
}

// PlannerFactory creates clip planners.
type PlannerFactory interface {
	NewPlanner(apiKey, model string, logger *slog.Logger) planner.Planner
}

// CutterFactory creates clip cutters.
type CutterFactory interface {
	NewCutter(tools ffmpeg.Tools, logger *slog.Logger) server.Cutter
}

// AudioExtractor writes the audio track of a media file.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, input string, profile ffmpeg.AudioProfile, dest string) (*media.Handle, error)
}

// ExtractorFactory creates audio extractors.
type ExtractorFactory interface {
	NewExtractor(tools ffmpeg.Tools) AudioExtractor
}

// Store records artifacts and releases its connections on Close.
type Store interface {
	store.Recorder
	Close()
}

// StoreFactory connects to the artifact store.
type StoreFactory interface {
	Open(ctx context.Context, databaseURL string) (Store, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithLogger sets the structured logger handed to pipeline components.
func WithLogger(l *slog.Logger) EnvOption {
	return func(e *Env) {
		e.Logger = l
	}
}

// WithFFmpegResolver sets the FFmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) {
		e.FFmpegResolver = r
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithPipelineFactory sets the pipeline factory.
func WithPipelineFactory(f PipelineFactory) EnvOption {
	return func(e *Env) {
		e.PipelineFactory = f
	}
}

// WithPlannerFactory sets the planner factory.
func WithPlannerFactory(f PlannerFactory) EnvOption {
	return func(e *Env) {
		e.PlannerFactory = f
	}
}

// WithCutterFactory sets the cutter factory.
func WithCutterFactory(f CutterFactory) EnvOption {
	return func(e *Env) {
		e.CutterFactory = f
	}
}

// WithExtractorFactory sets the extractor factory.
func WithExtractorFactory(f ExtractorFactory) EnvOption {
	return func(e *Env) {
		e.ExtractorFactory = f
	}
}

// WithStoreFactory sets the store factory.
func WithStoreFactory(f StoreFactory) EnvOption {
	return func(e *Env) {
		e.StoreFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		Getenv:           os.Getenv,
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		FFmpegResolver:   &defaultFFmpegResolver{},
		ConfigLoader:     &defaultConfigLoader{},
		PipelineFactory:  &defaultPipelineFactory{},
		PlannerFactory:   &defaultPlannerFactory{},
		CutterFactory:    &defaultCutterFactory{},
		ExtractorFactory: &defaultExtractorFactory{},
		StoreFactory:     &defaultStoreFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultFFmpegResolver implements FFmpegResolver using the ffmpeg package.
type defaultFFmpegResolver struct{}

func (defaultFFmpegResolver) Resolve(ctx context.Context) (ffmpeg.Tools, error) {
	return ffmpeg.Resolve(ctx)
}

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load(getenv func(string) string) (config.Settings, error) {
	return config.LoadWith(getenv)
}

// defaultPipelineFactory wires the OpenAI client to ffprobe and ffmpeg.
type defaultPipelineFactory struct{}

func (defaultPipelineFactory) NewPipeline(apiKey string, tools ffmpeg.Tools, cfg transcribe.Config) server.Transcriber {
	client := transcribe.NewOpenAIClient(openai.NewClient(apiKey))
	return transcribe.NewPipeline(cfg, client, media.NewProber(tools.FFprobe), media.NewExtractor(tools.FFmpeg))
}

// defaultPlannerFactory implements PlannerFactory using OpenAI chat completions.
type defaultPlannerFactory struct{}

func (defaultPlannerFactory) NewPlanner(apiKey, model string, logger *slog.Logger) planner.Planner {
	return planner.NewOpenAIPlanner(openai.NewClient(apiKey), planner.WithModel(model), planner.WithLogger(logger))
}

// defaultCutterFactory implements CutterFactory using the clip package.
type defaultCutterFactory struct{}

func (defaultCutterFactory) NewCutter(tools ffmpeg.Tools, logger *slog.Logger) server.Cutter {
	return clip.NewCutter(tools.FFmpeg, clip.WithLogger(logger))
}

// defaultExtractorFactory implements ExtractorFactory using the media package.
type defaultExtractorFactory struct{}

func (defaultExtractorFactory) NewExtractor(tools ffmpeg.Tools) AudioExtractor {
	return media.NewExtractor(tools.FFmpeg)
}

// defaultStoreFactory implements StoreFactory with PostgreSQL.
type defaultStoreFactory struct{}

func (defaultStoreFactory) Open(ctx context.Context, databaseURL string) (Store, error) {
	db, err := store.Open(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Compile-time interface verification.
var (
	_ FFmpegResolver   = (*defaultFFmpegResolver)(nil)
	_ ConfigLoader     = (*defaultConfigLoader)(nil)
	_ PipelineFactory  = (*defaultPipelineFactory)(nil)
	_ PlannerFactory   = (*defaultPlannerFactory)(nil)
	_ CutterFactory    = (*defaultCutterFactory)(nil)
	_ ExtractorFactory = (*defaultExtractorFactory)(nil)
	_ StoreFactory     = (*defaultStoreFactory)(nil)
	_ Store            = (*store.Postgres)(nil)
	_ AudioExtractor   = (*media.Extractor)(nil)
)
