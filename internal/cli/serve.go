package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-clipper/internal/server"
	"github.com/alnah/go-clipper/internal/store"
)

// shutdownTimeout bounds how long in-flight requests may finish after a stop signal.
const shutdownTimeout = 30 * time.Second

// ServeCmd creates the serve command.
// The env parameter provides injectable dependencies for testing.
func ServeCmd(env *Env) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the transcription and clip endpoints over HTTP",
		Long: `Serve the pipeline over HTTP.

Endpoints:
  GET  /healthz                  liveness
  POST /v1/transcriptions        multipart upload (audio/* or video/*); field "format": json, text, srt
  GET  /v1/transcriptions/{id}   stored transcript (requires database-url)
  POST /v1/clips                 multipart upload (video/*); field "plan", or "transcript"/"count"/"language"

Uploads are streamed to disk and capped by max-upload-mb. When database-url
is set, transcripts and clips are recorded in PostgreSQL.
Stops gracefully on Ctrl+C or SIGTERM.`,
		Example: `  clipper serve
  clipper serve --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, env, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: addr setting, or :8080)")

	return cmd
}

// runServe wires the pipeline into the HTTP server and runs it until the
// command context is cancelled.
func runServe(cmd *cobra.Command, env *Env, addr string) error {
	ctx := cmd.Context()

	settings, err := env.ConfigLoader.Load(env.Getenv)
	if err != nil {
		return err
	}
	if addr != "" {
		settings.Addr = addr
	}
	if settings.Overlap >= settings.ChunkDuration {
		return fmt.Errorf("%w: overlap (%gs) must be shorter than chunk duration (%gs)",
			ErrInvalidFlag, settings.Overlap, settings.ChunkDuration)
	}

	apiKey, err := requireAPIKey(env)
	if err != nil {
		return err
	}
	tools, err := env.FFmpegResolver.Resolve(ctx)
	if err != nil {
		return err
	}

	deps := server.Deps{
		Transcriber: env.PipelineFactory.NewPipeline(apiKey, tools, pipelineConfig(settings, env.Logger)),
		Cutter:      env.CutterFactory.NewCutter(tools, env.Logger),
		Planner:     env.PlannerFactory.NewPlanner(apiKey, settings.PlannerModel, env.Logger),
	}
	if settings.DatabaseURL != "" {
		st, err := env.StoreFactory.Open(ctx, settings.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()
		deps.Store = store.Recorder(st)
	}

	outputDir := settings.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	srv := server.New(server.Config{
		WorkDir:          settings.WorkDir,
		OutputDir:        outputDir,
		MaxUploadBytes:   settings.MaxUploadBytes(),
		ClipCount:        settings.ClipCount,
		OperationTimeout: settings.Timeout,
		Logger:           env.Logger,
	}, deps)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(settings.Addr) }()
	fmt.Fprintf(env.Stderr, "Serving on %s, clips in %s (Ctrl+C to stop)\n", settings.Addr, outputDir)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	fmt.Fprintln(env.Stderr, "Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
