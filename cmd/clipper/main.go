package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-clipper/internal/cli"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// envLogLevel selects the diagnostic log level: debug, info, warn or error.
const envLogLevel = "CLIPPER_LOG"

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// Context with signal cancellation.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(os.Getenv(envLogLevel)),
	}))
	env := cli.NewEnv(cli.WithLogger(logger))

	rootCmd := &cobra.Command{
		Use:   "clipper",
		Short: "Transcribe long recordings and cut shareable clips",
		Long: `Transcribe audio and video of any length with word-level timestamps,
and cut short clips from a plan file or from clips picked by a language model.

Set CLIPPER_LOG=debug to see each ffmpeg and API step on stderr.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(cli.TranscribeCmd(env))
	rootCmd.AddCommand(cli.ClipsCmd(env))
	rootCmd.AddCommand(cli.ServeCmd(env))
	rootCmd.AddCommand(cli.ExtractAudioCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if hint := cli.Hint(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		os.Exit(cli.ExitCode(err))
	}
}

// logLevel parses raw, defaulting to warn so normal runs only show progress lines.
func logLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelWarn
	}
	return level
}
