package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-clipper/internal/transcript"
)

// transcribeOptions holds the flags of the transcribe command.
type transcribeOptions struct {
	output   string
	format   string
	pipeline pipelineFlags
}

// TranscribeCmd creates the transcribe command.
// The env parameter provides injectable dependencies for testing.
func TranscribeCmd(env *Env) *cobra.Command {
	var opts transcribeOptions

	cmd := &cobra.Command{
		Use:   "transcribe <media-file>",
		Short: "Transcribe an audio or video file of any length",
		Long: `Transcribe an audio or video file using OpenAI's transcription API.

The audio track is extracted to a compact mono file. Recordings that fit a
single request are sent as-is; longer ones are split into overlapping chunks,
transcribed (optionally in parallel), and merged into one transcript with
word-level timestamps. A chunk that keeps failing leaves a gap instead of
failing the whole run.

Output formats:
  json   text, duration and per-word timestamps (default)
  text   plain text
  srt    SubRip subtitles built from the word timings`,
		Example: `  clipper transcribe talk.mp4
  clipper transcribe podcast.mp3 -f srt -l fr
  clipper transcribe lecture.mkv -p 4 --chunk 240 --overlap 20 -o lecture.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, env, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file path (default: <input>.<format ext>)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", transcript.FormatJSON, "Output format: json, text, srt")
	opts.pipeline.register(cmd)

	return cmd
}

// runTranscribe executes the transcription pipeline.
// Validation order: file exists -> format -> settings and flags -> output -> API key
func runTranscribe(cmd *cobra.Command, env *Env, inputPath string, opts *transcribeOptions) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	if err := checkInput(inputPath); err != nil {
		return err
	}

	format := strings.ToLower(strings.TrimSpace(opts.format))
	if !transcript.IsFormat(format) {
		return fmt.Errorf("%w: --format %q (use json, text or srt)", ErrInvalidFlag, opts.format)
	}

	settings, err := env.ConfigLoader.Load(env.Getenv)
	if err != nil {
		return err
	}
	if err := opts.pipeline.apply(cmd, &settings); err != nil {
		return err
	}

	defaultOutput := deriveOutputPath(filepath.Base(inputPath), formatExt[format])
	output, err := resolveOutput(opts.output, settings.OutputDir, defaultOutput)
	if err != nil {
		return err
	}

	apiKey, err := requireAPIKey(env)
	if err != nil {
		return err
	}

	// === SETUP ===

	tools, err := env.FFmpegResolver.Resolve(ctx)
	if err != nil {
		return err
	}
	pipeline := env.PipelineFactory.NewPipeline(apiKey, tools, pipelineConfig(settings, env.Logger))

	// === TRANSCRIPTION ===

	fmt.Fprintf(env.Stderr, "Transcribing %s...\n", filepath.Base(inputPath))
	tr, err := pipeline.Transcribe(ctx, inputPath)
	if err != nil {
		return err
	}
	if tr.Partial() {
		fmt.Fprintf(env.Stderr, "Warning: %d of %d chunks failed; the transcript has gaps\n", tr.Skipped, tr.Chunks)
	}

	// === WRITE OUTPUT ===

	if err := writeFileAtomic(output, func(w io.Writer) error {
		return transcript.Write(w, tr, format)
	}); err != nil {
		return err
	}

	if st := openStore(ctx, env, settings); st != nil {
		defer st.Close()
		saveTranscript(ctx, env, st, filepath.Base(inputPath), tr)
	}

	fmt.Fprintf(env.Stderr, "Done: %s\n", output)
	return nil
}
