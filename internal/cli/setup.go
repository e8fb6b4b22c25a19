package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/alnah/go-clipper/internal/config"
	"github.com/alnah/go-clipper/internal/lang"
	"github.com/alnah/go-clipper/internal/transcribe"
	"github.com/alnah/go-clipper/internal/transcript"
)

// EnvOpenAIAPIKey is the environment variable holding the OpenAI API key.
const EnvOpenAIAPIKey = "OPENAI_API_KEY"

// clampParallel constrains parallel request count to valid range [1, MaxRecommendedParallel].
func clampParallel(n int) int {
	if n < 1 {
		return 1
	}
	if n > transcribe.MaxRecommendedParallel {
		return transcribe.MaxRecommendedParallel
	}
	return n
}

// pipelineFlags are the transcription flags shared by transcribe and clips.
// A flag only overrides the configured setting when the user passes it.
type pipelineFlags struct {
	parallel int
	language string
	chunk    float64
	overlap  float64
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.parallel, "parallel", "p", 1, "Max concurrent transcription requests (1-10)")
	cmd.Flags().StringVarP(&f.language, "language", "l", "", "Audio language (ISO 639-1 code, e.g., en, fr, pt-BR)")
	cmd.Flags().Float64Var(&f.chunk, "chunk", transcript.DefaultChunkDuration, "Chunk duration in seconds for long recordings")
	cmd.Flags().Float64Var(&f.overlap, "overlap", transcript.DefaultOverlap, "Seconds shared by adjacent chunks")
}

// apply overrides s with the flags set on cmd.
func (f *pipelineFlags) apply(cmd *cobra.Command, s *config.Settings) error {
	flags := cmd.Flags()
	if flags.Changed("parallel") {
		s.Parallel = clampParallel(f.parallel)
	}
	if flags.Changed("language") {
		l, err := lang.Parse(f.language)
		if err != nil {
			return err
		}
		s.Language = l
	}
	if flags.Changed("chunk") {
		if f.chunk <= 0 {
			return fmt.Errorf("%w: --chunk must be positive, got %g", ErrInvalidFlag, f.chunk)
		}
		s.ChunkDuration = f.chunk
	}
	if flags.Changed("overlap") {
		if f.overlap < 0 {
			return fmt.Errorf("%w: --overlap cannot be negative, got %g", ErrInvalidFlag, f.overlap)
		}
		s.Overlap = f.overlap
	}
	if s.Overlap >= s.ChunkDuration {
		return fmt.Errorf("%w: overlap (%gs) must be shorter than chunk duration (%gs)",
			ErrInvalidFlag, s.Overlap, s.ChunkDuration)
	}
	return nil
}

// pipelineConfig turns settings into a transcription pipeline configuration.
func pipelineConfig(s config.Settings, logger *slog.Logger) transcribe.Config {
	cfg := transcribe.DefaultConfig()
	cfg.ChunkDuration = s.ChunkDuration
	cfg.Overlap = s.Overlap
	cfg.Parallel = clampParallel(s.Parallel)
	cfg.Language = s.Language
	cfg.OperationTimeout = s.Timeout
	cfg.WorkDir = s.WorkDir
	cfg.Direct.MaxDuration = s.ChunkDuration
	cfg.Logger = logger
	return cfg
}

// requireAPIKey returns the OpenAI key or ErrAPIKeyMissing.
func requireAPIKey(env *Env) (string, error) {
	key := env.Getenv(EnvOpenAIAPIKey)
	if key == "" {
		return "", fmt.Errorf("%w (set it with: export %s=sk-...)", ErrAPIKeyMissing, EnvOpenAIAPIKey)
	}
	return key, nil
}

// openStore connects to the configured store. It returns nil when no
// database-url is configured, and nil with a warning when the connection
// fails, so local runs never depend on the database.
func openStore(ctx context.Context, env *Env, s config.Settings) Store {
	if s.DatabaseURL == "" {
		return nil
	}
	st, err := env.StoreFactory.Open(ctx, s.DatabaseURL)
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: results will not be recorded: %v\n", err)
		return nil
	}
	return st
}

// saveTranscript records tr when st is non-nil and returns its id, or "".
func saveTranscript(ctx context.Context, env *Env, st Store, source string, tr transcript.Transcript) string {
	if st == nil {
		return ""
	}
	id, err := st.SaveTranscript(ctx, source, tr)
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: transcript not recorded: %v\n", err)
		return ""
	}
	fmt.Fprintf(env.Stderr, "Recorded transcript %s\n", id)
	return id
}
