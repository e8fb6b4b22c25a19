package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alnah/go-clipper/internal/clip"
	"github.com/alnah/go-clipper/internal/config"
	"github.com/alnah/go-clipper/internal/ffmpeg"
	"github.com/alnah/go-clipper/internal/lang"
	"github.com/alnah/go-clipper/internal/transcript"
)

// clipsOptions holds the flags of the clips command.
type clipsOptions struct {
	plan           string
	generate       int
	transcriptPath string
	outputLang     string
	output         string
	pipeline       pipelineFlags
}

// ClipsCmd creates the clips command.
// The env parameter provides injectable dependencies for testing.
func ClipsCmd(env *Env) *cobra.Command {
	var opts clipsOptions

	cmd := &cobra.Command{
		Use:   "clips <video-file>",
		Short: "Cut short clips out of a video",
		Long: `Cut short clips (at most 5 minutes each) out of a video with ffmpeg.

The clip list comes from a plan file (--plan), or is generated (--generate N):
the video is transcribed, or an existing transcript is read (--transcript),
and a language model picks the N most shareable moments.

A plan is a JSON array of clips, or an object with a "clips" array:
  [{"title": "...", "description": "...", "start_time": 12.5, "end_time": 58}]

Clips are written next to the manifest as <batch>-clip-NN.mp4. Invalid entries
and failed cuts are skipped; the manifest lists the clips that were produced.`,
		Example: `  clipper clips talk.mp4 --plan plan.json
  clipper clips talk.mp4 --generate 3 --output-lang fr
  clipper clips talk.mp4 --generate 5 --transcript talk.json -o clips/manifest.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClips(cmd, env, args[0], &opts)
		},
	}

	cmd.Flags().StringVar(&opts.plan, "plan", "", "Clip plan JSON file")
	cmd.Flags().IntVarP(&opts.generate, "generate", "g", 0, "Generate this many clips from the transcript")
	cmd.Flags().StringVar(&opts.transcriptPath, "transcript", "", "Existing transcript JSON to plan from (with --generate)")
	cmd.Flags().StringVar(&opts.outputLang, "output-lang", "", "Language for generated titles (default: audio language)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Manifest path (default: <input>-clips.json)")
	opts.pipeline.register(cmd)
	cmd.MarkFlagsMutuallyExclusive("plan", "generate")

	return cmd
}

// runClips resolves the clip list, cuts it and writes the manifest.
// Validation order: file exists -> plan source -> settings and flags -> output -> plan file or API key
func runClips(cmd *cobra.Command, env *Env, videoPath string, opts *clipsOptions) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	if err := checkInput(videoPath); err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}

	settings, err := env.ConfigLoader.Load(env.Getenv)
	if err != nil {
		return err
	}
	if err := opts.pipeline.apply(cmd, &settings); err != nil {
		return err
	}
	outputLang := settings.Language
	if opts.outputLang != "" {
		if outputLang, err = lang.Parse(opts.outputLang); err != nil {
			return err
		}
	}

	defaultManifest := deriveOutputPath(filepath.Base(videoPath), "-clips.json")
	manifest, err := resolveOutput(opts.output, settings.OutputDir, defaultManifest)
	if err != nil {
		return err
	}

	var reqs []clip.Request
	if opts.plan != "" {
		if reqs, err = readPlan(opts.plan); err != nil {
			return err
		}
	}

	var apiKey string
	if opts.generate > 0 {
		if apiKey, err = requireAPIKey(env); err != nil {
			return err
		}
	}

	// === SETUP ===

	tools, err := env.FFmpegResolver.Resolve(ctx)
	if err != nil {
		return err
	}

	st := openStore(ctx, env, settings)
	if st != nil {
		defer st.Close()
	}

	// === PLAN AND CUT (bounded by settings.Timeout) ===

	var (
		transcriptID string
		results      []clip.Result
	)
	err = clip.WithinTimeout(ctx, settings.Timeout, func(ctx context.Context) error {
		if opts.generate > 0 {
			var err error
			reqs, transcriptID, err = generatePlan(ctx, env, st, generateParams{
				apiKey:     apiKey,
				tools:      tools,
				settings:   settings,
				videoPath:  videoPath,
				count:      opts.generate,
				outputLang: outputLang,
				transcript: opts.transcriptPath,
			})
			if err != nil {
				return err
			}
		}

		fmt.Fprintf(env.Stderr, "Cutting %d clips...\n", len(reqs))
		cutter := env.CutterFactory.NewCutter(tools, env.Logger)
		var err error
		results, err = cutter.CutClips(ctx, videoPath, reqs, filepath.Dir(manifest))
		return err
	})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("%w: 0 of %d requested", ErrNoClipsCut, len(reqs))
	}

	// === WRITE OUTPUT ===

	if err := writeFileAtomic(manifest, func(w io.Writer) error {
		return clip.WriteManifest(w, results)
	}); err != nil {
		return err
	}

	if st != nil {
		if err := st.SaveClips(ctx, transcriptID, filepath.Base(videoPath), results); err != nil {
			fmt.Fprintf(env.Stderr, "Warning: clips not recorded: %v\n", err)
		}
	}

	if skipped := len(reqs) - len(results); skipped > 0 {
		fmt.Fprintf(env.Stderr, "Warning: %d of %d clips were skipped\n", skipped, len(reqs))
	}
	fmt.Fprintf(env.Stderr, "Done: %d clips, manifest %s\n", len(results), manifest)
	return nil
}

// validate checks the plan source flags.
func (o *clipsOptions) validate() error {
	if o.generate < 0 {
		return fmt.Errorf("%w: --generate must be positive, got %d", ErrInvalidFlag, o.generate)
	}
	if o.plan == "" && o.generate == 0 {
		return ErrPlanRequired
	}
	if o.transcriptPath != "" && o.generate == 0 {
		return fmt.Errorf("%w: --transcript requires --generate", ErrInvalidFlag)
	}
	if o.outputLang != "" && o.generate == 0 {
		return fmt.Errorf("%w: --output-lang requires --generate", ErrInvalidFlag)
	}
	return nil
}

// readPlan reads a clip plan file.
func readPlan(path string) ([]clip.Request, error) {
	f, err := os.Open(path) // #nosec G304 -- user-specified plan file
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("cannot open plan: %w", err)
	}
	defer func() { _ = f.Close() }()
	return clip.DecodePlan(f)
}

// readTranscript reads a transcript JSON file written by transcribe.
func readTranscript(path string) (transcript.Transcript, error) {
	f, err := os.Open(path) // #nosec G304 -- user-specified transcript file
	if err != nil {
		if os.IsNotExist(err) {
			return transcript.Transcript{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return transcript.Transcript{}, fmt.Errorf("cannot open transcript: %w", err)
	}
	defer func() { _ = f.Close() }()

	tr, err := transcript.Decode(f)
	if err != nil {
		return transcript.Transcript{}, fmt.Errorf("%w: --transcript %s: %w", ErrInvalidFlag, path, err)
	}
	return tr, nil
}

// generateParams are the inputs of generatePlan.
type generateParams struct {
	apiKey     string
	tools      ffmpeg.Tools
	settings   config.Settings
	videoPath  string
	count      int
	outputLang lang.Language
	transcript string
}

// generatePlan obtains a transcript (from file or a fresh transcription) and
// asks the planner for p.count clips. It returns the recorded transcript id
// when a fresh transcript was stored.
func generatePlan(ctx context.Context, env *Env, st Store, p generateParams) ([]clip.Request, string, error) {
	var (
		tr  transcript.Transcript
		id  string
		err error
	)
	if p.transcript != "" {
		if tr, err = readTranscript(p.transcript); err != nil {
			return nil, "", err
		}
	} else {
		fmt.Fprintf(env.Stderr, "Transcribing %s...\n", filepath.Base(p.videoPath))
		pipeline := env.PipelineFactory.NewPipeline(p.apiKey, p.tools, pipelineConfig(p.settings, env.Logger))
		if tr, err = pipeline.Transcribe(ctx, p.videoPath); err != nil {
			return nil, "", err
		}
		if tr.Partial() {
			fmt.Fprintf(env.Stderr, "Warning: %d of %d chunks failed; the transcript has gaps\n", tr.Skipped, tr.Chunks)
		}
		id = saveTranscript(ctx, env, st, filepath.Base(p.videoPath), tr)
	}

	fmt.Fprintf(env.Stderr, "Picking %d clips...\n", p.count)
	pl := env.PlannerFactory.NewPlanner(p.apiKey, p.settings.PlannerModel, env.Logger)
	reqs, err := pl.Plan(ctx, tr, p.count, p.outputLang)
	if err != nil {
		return nil, "", err
	}
	return reqs, id, nil
}
