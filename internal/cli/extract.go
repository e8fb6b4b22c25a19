package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alnah/go-clipper/internal/ffmpeg"
)

// ExtractAudioCmd creates the extract-audio command.
// The env parameter provides injectable dependencies for testing.
func ExtractAudioCmd(env *Env) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "extract-audio <media-file>",
		Short: "Save the audio track as a 44.1 kHz stereo MP3",
		Long: `Save the audio track of a video (or any media file) as an archival
quality MP3: 44.1 kHz, stereo, 192 kbit/s.

This is independent of transcription, which uses its own compact mono encoding.`,
		Example: `  clipper extract-audio talk.mp4
  clipper extract-audio talk.mp4 -o ~/Music/talk.mp3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtractAudio(cmd, env, args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: <input>.mp3)")

	return cmd
}

// runExtractAudio writes the archival audio track of inputPath.
func runExtractAudio(cmd *cobra.Command, env *Env, inputPath, output string) error {
	ctx := cmd.Context()

	if err := checkInput(inputPath); err != nil {
		return err
	}

	settings, err := env.ConfigLoader.Load(env.Getenv)
	if err != nil {
		return err
	}

	profile := ffmpeg.ArchivalProfile
	defaultOutput := deriveOutputPath(filepath.Base(inputPath), profile.Ext)
	dest, err := resolveOutput(output, settings.OutputDir, defaultOutput)
	if err != nil {
		return err
	}

	tools, err := env.FFmpegResolver.Resolve(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Extracting audio from %s...\n", filepath.Base(inputPath))
	h, err := env.ExtractorFactory.NewExtractor(tools).ExtractAudio(ctx, inputPath, profile, dest)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Done: %s\n", h.Path)
	return nil
}
