package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/alnah/go-clipper/internal/ffmpeg"
)

// Extractor produces audio-only files with ffmpeg.
type Extractor struct {
	run        runner
	stat       fileStatter
	rm         fileRemover
	ffmpegPath string
	timeout    time.Duration
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithExtractRunner sets the process runner (for testing).
func WithExtractRunner(r runner) ExtractorOption {
	return func(e *Extractor) { e.run = r }
}

// WithExtractFileStatter sets the stat implementation (for testing).
func WithExtractFileStatter(s fileStatter) ExtractorOption {
	return func(e *Extractor) { e.stat = s }
}

// WithExtractFileRemover sets the file removal implementation (for testing).
func WithExtractFileRemover(r fileRemover) ExtractorOption {
	return func(e *Extractor) { e.rm = r }
}

// WithExtractTimeout sets the per-call timeout.
func WithExtractTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) { e.timeout = d }
}

// NewExtractor creates an Extractor that runs the ffmpeg binary at ffmpegPath.
func NewExtractor(ffmpegPath string, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		run:        ffmpeg.NewExecutor(),
		stat:       osFileStatter{},
		rm:         osFileRemover{},
		ffmpegPath: ffmpegPath,
		timeout:    DefaultToolTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractAudio writes the first audio track of input to dest, re-encoded
// with profile. The returned handle is owned by the caller.
func (e *Extractor) ExtractAudio(ctx context.Context, input string, profile ffmpeg.AudioProfile, dest string) (*Handle, error) {
	if _, err := e.stat.Stat(input); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, input)
	}
	return e.extract(ctx, ffmpeg.ExtractAudioArgs(input, dest, profile), dest)
}

// ExtractWindow writes seconds [start, end) of input's audio to dest as
// 16 kHz mono OGG, the transcription profile.
func (e *Extractor) ExtractWindow(ctx context.Context, input string, start, end float64, dest string) (*Handle, error) {
	if end <= start || start < 0 {
		return nil, fmt.Errorf("%w: invalid window [%.3f, %.3f)", ErrExtraction, start, end)
	}
	args := ffmpeg.ExtractWindowArgs(input, dest, start, end, ffmpeg.TranscriptionProfile)
	return e.extract(ctx, args, dest)
}

// extract runs ffmpeg and verifies dest exists and is non-empty.
// Partial output is removed on every failure path.
func (e *Extractor) extract(ctx context.Context, args []string, dest string) (*Handle, error) {
	res, err := e.run.Run(ctx, e.ffmpegPath, args, e.timeout)
	if err != nil {
		_ = e.rm.Remove(dest)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v\n%s", ErrExtraction, err, res.Tail(stderrTailLines))
	}

	info, err := e.stat.Stat(dest)
	if err != nil {
		_ = e.rm.Remove(dest)
		return nil, fmt.Errorf("%w: output %s missing after ffmpeg exited 0", ErrExtraction, dest)
	}
	if info.Size() == 0 {
		_ = e.rm.Remove(dest)
		return nil, fmt.Errorf("%w: output %s is empty (input has no audio track?)", ErrExtraction, dest)
	}

	return NewHandle(dest, KindAudio), nil
}
