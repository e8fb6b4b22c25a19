package clip

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/alnah/go-clipper/internal/ffmpeg"
)

// DefaultCutTimeout bounds a single ffmpeg cut.
const DefaultCutTimeout = 10 * time.Minute

// outputDirPerm allows other local users to read published clips.
const outputDirPerm = 0o755

// stderrTailLines is how much ffmpeg diagnostics a failure log carries.
const stderrTailLines = 5

// Cutter cuts clips out of a source video with ffmpeg.
type Cutter struct {
	run        runner
	fs         fileSystem
	ffmpegPath string
	timeout    time.Duration
	newID      func() string
	logger     *slog.Logger
}

// CutterOption configures a Cutter.
type CutterOption func(*Cutter)

// WithCutRunner sets the process runner (for testing).
func WithCutRunner(r runner) CutterOption {
	return func(c *Cutter) { c.run = r }
}

// WithCutFileSystem sets the file system implementation (for testing).
func WithCutFileSystem(fs fileSystem) CutterOption {
	return func(c *Cutter) { c.fs = fs }
}

// WithCutTimeout sets the per-clip ffmpeg timeout.
func WithCutTimeout(d time.Duration) CutterOption {
	return func(c *Cutter) { c.timeout = d }
}

// WithBatchID fixes the batch id used in output names (for testing).
func WithBatchID(id string) CutterOption {
	return func(c *Cutter) { c.newID = func() string { return id } }
}

// WithLogger sets the logger for skipped and failed clips.
func WithLogger(l *slog.Logger) CutterOption {
	return func(c *Cutter) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCutter creates a Cutter that runs the ffmpeg binary at ffmpegPath.
func NewCutter(ffmpegPath string, opts ...CutterOption) *Cutter {
	c := &Cutter{
		run:        ffmpeg.NewExecutor(),
		fs:         osFileSystem{},
		ffmpegPath: ffmpegPath,
		timeout:    DefaultCutTimeout,
		newID:      uuid.NewString,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CutClips cuts every valid request from videoPath into outDir, one file per
// clip named "<batch>-clip-NN.mp4" after the request's position.
//
// Invalid requests are logged and skipped without running ffmpeg. A clip
// whose cut fails is logged, its partial output removed, and the batch
// continues. Results keep request order among the successes.
//
// If ctx is cancelled, clips already written by this call are removed and
// the context error is returned.
func (c *Cutter) CutClips(ctx context.Context, videoPath string, reqs []Request, outDir string) ([]Result, error) {
	if err := c.fs.MkdirAll(outDir, outputDirPerm); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	batch := c.newID()
	log := c.logger.With("batch", batch, "video", videoPath)
	results := make([]Result, 0, len(reqs))

	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			c.discard(results)
			return nil, err
		}

		if err := req.Validate(); err != nil {
			log.Warn("clip skipped", "clip", i+1, "error", err)
			continue
		}

		dest := filepath.Join(outDir, fmt.Sprintf("%s-clip-%02d.mp4", batch, i+1))
		res, err := c.cut(ctx, videoPath, req, dest)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				c.discard(results)
				return nil, ctxErr
			}
			log.Warn("clip failed", "clip", i+1, "title", req.Title, "error", err)
			continue
		}
		results = append(results, res)
	}

	log.Info("clips cut", "requested", len(reqs), "produced", len(results))
	return results, nil
}

// cut runs one ffmpeg invocation and verifies its output.
func (c *Cutter) cut(ctx context.Context, videoPath string, req Request, dest string) (Result, error) {
	args := ffmpeg.CutClipArgs(videoPath, dest, req.StartTime, req.Duration())
	res, err := c.run.Run(ctx, c.ffmpegPath, args, c.timeout)
	if err != nil {
		_ = c.fs.Remove(dest)
		return Result{}, fmt.Errorf("%w: %w\n%s", ErrCut, err, res.Tail(stderrTailLines))
	}

	info, err := c.fs.Stat(dest)
	if err != nil || info.Size() == 0 {
		_ = c.fs.Remove(dest)
		return Result{}, fmt.Errorf("%w: output %s missing or empty after ffmpeg exited 0", ErrCut, dest)
	}

	return Result{Request: req, VideoPath: dest, Duration: req.Duration()}, nil
}

// discard removes the files of a cancelled batch.
func (c *Cutter) discard(results []Result) {
	for _, r := range results {
		if err := c.fs.Remove(r.VideoPath); err != nil {
			c.logger.Warn("remove cancelled clip", "path", r.VideoPath, "error", err)
		}
	}
}
