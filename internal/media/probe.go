package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-clipper/internal/ffmpeg"
)

// DefaultToolTimeout bounds a single ffmpeg or ffprobe invocation.
const DefaultToolTimeout = 10 * time.Minute

// stderrTailLines is how much ffmpeg diagnostics an error carries.
const stderrTailLines = 5

// Prober reads container durations with ffprobe.
type Prober struct {
	run         runner
	stat        fileStatter
	ffprobePath string
	timeout     time.Duration
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithProbeRunner sets the process runner (for testing).
func WithProbeRunner(r runner) ProberOption {
	return func(p *Prober) { p.run = r }
}

// WithProbeFileStatter sets the stat implementation (for testing).
func WithProbeFileStatter(s fileStatter) ProberOption {
	return func(p *Prober) { p.stat = s }
}

// WithProbeTimeout sets the per-call timeout.
func WithProbeTimeout(d time.Duration) ProberOption {
	return func(p *Prober) { p.timeout = d }
}

// NewProber creates a Prober that runs the ffprobe binary at ffprobePath.
func NewProber(ffprobePath string, opts ...ProberOption) *Prober {
	p := &Prober{
		run:         ffmpeg.NewExecutor(),
		stat:        osFileStatter{},
		ffprobePath: ffprobePath,
		timeout:     DefaultToolTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProbeDuration returns the duration of path in seconds.
// Any failure is ErrProbe; the caller treats it as fatal and does not retry.
func (p *Prober) ProbeDuration(ctx context.Context, path string) (float64, error) {
	if _, err := p.stat.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return 0, fmt.Errorf("%w: stat %s: %v", ErrProbe, path, err)
	}

	res, err := p.run.Run(ctx, p.ffprobePath, ffmpeg.ProbeDurationArgs(path), p.timeout)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%w: %v\n%s", ErrProbe, err, res.Tail(stderrTailLines))
	}

	return parseDuration(res.Stdout)
}

// parseDuration accepts the bare float ffprobe prints for format=duration.
func parseDuration(out string) (float64, error) {
	s := strings.TrimSpace(out)
	if s == "" {
		return 0, fmt.Errorf("%w: empty ffprobe output", ErrProbe)
	}
	// Some containers report several lines; the first is the format duration.
	s, _, _ = strings.Cut(s, "\n")
	s = strings.TrimSpace(s)

	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unparseable duration %q", ErrProbe, s)
	}
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec < 0 {
		return 0, fmt.Errorf("%w: invalid duration %q", ErrProbe, s)
	}
	return sec, nil
}
