package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-clipper/internal/apierr"
	"github.com/alnah/go-clipper/internal/ffmpeg"
	"github.com/alnah/go-clipper/internal/lang"
	"github.com/alnah/go-clipper/internal/media"
	"github.com/alnah/go-clipper/internal/transcript"
)

// Parallelism configuration.
const (
	// MaxRecommendedParallel is the recommended upper limit for concurrent API requests.
	// Higher values may trigger rate limiting.
	MaxRecommendedParallel = 10

	// DefaultOperationTimeout bounds one whole transcription.
	DefaultOperationTimeout = 30 * time.Minute
)

// Direct-call ceilings. The service rejects uploads above 25 MiB; the margin
// absorbs multipart overhead.
const (
	DefaultDirectMaxBytes = 24 * 1024 * 1024
)

// Limits decide when a file can be sent in a single call.
type Limits struct {
	MaxBytes    int64
	MaxDuration float64 // seconds
}

// CanProcessDirectly reports whether an audio file of size bytes and
// duration seconds fits in one transcription call. Anything else goes
// through the chunked path.
func CanProcessDirectly(size int64, duration float64, l Limits) bool {
	return size > 0 && size <= l.MaxBytes && duration > 0 && duration <= l.MaxDuration
}

// prober returns the duration of a media file in seconds.
type prober interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// extractor produces audio files with ffmpeg.
type extractor interface {
	ExtractAudio(ctx context.Context, input string, profile ffmpeg.AudioProfile, dest string) (*media.Handle, error)
	ExtractWindow(ctx context.Context, input string, start, end float64, dest string) (*media.Handle, error)
}

// Compile-time interface compliance checks.
var (
	_ prober    = (*media.Prober)(nil)
	_ extractor = (*media.Extractor)(nil)
)

// Config holds every tunable of a Pipeline. Zero fields take defaults.
type Config struct {
	ChunkDuration    float64 // seconds per window
	Overlap          float64 // seconds shared by adjacent windows
	Parallel         int     // concurrent windows, 1 means sequential
	Language         lang.Language
	Prompt           string
	OperationTimeout time.Duration
	WorkDir          string // parent of per-operation workspaces; empty means os.TempDir()
	Retry            apierr.RetryConfig
	Direct           Limits
	Logger           *slog.Logger
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		ChunkDuration:    transcript.DefaultChunkDuration,
		Overlap:          transcript.DefaultOverlap,
		Parallel:         1,
		OperationTimeout: DefaultOperationTimeout,
		Retry:            apierr.RetryOnce,
		Direct:           Limits{MaxBytes: DefaultDirectMaxBytes, MaxDuration: transcript.DefaultChunkDuration},
	}
}

// normalize fills zero fields with defaults and clamps Parallel.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.ChunkDuration <= 0 {
		c.ChunkDuration = def.ChunkDuration
	}
	if c.Overlap < 0 {
		c.Overlap = 0
	}
	if c.Parallel < 1 {
		c.Parallel = 1
	}
	c.Parallel = min(c.Parallel, MaxRecommendedParallel)
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = def.OperationTimeout
	}
	if c.Retry == (apierr.RetryConfig{}) {
		c.Retry = def.Retry
	}
	if c.Direct.MaxBytes <= 0 {
		c.Direct.MaxBytes = def.Direct.MaxBytes
	}
	if c.Direct.MaxDuration <= 0 {
		c.Direct.MaxDuration = c.ChunkDuration
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Pipeline turns a media file of any length into one word-timestamped transcript.
type Pipeline struct {
	cfg       Config
	client    Client
	prober    prober
	extractor extractor
}

// NewPipeline wires the pipeline's collaborators. Construct once and reuse;
// Transcribe is safe for concurrent use.
func NewPipeline(cfg Config, client Client, p prober, x extractor) *Pipeline {
	cfg.normalize()
	return &Pipeline{cfg: cfg, client: client, prober: p, extractor: x}
}

// Config returns the normalized configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Transcribe probes, extracts and transcribes mediaPath.
//
// Short inputs go to the service in a single call; longer ones are split
// with transcript.PlanChunks and transcribed window by window, up to
// Config.Parallel at a time. A window that fails after one retry is recorded
// as skipped; the result is then partial. Probe or extraction failures, or
// every window failing, are returned as errors. All intermediate files are
// removed before Transcribe returns.
func (p *Pipeline) Transcribe(ctx context.Context, mediaPath string) (transcript.Transcript, error) {
	opCtx, cancel := context.WithTimeout(ctx, p.cfg.OperationTimeout)
	defer cancel()

	tr, err := p.run(opCtx, mediaPath)
	if err != nil && ctx.Err() == nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		return transcript.Transcript{}, fmt.Errorf("%w after %v: %v", ErrOperationTimeout, p.cfg.OperationTimeout, err)
	}
	return tr, err
}

func (p *Pipeline) run(ctx context.Context, mediaPath string) (transcript.Transcript, error) {
	ws, err := media.NewWorkspace(p.cfg.WorkDir)
	if err != nil {
		return transcript.Transcript{}, err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			p.cfg.Logger.Warn("workspace cleanup failed", "op", ws.ID(), "error", err)
		}
	}()

	log := p.cfg.Logger.With("op", ws.ID())

	total, err := p.prober.ProbeDuration(ctx, mediaPath)
	if err != nil {
		return transcript.Transcript{}, err
	}
	if total <= 0 {
		return transcript.Transcript{}, fmt.Errorf("%w: %s has zero duration", media.ErrProbe, mediaPath)
	}

	audio, err := p.extractor.ExtractAudio(ctx, mediaPath, ffmpeg.TranscriptionProfile,
		ws.Path("audio"+ffmpeg.TranscriptionProfile.Ext))
	if err != nil {
		return transcript.Transcript{}, err
	}
	defer func() { _ = audio.Release() }()

	info, err := os.Stat(audio.Path)
	if err != nil {
		return transcript.Transcript{}, fmt.Errorf("%w: %v", media.ErrExtraction, err)
	}

	direct := CanProcessDirectly(info.Size(), total, p.cfg.Direct)
	var windows []transcript.TimeWindow
	if direct {
		windows = []transcript.TimeWindow{{Start: 0, End: total}}
	} else {
		windows, err = transcript.PlanChunks(total, p.cfg.ChunkDuration, p.cfg.Overlap)
		if err != nil {
			return transcript.Transcript{}, err
		}
	}
	log.Info("transcription planned",
		"duration", total, "audio_bytes", info.Size(), "direct", direct,
		"windows", len(windows), "parallel", p.cfg.Parallel)

	results := make([]transcript.ChunkResult, len(windows))
	var (
		mu      sync.Mutex
		lastErr error
	)

	// g.Go blocks once Parallel windows are in flight, so with Parallel=1
	// windows run strictly in plan order.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Parallel)

	for i, w := range windows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, chunkErr := p.transcribeWindow(gctx, ws, audio.Path, i, w, direct)
			if chunkErr != nil {
				// Cancellation aborts the batch; anything else is absorbed.
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn("chunk skipped", "chunk", i, "start", w.Start, "end", w.End, "error", chunkErr)
				mu.Lock()
				lastErr = chunkErr
				mu.Unlock()
				res = transcript.FailedChunk(w.Start, w.Duration())
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return transcript.Transcript{}, err
	}

	tr := transcript.Merge(results, p.cfg.ChunkDuration)
	if tr.Skipped == len(windows) {
		return transcript.Transcript{}, fmt.Errorf("%w: all %d chunks failed: %w", ErrTranscriptionService, len(windows), lastErr)
	}
	if tr.Partial() {
		log.Warn("transcript is partial", "skipped", tr.Skipped, "chunks", tr.Chunks)
	}
	log.Info("transcription done", "words", len(tr.Words), "duration_estimate", tr.DurationEstimate)
	return tr, nil
}

// transcribeWindow extracts one window (unless the whole file is sent
// directly), transcribes it with at most one retry, and deletes the window
// file before returning.
func (p *Pipeline) transcribeWindow(ctx context.Context, ws *media.Workspace, audioPath string,
	idx int, w transcript.TimeWindow, direct bool,
) (transcript.ChunkResult, error) {
	path := audioPath
	if !direct {
		h, err := p.extractor.ExtractWindow(ctx, audioPath, w.Start, w.End,
			ws.Path(fmt.Sprintf("chunk-%03d%s", idx, ffmpeg.TranscriptionProfile.Ext)))
		if err != nil {
			return transcript.ChunkResult{}, err
		}
		defer func() { _ = h.Release() }()
		path = h.Path
	}

	resp, err := apierr.RetryWithBackoff(ctx, p.cfg.Retry, func() (Response, error) {
		return p.client.Transcribe(ctx, Request{
			AudioPath: path,
			Language:  p.cfg.Language,
			Prompt:    p.cfg.Prompt,
		})
	}, nil)
	if err != nil {
		return transcript.ChunkResult{}, err
	}

	words := resp.Words
	if len(words) == 0 && resp.Text != "" {
		dur := resp.Duration
		if dur <= 0 || dur > w.Duration() {
			dur = w.Duration()
		}
		words = transcript.SynthesizeWords(resp.Text, dur)
	}

	res, err := transcript.NewChunkResult(w.Start, w.Duration(), resp.Text, words)
	if err != nil {
		return transcript.ChunkResult{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return res, nil
}
