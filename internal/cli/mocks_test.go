package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/alnah/go-clipper/internal/clip"
	"github.com/alnah/go-clipper/internal/config"
	"github.com/alnah/go-clipper/internal/ffmpeg"
	"github.com/alnah/go-clipper/internal/lang"
	"github.com/alnah/go-clipper/internal/media"
	"github.com/alnah/go-clipper/internal/planner"
	"github.com/alnah/go-clipper/internal/server"
	"github.com/alnah/go-clipper/internal/store"
	"github.com/alnah/go-clipper/internal/transcribe"
	"github.com/alnah/go-clipper/internal/transcript"
)

// ---------------------------------------------------------------------------
// Mock FFmpegResolver
// ---------------------------------------------------------------------------

type mockFFmpegResolver struct {
	ResolveFunc func(ctx context.Context) (ffmpeg.Tools, error)

	mu           sync.Mutex
	resolveCalls int
}

func (m *mockFFmpegResolver) Resolve(ctx context.Context) (ffmpeg.Tools, error) {
	m.mu.Lock()
	m.resolveCalls++
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx)
	}
	return ffmpeg.Tools{FFmpeg: "/usr/bin/ffmpeg", FFprobe: "/usr/bin/ffprobe"}, nil
}

func (m *mockFFmpegResolver) ResolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls
}

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Settings, error)
}

func (m *mockConfigLoader) Load(_ func(string) string) (config.Settings, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Defaults(), nil
}

// ---------------------------------------------------------------------------
// Mock PipelineFactory + Transcriber
// ---------------------------------------------------------------------------

type mockPipelineFactory struct {
	transcriber *mockTranscriber

	mu      sync.Mutex
	apiKeys []string
	configs []transcribe.Config
}

func (m *mockPipelineFactory) NewPipeline(apiKey string, _ ffmpeg.Tools, cfg transcribe.Config) server.Transcriber {
	m.mu.Lock()
	m.apiKeys = append(m.apiKeys, apiKey)
	m.configs = append(m.configs, cfg)
	m.mu.Unlock()
	return m.transcriber
}

func (m *mockPipelineFactory) Configs() []transcribe.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]transcribe.Config(nil), m.configs...)
}

type mockTranscriber struct {
	TranscribeFunc func(ctx context.Context, path string) (transcript.Transcript, error)

	mu    sync.Mutex
	paths []string
}

func (m *mockTranscriber) Transcribe(ctx context.Context, path string) (transcript.Transcript, error) {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, path)
	}
	return sampleTranscript(), nil
}

func (m *mockTranscriber) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.paths)
}

// ---------------------------------------------------------------------------
// Mock PlannerFactory + Planner
// ---------------------------------------------------------------------------

type mockPlannerFactory struct {
	planner *mockPlanner
	models  []string
}

func (m *mockPlannerFactory) NewPlanner(_, model string, _ *slog.Logger) planner.Planner {
	m.models = append(m.models, model)
	return m.planner
}

type mockPlanner struct {
	PlanFunc func(tr transcript.Transcript, n int, l lang.Language) ([]clip.Request, error)

	gotN    int
	gotLang lang.Language
	gotTr   transcript.Transcript
	calls   int
}

func (m *mockPlanner) Plan(_ context.Context, tr transcript.Transcript, n int, l lang.Language) ([]clip.Request, error) {
	m.calls++
	m.gotTr, m.gotN, m.gotLang = tr, n, l
	if m.PlanFunc != nil {
		return m.PlanFunc(tr, n, l)
	}
	return []clip.Request{
		{Title: "Opening", StartTime: 0, EndTime: 30, SocialScore: 8},
		{Title: "Punchline", StartTime: 60, EndTime: 75, SocialScore: 9},
	}, nil
}

// ---------------------------------------------------------------------------
// Mock CutterFactory + Cutter
// ---------------------------------------------------------------------------

type mockCutterFactory struct {
	cutter *mockCutter
}

func (m *mockCutterFactory) NewCutter(_ ffmpeg.Tools, _ *slog.Logger) server.Cutter {
	return m.cutter
}

// mockCutter returns one result per valid request without running ffmpeg.
type mockCutter struct {
	CutFunc func(ctx context.Context, reqs []clip.Request) ([]clip.Result, error)

	gotReqs   []clip.Request
	gotOutDir string
	calls     int
}

func (m *mockCutter) CutClips(ctx context.Context, _ string, reqs []clip.Request, outDir string) ([]clip.Result, error) {
	m.calls++
	m.gotReqs, m.gotOutDir = reqs, outDir
	if m.CutFunc != nil {
		return m.CutFunc(ctx, reqs)
	}
	var out []clip.Result
	for i, r := range reqs {
		if r.Validate() != nil {
			continue
		}
		out = append(out, clip.Result{Request: r, VideoPath: fmt.Sprintf("%s/batch-clip-%02d.mp4", outDir, i+1), Duration: r.Duration()})
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Mock ExtractorFactory
// ---------------------------------------------------------------------------

type mockExtractorFactory struct {
	ExtractFunc func(input, dest string) error

	gotProfile ffmpeg.AudioProfile
	gotDest    string
}

func (m *mockExtractorFactory) NewExtractor(_ ffmpeg.Tools) AudioExtractor {
	return m
}

func (m *mockExtractorFactory) ExtractAudio(_ context.Context, input string, profile ffmpeg.AudioProfile, dest string) (*media.Handle, error) {
	m.gotProfile, m.gotDest = profile, dest
	if m.ExtractFunc != nil {
		if err := m.ExtractFunc(input, dest); err != nil {
			return nil, err
		}
	} else if err := os.WriteFile(dest, []byte("mp3"), 0600); err != nil {
		return nil, err
	}
	return media.NewHandle(dest, media.KindAudio), nil
}

// ---------------------------------------------------------------------------
// Mock StoreFactory + Store
// ---------------------------------------------------------------------------

type mockStoreFactory struct {
	store   *mockStore
	OpenErr error
	urls    []string
}

func (m *mockStoreFactory) Open(_ context.Context, url string) (Store, error) {
	m.urls = append(m.urls, url)
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	return m.store, nil
}

type mockStore struct {
	mu           sync.Mutex
	transcripts  []transcript.Transcript
	clipBatches  map[string][]clip.Result
	closed       bool
	SaveClipsErr error
}

func newMockStore() *mockStore {
	return &mockStore{clipBatches: make(map[string][]clip.Result)}
}

func (m *mockStore) SaveTranscript(_ context.Context, _ string, tr transcript.Transcript) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcripts = append(m.transcripts, tr)
	return fmt.Sprintf("tr-%d", len(m.transcripts)), nil
}

func (m *mockStore) SaveClips(_ context.Context, transcriptID, _ string, results []clip.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveClipsErr != nil {
		return m.SaveClipsErr
	}
	m.clipBatches[transcriptID] = append(m.clipBatches[transcriptID], results...)
	return nil
}

func (m *mockStore) Transcript(_ context.Context, id string) (store.Record, error) {
	return store.Record{}, store.ErrNotFound
}

func (m *mockStore) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

// Compile-time checks.
var (
	_ FFmpegResolver   = (*mockFFmpegResolver)(nil)
	_ ConfigLoader     = (*mockConfigLoader)(nil)
	_ PipelineFactory  = (*mockPipelineFactory)(nil)
	_ PlannerFactory   = (*mockPlannerFactory)(nil)
	_ CutterFactory    = (*mockCutterFactory)(nil)
	_ ExtractorFactory = (*mockExtractorFactory)(nil)
	_ StoreFactory     = (*mockStoreFactory)(nil)
	_ Store            = (*mockStore)(nil)
)
