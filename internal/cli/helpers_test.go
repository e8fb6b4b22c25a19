package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	"github.com/alnah/go-clipper/internal/config"
	"github.com/alnah/go-clipper/internal/transcript"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	ffmpeg      *mockFFmpegResolver
	config      *mockConfigLoader
	pipeline    *mockPipelineFactory
	transcriber *mockTranscriber
	planners    *mockPlannerFactory
	planner     *mockPlanner
	cutters     *mockCutterFactory
	cutter      *mockCutter
	extractor   *mockExtractorFactory
	stores      *mockStoreFactory
	store       *mockStore
	stdout      *syncBuffer
	stderr      *syncBuffer
	env         map[string]string
}

func newTestMocks() *testMocks {
	m := &testMocks{
		ffmpeg:      &mockFFmpegResolver{},
		config:      &mockConfigLoader{},
		transcriber: &mockTranscriber{},
		planner:     &mockPlanner{},
		cutter:      &mockCutter{},
		extractor:   &mockExtractorFactory{},
		store:       newMockStore(),
		stdout:      &syncBuffer{},
		stderr:      &syncBuffer{},
		env:         map[string]string{EnvOpenAIAPIKey: "sk-test"},
	}
	m.pipeline = &mockPipelineFactory{transcriber: m.transcriber}
	m.planners = &mockPlannerFactory{planner: m.planner}
	m.cutters = &mockCutterFactory{cutter: m.cutter}
	m.stores = &mockStoreFactory{store: m.store}
	return m
}

// withSettings makes the config loader return s.
func (m *testMocks) withSettings(s config.Settings) *testMocks {
	m.config.LoadFunc = func() (config.Settings, error) { return s, nil }
	return m
}

func (m *testMocks) Env() *Env {
	return NewEnv(
		WithStdout(m.stdout),
		WithStderr(m.stderr),
		WithGetenv(func(k string) string { return m.env[k] }),
		WithFFmpegResolver(m.ffmpeg),
		WithConfigLoader(m.config),
		WithPipelineFactory(m.pipeline),
		WithPlannerFactory(m.planners),
		WithCutterFactory(m.cutters),
		WithExtractorFactory(m.extractor),
		WithStoreFactory(m.stores),
	)
}

// ---------------------------------------------------------------------------
// Command helpers
// ---------------------------------------------------------------------------

// execute runs cmd with args the way the root command would.
func execute(ctx context.Context, cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.ExecuteContext(ctx)
}

// touch creates a small file and returns its path.
func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("media"), 0600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// settingsIn returns default settings writing to dir.
func settingsIn(dir string) config.Settings {
	s := config.Defaults()
	s.OutputDir = dir
	return s
}

func sampleTranscript() transcript.Transcript {
	return transcript.Transcript{
		Text:             "Welcome back. Today we talk about Go.",
		DurationEstimate: 120,
		Chunks:           1,
		Words: []transcript.WordSpan{
			{Word: "Welcome", Start: 0.0, End: 0.4},
			{Word: "back.", Start: 0.4, End: 0.9},
			{Word: "Today", Start: 1.2, End: 1.5},
			{Word: "we", Start: 1.5, End: 1.6},
			{Word: "talk", Start: 1.6, End: 1.9},
			{Word: "about", Start: 1.9, End: 2.2},
			{Word: "Go.", Start: 2.2, End: 2.6},
		},
	}
}
