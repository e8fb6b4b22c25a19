package transcribe_test

import (
	"context"
	"os"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-clipper/internal/ffmpeg"
	"github.com/alnah/go-clipper/internal/media"
	"github.com/alnah/go-clipper/internal/transcribe"
)

// ---------------------------------------------------------------------------
// mockAudioTranscriber - stands in for *openai.Client
// ---------------------------------------------------------------------------

type mockAudioTranscriber struct {
	mu    sync.Mutex
	calls []openai.AudioRequest
	resp  openai.AudioResponse
	err   error
}

func (m *mockAudioTranscriber) CreateTranscription(_ context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	return m.resp, m.err
}

func (m *mockAudioTranscriber) LastRequest() openai.AudioRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return openai.AudioRequest{}
	}
	return m.calls[len(m.calls)-1]
}

// ---------------------------------------------------------------------------
// mockClient - stands in for transcribe.Client
// ---------------------------------------------------------------------------

type mockClient struct {
	mu    sync.Mutex
	calls []transcribe.Request
	fn    func(ctx context.Context, req transcribe.Request, attempt int) (transcribe.Response, error)
	seen  map[string]int
}

func (m *mockClient) Transcribe(ctx context.Context, req transcribe.Request) (transcribe.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	if m.seen == nil {
		m.seen = make(map[string]int)
	}
	attempt := m.seen[req.AudioPath]
	m.seen[req.AudioPath]++
	m.mu.Unlock()

	// The window file must exist while the client reads it.
	if _, err := os.Stat(req.AudioPath); err != nil {
		return transcribe.Response{}, err
	}
	return m.fn(ctx, req, attempt)
}

func (m *mockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// ---------------------------------------------------------------------------
// mockProber / mockExtractor - stand in for the ffmpeg-backed media types
// ---------------------------------------------------------------------------

type mockProber struct {
	duration float64
	err      error
}

func (m *mockProber) ProbeDuration(context.Context, string) (float64, error) {
	return m.duration, m.err
}

type windowCall struct {
	start, end float64
	dest       string
}

type mockExtractor struct {
	mu         sync.Mutex
	audioBytes int
	audioErr   error
	windowErr  map[int]error // by call order
	windows    []windowCall
}

func (m *mockExtractor) ExtractAudio(_ context.Context, _ string, _ ffmpeg.AudioProfile, dest string) (*media.Handle, error) {
	if m.audioErr != nil {
		return nil, m.audioErr
	}
	size := m.audioBytes
	if size == 0 {
		size = 1024
	}
	if err := os.WriteFile(dest, make([]byte, size), 0o600); err != nil {
		return nil, err
	}
	return media.NewHandle(dest, media.KindAudio), nil
}

func (m *mockExtractor) ExtractWindow(_ context.Context, _ string, start, end float64, dest string) (*media.Handle, error) {
	m.mu.Lock()
	idx := len(m.windows)
	m.windows = append(m.windows, windowCall{start: start, end: end, dest: dest})
	err := m.windowErr[idx]
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(dest, []byte("OggS"), 0o600); err != nil {
		return nil, err
	}
	return media.NewHandle(dest, media.KindAudio), nil
}

func (m *mockExtractor) Windows() []windowCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]windowCall(nil), m.windows...)
}
