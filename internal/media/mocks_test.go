package media_test

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/alnah/go-clipper/internal/ffmpeg"
)

// mockRunner records invocations and delegates to fn.
type mockRunner struct {
	mu    sync.Mutex
	calls [][]string
	fn    func(args []string) (ffmpeg.Result, error)
}

func (m *mockRunner) Run(_ context.Context, _ string, args []string, _ time.Duration) (ffmpeg.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, args)
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(args)
	}
	return ffmpeg.Result{}, nil
}

func (m *mockRunner) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// writeOutput simulates ffmpeg writing content to its output path (last arg).
func writeOutput(content string) func(args []string) (ffmpeg.Result, error) {
	return func(args []string) (ffmpeg.Result, error) {
		if err := os.WriteFile(args[len(args)-1], []byte(content), 0o600); err != nil {
			return ffmpeg.Result{ExitCode: 1}, err
		}
		return ffmpeg.Result{}, nil
	}
}
