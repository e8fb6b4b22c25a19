package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// waitDelay bounds how long Wait blocks on inherited pipes after the process is killed.
const waitDelay = 5 * time.Second

// Result captures the outcome of one external process invocation.
// Stderr holds the diagnostic text ffmpeg and ffprobe write on failure.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Tail returns the last n lines of stderr, for error messages.
func (r Result) Tail(n int) string {
	lines := strings.Split(strings.TrimRight(r.Stderr, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// ---------------------------------------------------------------------------
// Executor - the single process-spawning mechanism
// ---------------------------------------------------------------------------

// runFn is the function type for spawning a process and capturing its output.
type runFn func(ctx context.Context, path string, args []string) (Result, error)

// Executor runs external tools with a per-call timeout.
type Executor struct {
	run runFn
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRunFunc sets a custom spawn function (for testing).
func WithRunFunc(fn runFn) ExecutorOption {
	return func(e *Executor) { e.run = fn }
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		run: defaultRun,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes path with args and waits for it to exit.
// A positive timeout bounds this call only; the parent context still applies.
// Errors:
//   - ErrNonZeroExit when the process exits with a non-zero status
//   - ErrTimeout when the per-call timeout kills the process
//   - the parent context's error when ctx is canceled or its deadline passes
func (e *Executor) Run(ctx context.Context, path string, args []string, timeout time.Duration) (Result, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := e.run(runCtx, path, args)
	if err == nil {
		return res, nil
	}

	// Parent cancellation wins over our own timeout so callers can tell
	// "operation aborted" apart from "this process hung".
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s: %w", filepath.Base(path), ctxErr)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("%w: %s killed after %v", ErrTimeout, filepath.Base(path), timeout)
	}
	return res, err
}

// defaultRun is the production implementation built on os/exec.
func defaultRun(ctx context.Context, path string, args []string) (Result, error) {
	// #nosec G204 -- path is a resolved tool binary and args come from the builders in args.go
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, fmt.Errorf("%w: %s exit status %d", ErrNonZeroExit, filepath.Base(path), res.ExitCode)
	}

	// Process never started (binary missing, permission denied).
	res.ExitCode = -1
	return res, fmt.Errorf("start %s: %w", filepath.Base(path), err)
}

// ---------------------------------------------------------------------------
// VersionChecker
// ---------------------------------------------------------------------------

// VersionChecker verifies FFmpeg version requirements.
type VersionChecker struct {
	executor *Executor
	stderr   io.Writer
}

// VersionCheckerOption configures a VersionChecker.
type VersionCheckerOption func(*VersionChecker)

// WithVersionExecutor sets the executor for running FFmpeg.
func WithVersionExecutor(e *Executor) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.executor = e }
}

// WithVersionStderr sets the writer for warning messages.
func WithVersionStderr(w io.Writer) VersionCheckerOption {
	return func(vc *VersionChecker) { vc.stderr = w }
}

// NewVersionChecker creates a VersionChecker with the given options.
func NewVersionChecker(opts ...VersionCheckerOption) *VersionChecker {
	vc := &VersionChecker{
		executor: NewExecutor(),
		stderr:   os.Stderr,
	}
	for _, opt := range opts {
		opt(vc)
	}
	return vc
}

// versionCheckTimeout bounds the `ffmpeg -version` call.
const versionCheckTimeout = 10 * time.Second

// Check verifies that ffmpeg meets minimum version requirements.
// Prints a warning if the version is below minimum but doesn't fail.
// Returns true if the version was successfully parsed.
func (vc *VersionChecker) Check(ctx context.Context, ffmpegPath string) bool {
	res, err := vc.executor.Run(ctx, ffmpegPath, []string{"-version"}, versionCheckTimeout)
	output := res.Stdout
	if output == "" {
		output = res.Stderr
	}
	if err != nil && output == "" {
		return false
	}

	// "ffmpeg version 6.1.1 Copyright..." or "ffmpeg version n6.1.1..."
	firstLine, _, _ := strings.Cut(output, "\n")
	if firstLine == "" {
		return false
	}

	var major int
	if _, err := fmt.Sscanf(firstLine, "ffmpeg version %d", &major); err != nil {
		if _, err := fmt.Sscanf(firstLine, "ffmpeg version n%d", &major); err != nil {
			return false
		}
	}

	if major < minFFmpegMajorVersion {
		fmt.Fprintf(vc.stderr, "Warning: ffmpeg version %d detected, version %d+ recommended\n",
			major, minFFmpegMajorVersion)
	}
	return true
}

// CheckVersion verifies that ffmpeg meets minimum version requirements
// using a default VersionChecker.
func CheckVersion(ctx context.Context, ffmpegPath string) {
	NewVersionChecker().Check(ctx, ffmpegPath)
}
