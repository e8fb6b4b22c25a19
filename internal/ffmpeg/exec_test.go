package ffmpeg

// Notes:
// - defaultRun tests spawn real processes through /bin/sh; skipped on Windows
// - Executor.Run error mapping is tested with an injected runFn
// - CheckVersion tests use an Executor with a mock runFn

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
}

// ---------------------------------------------------------------------------
// Executor.Run with real processes
// ---------------------------------------------------------------------------

func TestExecutor_Run_RealProcess(t *testing.T) {
	t.Parallel()
	skipWithoutShell(t)

	tests := []struct {
		name         string
		script       string
		timeout      time.Duration
		wantExit     int
		wantStdout   string
		wantStderr   string
		wantSentinel error
	}{
		{
			name:       "success captures stdout",
			script:     "printf '123.456'",
			wantExit:   0,
			wantStdout: "123.456",
		},
		{
			name:         "non-zero exit captures stderr",
			script:       "echo 'Invalid data found' >&2; exit 3",
			wantExit:     3,
			wantStderr:   "Invalid data found\n",
			wantSentinel: ErrNonZeroExit,
		},
		{
			name:         "hung process is killed",
			script:       "exec sleep 10",
			timeout:      100 * time.Millisecond,
			wantSentinel: ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewExecutor()
			start := time.Now()
			res, err := e.Run(context.Background(), "/bin/sh", []string{"-c", tt.script}, tt.timeout)

			if tt.wantSentinel != nil {
				if !errors.Is(err, tt.wantSentinel) {
					t.Fatalf("Run() error = %v, want %v", err, tt.wantSentinel)
				}
			} else if err != nil {
				t.Fatalf("Run() unexpected error: %v", err)
			}

			if tt.wantSentinel == ErrTimeout {
				if elapsed := time.Since(start); elapsed > 8*time.Second {
					t.Errorf("Run() took %v, want the timeout to kill the process", elapsed)
				}
				return
			}
			if res.ExitCode != tt.wantExit {
				t.Errorf("ExitCode = %d, want %d", res.ExitCode, tt.wantExit)
			}
			if res.Stdout != tt.wantStdout {
				t.Errorf("Stdout = %q, want %q", res.Stdout, tt.wantStdout)
			}
			if res.Stderr != tt.wantStderr {
				t.Errorf("Stderr = %q, want %q", res.Stderr, tt.wantStderr)
			}
		})
	}
}

func TestExecutor_Run_MissingBinary(t *testing.T) {
	t.Parallel()

	e := NewExecutor()
	res, err := e.Run(context.Background(), "/nonexistent/ffmpeg", nil, time.Second)
	if err == nil {
		t.Fatal("Run() error = nil, want error")
	}
	if errors.Is(err, ErrNonZeroExit) {
		t.Errorf("Run() error = %v, should not be ErrNonZeroExit for a process that never started", err)
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", res.ExitCode)
	}
}

func TestExecutor_Run_ParentCancelWinsOverTimeout(t *testing.T) {
	t.Parallel()
	skipWithoutShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := NewExecutor().Run(ctx, "/bin/sh", []string{"-c", "exec sleep 10"}, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Errorf("Run() error = %v, must not report a per-call timeout", err)
	}
}

// ---------------------------------------------------------------------------
// Executor.Run with injected runFn
// ---------------------------------------------------------------------------

func TestExecutor_Run_PassesArgs(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotArgs []string
	e := NewExecutor(WithRunFunc(func(_ context.Context, path string, args []string) (Result, error) {
		gotPath, gotArgs = path, args
		return Result{Stdout: "ok"}, nil
	}))

	res, err := e.Run(context.Background(), "/usr/bin/ffprobe", []string{"-v", "error"}, 0)
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if gotPath != "/usr/bin/ffprobe" || strings.Join(gotArgs, " ") != "-v error" {
		t.Errorf("runFn got (%q, %q)", gotPath, gotArgs)
	}
	if res.Stdout != "ok" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "ok")
	}
}

func TestResult_Tail(t *testing.T) {
	t.Parallel()

	r := Result{Stderr: "a\nb\nc\nd\n"}
	if got := r.Tail(2); got != "c\nd" {
		t.Errorf("Tail(2) = %q, want %q", got, "c\nd")
	}
	if got := r.Tail(10); got != "a\nb\nc\nd" {
		t.Errorf("Tail(10) = %q, want all lines", got)
	}
}

// ---------------------------------------------------------------------------
// VersionChecker
// ---------------------------------------------------------------------------

func TestVersionChecker_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		stdout      string
		err         error
		wantOK      bool
		wantWarning bool
	}{
		{name: "modern version", stdout: "ffmpeg version 6.1.1 Copyright (c) 2000-2023", wantOK: true},
		{name: "n-prefixed version", stdout: "ffmpeg version n7.0 Copyright", wantOK: true},
		{name: "old version warns", stdout: "ffmpeg version 3.4.8 Copyright", wantOK: true, wantWarning: true},
		{name: "unparseable", stdout: "something else", wantOK: false},
		{name: "failed without output", err: errors.New("boom"), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stderr bytes.Buffer
			executor := NewExecutor(WithRunFunc(func(context.Context, string, []string) (Result, error) {
				return Result{Stdout: tt.stdout}, tt.err
			}))
			vc := NewVersionChecker(WithVersionExecutor(executor), WithVersionStderr(&stderr))

			if got := vc.Check(context.Background(), "/usr/bin/ffmpeg"); got != tt.wantOK {
				t.Errorf("Check() = %v, want %v", got, tt.wantOK)
			}
			if gotWarning := strings.Contains(stderr.String(), "Warning"); gotWarning != tt.wantWarning {
				t.Errorf("warning printed = %v, want %v (stderr %q)", gotWarning, tt.wantWarning, stderr.String())
			}
		})
	}
}
