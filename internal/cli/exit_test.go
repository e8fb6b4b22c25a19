package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/alnah/go-clipper/internal/apierr"
	"github.com/alnah/go-clipper/internal/clip"
	"github.com/alnah/go-clipper/internal/config"
	"github.com/alnah/go-clipper/internal/ffmpeg"
	"github.com/alnah/go-clipper/internal/media"
	"github.com/alnah/go-clipper/internal/planner"
	"github.com/alnah/go-clipper/internal/store"
	"github.com/alnah/go-clipper/internal/transcribe"
	"github.com/alnah/go-clipper/internal/transcript"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"interrupted", fmt.Errorf("transcribe: %w", context.Canceled), ExitInterrupt},
		{"plan required", ErrPlanRequired, ExitUsage},
		{"cobra unknown flag", errors.New("unknown flag: --colour"), ExitUsage},
		{"cobra arg count", errors.New("accepts 1 arg(s), received 0"), ExitUsage},
		{"cobra unknown command", errors.New(`unknown command "trancsribe" for "clipper"`), ExitUsage},
		{"ffmpeg missing", fmt.Errorf("resolve: %w", ffmpeg.ErrNotFound), ExitSetup},
		{"api key", ErrAPIKeyMissing, ExitSetup},
		{"database", fmt.Errorf("%w: refused", store.ErrUnavailable), ExitSetup},
		{"input missing", ErrFileNotFound, ExitValidation},
		{"output exists", ErrOutputExists, ExitValidation},
		{"config value", config.ErrInvalidValue, ExitValidation},
		{"bad plan", fmt.Errorf("%w: eof", clip.ErrInvalidPlan), ExitValidation},
		{"bad chunk plan", transcript.ErrInvalidPlan, ExitValidation},
		{"unreadable media", fmt.Errorf("%w: moov atom not found", media.ErrProbe), ExitValidation},
		{"empty transcript", planner.ErrEmptyTranscript, ExitValidation},
		{"timeout", transcribe.ErrOperationTimeout, ExitTranscription},
		{"auth", fmt.Errorf("chunk 2: %w", apierr.ErrAuthFailed), ExitTranscription},
		{"service", transcribe.ErrTranscriptionService, ExitTranscription},
		{"no clips cut", ErrNoClipsCut, ExitClip},
		{"clip timeout", fmt.Errorf("%w after 30m0s: %v", clip.ErrOperationTimeout, context.DeadlineExceeded), ExitClip},
		{"planner empty", planner.ErrNoClips, ExitClip},
		{"unknown", errors.New("boom"), ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestHint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"nil", nil, ""},
		{"api key", ErrAPIKeyMissing, "OPENAI_API_KEY"},
		{"ffmpeg", ffmpeg.ErrNotFound, "FFMPEG_PATH"},
		{"timeout", fmt.Errorf("wrapped: %w", transcribe.ErrOperationTimeout), "config set timeout"},
		{"rate limit", apierr.ErrRateLimit, "--parallel"},
		{"no clips cut", ErrNoClipsCut, "CLIPPER_LOG=debug"},
		{"plan required", ErrPlanRequired, "--generate"},
		{"unknown", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Hint(tt.err)
			if tt.contains == "" {
				if got != "" {
					t.Errorf("Hint(%v) = %q, want empty", tt.err, got)
				}
				return
			}
			if !strings.Contains(got, tt.contains) {
				t.Errorf("Hint(%v) = %q, want it to mention %q", tt.err, got, tt.contains)
			}
		})
	}
}
