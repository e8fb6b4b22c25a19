package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/alnah/go-clipper/internal/apierr"
	"github.com/alnah/go-clipper/internal/clip"
	"github.com/alnah/go-clipper/internal/config"
	"github.com/alnah/go-clipper/internal/ffmpeg"
	"github.com/alnah/go-clipper/internal/lang"
	"github.com/alnah/go-clipper/internal/media"
	"github.com/alnah/go-clipper/internal/planner"
	"github.com/alnah/go-clipper/internal/store"
	"github.com/alnah/go-clipper/internal/transcribe"
	"github.com/alnah/go-clipper/internal/transcript"
)

// Process exit codes.
const (
	ExitOK            = 0
	ExitGeneral       = 1
	ExitUsage         = 2
	ExitSetup         = 3
	ExitValidation    = 4
	ExitTranscription = 5
	ExitClip          = 6
	ExitInterrupt     = 130
)

// outcome is the exit code and remediation hint for one class of error.
type outcome struct {
	target error
	code   int
	hint   string
}

// outcomes is checked in order; the first errors.Is match wins.
var outcomes = []outcome{
	{context.Canceled, ExitInterrupt, ""},
	{ErrPlanRequired, ExitUsage, "Pass --plan <file.json> or --generate <n>."},

	{ffmpeg.ErrNotFound, ExitSetup, "Install FFmpeg or set FFMPEG_PATH and FFPROBE_PATH."},
	{ErrAPIKeyMissing, ExitSetup, "Set it with: export OPENAI_API_KEY=sk-... (or add it to a .env file)."},
	{store.ErrUnavailable, ExitSetup, "Check database-url and that PostgreSQL is reachable."},

	{ErrFileNotFound, ExitValidation, ""},
	{ErrOutputExists, ExitValidation, "Choose another --output or remove the existing file."},
	{ErrInvalidFlag, ExitValidation, ""},
	{lang.ErrInvalid, ExitValidation, "Use ISO 639-1 codes such as en, fr or pt-BR."},
	{config.ErrUnknownKey, ExitValidation, "Run 'clipper config list' to see the supported keys."},
	{config.ErrInvalidValue, ExitValidation, "Fix the value with 'clipper config set' or the CLIPPER_* variable."},
	{clip.ErrInvalidPlan, ExitValidation, `A plan is {"clips": [...]} or a JSON array of clips.`},
	{transcript.ErrInvalidPlan, ExitValidation, "The media reports an unusable duration, or --overlap is not shorter than --chunk."},
	{media.ErrProbe, ExitValidation, "Check the file plays locally; ffprobe could not read its duration."},
	{media.ErrExtraction, ExitValidation, "No usable audio track was found in the file."},
	{planner.ErrEmptyTranscript, ExitValidation, "No speech was recognized; pass --plan instead."},
	{planner.ErrTranscriptTooLong, ExitValidation, "The transcript is too long to plan from; pass --plan instead."},

	{transcribe.ErrOperationTimeout, ExitTranscription, "Raise the limit with: clipper config set timeout 60m"},
	{apierr.ErrAuthFailed, ExitTranscription, "Check that OPENAI_API_KEY is valid."},
	{apierr.ErrQuotaExceeded, ExitTranscription, "Check your OpenAI billing and usage limits."},
	{apierr.ErrRateLimit, ExitTranscription, "Retry later or lower --parallel."},
	{apierr.ErrTimeout, ExitTranscription, "Check your network connection and retry."},
	{transcribe.ErrTranscriptionService, ExitTranscription, "The transcription service failed; retry later."},

	{ErrNoClipsCut, ExitClip, "Run with CLIPPER_LOG=debug to see the ffmpeg output of each cut."},
	{clip.ErrCut, ExitClip, ""},
	{clip.ErrOperationTimeout, ExitClip, "Raise the limit with: clipper config set timeout 60m"},
	{planner.ErrNoClips, ExitClip, "No clip-worthy moment was found; pass --plan instead."},
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	for _, o := range outcomes {
		if errors.Is(err, o.target) {
			return o.code
		}
	}
	if isCobraUsageError(err) {
		return ExitUsage
	}
	return ExitGeneral
}

// Hint returns a one-line remediation for err, or "" when there is none.
func Hint(err error) string {
	if err == nil {
		return ""
	}
	for _, o := range outcomes {
		if errors.Is(err, o.target) {
			return o.hint
		}
	}
	return ""
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	msg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
