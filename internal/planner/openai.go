// Package planner asks a language model to pick clip-worthy moments from a
// word-timestamped transcript.
package planner

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-clipper/internal/apierr"
	"github.com/alnah/go-clipper/internal/clip"
	"github.com/alnah/go-clipper/internal/lang"
	"github.com/alnah/go-clipper/internal/transcript"
)

// Model and retry defaults.
const (
	DefaultModel = openai.GPT4oMini

	// defaultMaxInputChars keeps the prompt well under the model context.
	// Roughly 3 characters per token for mixed-language speech.
	defaultMaxInputChars = 300_000

	// Planning is a one-off request per video, so it can afford more retries
	// than a transcription chunk.
	defaultMaxRetries = 3
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 30 * time.Second

	// DefaultClipCount is how many clips are requested when the caller passes n <= 0.
	DefaultClipCount = 5
)

// Planner proposes clips for a transcript.
type Planner interface {
	Plan(ctx context.Context, tr transcript.Transcript, n int, outputLang lang.Language) ([]clip.Request, error)
}

// chatCompleter is the subset of *openai.Client used here.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Planner       = (*OpenAIPlanner)(nil)
	_ chatCompleter = (*openai.Client)(nil)
)

// OpenAIPlanner plans clips with an OpenAI chat model in JSON mode.
type OpenAIPlanner struct {
	client        chatCompleter
	model         string
	maxInputChars int
	retry         apierr.RetryConfig
	logger        *slog.Logger
}

// Option configures an OpenAIPlanner.
type Option func(*OpenAIPlanner)

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(p *OpenAIPlanner) {
		if model != "" {
			p.model = model
		}
	}
}

// WithMaxInputChars sets the transcript size limit.
func WithMaxInputChars(n int) Option {
	return func(p *OpenAIPlanner) {
		if n > 0 {
			p.maxInputChars = n
		}
	}
}

// WithRetry sets the retry policy for transient API errors.
func WithRetry(cfg apierr.RetryConfig) Option {
	return func(p *OpenAIPlanner) { p.retry = cfg }
}

// WithLogger sets the logger for dropped clips.
func WithLogger(l *slog.Logger) Option {
	return func(p *OpenAIPlanner) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewOpenAIPlanner wraps an OpenAI client.
func NewOpenAIPlanner(client *openai.Client, opts ...Option) *OpenAIPlanner {
	return newOpenAIPlanner(client, opts...)
}

func newOpenAIPlanner(client chatCompleter, opts ...Option) *OpenAIPlanner {
	p := &OpenAIPlanner{
		client:        client,
		model:         DefaultModel,
		maxInputChars: defaultMaxInputChars,
		retry: apierr.RetryConfig{
			MaxRetries: defaultMaxRetries,
			BaseDelay:  defaultBaseDelay,
			MaxDelay:   defaultMaxDelay,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan asks the model for up to n clips and returns the valid ones, ordered
// by start time. Proposals that fail clip validation or run past the end of
// the transcript are dropped and logged. Returns ErrNoClips if none survive.
func (p *OpenAIPlanner) Plan(ctx context.Context, tr transcript.Transcript, n int, outputLang lang.Language) ([]clip.Request, error) {
	if n <= 0 {
		n = DefaultClipCount
	}
	if len(tr.Words) == 0 {
		return nil, ErrEmptyTranscript
	}

	body := timestampedLines(tr.Words)
	if len(body) > p.maxInputChars {
		return nil, fmt.Errorf("%w: %dK characters, limit %dK",
			ErrTranscriptTooLong, len(body)/1000, p.maxInputChars/1000)
	}

	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(n, int(clip.MaxDuration), outputLang)},
			{Role: openai.ChatMessageRoleUser, Content: body},
		},
	}

	content, err := apierr.RetryWithBackoff(ctx, p.retry, func() (string, error) {
		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", apierr.ClassifyOpenAI(err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no response from API")
		}
		return resp.Choices[0].Message.Content, nil
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("plan clips: %w", err)
	}

	proposed, err := clip.DecodePlan(strings.NewReader(content))
	if err != nil {
		return nil, err
	}
	return p.filter(proposed, n, tr.DurationEstimate)
}

// filter keeps the n best valid proposals and sorts them by start time.
func (p *OpenAIPlanner) filter(proposed []clip.Request, n int, total float64) ([]clip.Request, error) {
	kept := make([]clip.Request, 0, len(proposed))
	for _, r := range proposed {
		if err := r.Validate(); err != nil {
			p.logger.Warn("proposed clip dropped", "title", r.Title, "error", err)
			continue
		}
		if total > 0 && r.EndTime > total {
			p.logger.Warn("proposed clip dropped", "title", r.Title,
				"error", fmt.Sprintf("ends at %.2fs, after the recording (%.2fs)", r.EndTime, total))
			continue
		}
		kept = append(kept, r)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: %d proposed, none valid", ErrNoClips, len(proposed))
	}

	slices.SortStableFunc(kept, func(a, b clip.Request) int { return cmp.Compare(b.SocialScore, a.SocialScore) })
	kept = kept[:min(n, len(kept))]
	slices.SortStableFunc(kept, func(a, b clip.Request) int { return cmp.Compare(a.StartTime, b.StartTime) })
	return kept, nil
}
