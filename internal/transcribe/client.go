package transcribe

import (
	"context"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-clipper/internal/apierr"
	"github.com/alnah/go-clipper/internal/lang"
	"github.com/alnah/go-clipper/internal/transcript"
)

// ModelWhisper is the only OpenAI transcription model that returns
// word-level timestamps.
const ModelWhisper = openai.Whisper1

// Request describes one audio file to transcribe.
type Request struct {
	AudioPath string
	Language  lang.Language // zero value lets the service auto-detect
	Prompt    string        // optional vocabulary/context hint
}

// Response is the service output for one file. Word times are relative to
// the start of the file.
type Response struct {
	Text     string
	Duration float64
	Words    []transcript.WordSpan
}

// Client transcribes a single audio file.
// Implementations make exactly one service call per invocation; retrying is
// the caller's decision.
type Client interface {
	Transcribe(ctx context.Context, req Request) (Response, error)
}

// audioTranscriber is the subset of *openai.Client used here.
// This allows injecting mocks in tests.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Client           = (*OpenAIClient)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// OpenAIClient calls the OpenAI audio transcription endpoint.
type OpenAIClient struct {
	client audioTranscriber
	model  string
}

// ClientOption configures an OpenAIClient.
type ClientOption func(*OpenAIClient)

// WithModel overrides the transcription model.
func WithModel(model string) ClientOption {
	return func(c *OpenAIClient) { c.model = model }
}

// NewOpenAIClient wraps an OpenAI client. Construct once per process and reuse.
func NewOpenAIClient(client *openai.Client, opts ...ClientOption) *OpenAIClient {
	return newOpenAIClient(client, opts...)
}

func newOpenAIClient(client audioTranscriber, opts ...ClientOption) *OpenAIClient {
	c := &OpenAIClient{client: client, model: ModelWhisper}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe sends req.AudioPath with verbose_json and word granularity.
// The service may decline word detail, in which case Words is empty.
// Errors wrap ErrTranscriptionService and an apierr classification, or
// ErrMalformedResponse for unusable word timings.
func (c *OpenAIClient) Transcribe(ctx context.Context, req Request) (Response, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:                  c.model,
		FilePath:               req.AudioPath,
		Format:                 openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{openai.TranscriptionTimestampGranularityWord},
		Language:               req.Language.BaseCode(), // OpenAI only accepts ISO 639-1 base codes
		Prompt:                 req.Prompt,
	})
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrTranscriptionService, apierr.ClassifyOpenAI(err))
	}

	if math.IsNaN(resp.Duration) || math.IsInf(resp.Duration, 0) || resp.Duration < 0 {
		return Response{}, fmt.Errorf("%w: duration %v", ErrMalformedResponse, resp.Duration)
	}

	words := make([]transcript.WordSpan, 0, len(resp.Words))
	for _, w := range resp.Words {
		words = append(words, transcript.WordSpan{Word: w.Word, Start: w.Start, End: w.End})
	}
	if err := transcript.ValidateWords(words); err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return Response{Text: resp.Text, Duration: resp.Duration, Words: words}, nil
}
