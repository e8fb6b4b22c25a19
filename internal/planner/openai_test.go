package planner_test

// Notes:
// - Uses a real *openai.Client pointed at an httptest.Server, so request
//   encoding and API error decoding go through go-openai itself
// - Retry delays are shortened with WithRetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-clipper/internal/apierr"
	"github.com/alnah/go-clipper/internal/clip"
	"github.com/alnah/go-clipper/internal/lang"
	"github.com/alnah/go-clipper/internal/planner"
	"github.com/alnah/go-clipper/internal/transcript"
)

// ---------------------------------------------------------------------------
// Helpers - chat completions mock server
// ---------------------------------------------------------------------------

type mockResp struct {
	status  int
	content string // assistant message content for 200, error message otherwise
}

type chatServer struct {
	*httptest.Server
	mu        sync.Mutex
	requests  []openai.ChatCompletionRequest
	responses []mockResp
}

func newChatServer(t *testing.T, responses ...mockResp) *chatServer {
	t.Helper()
	s := &chatServer{responses: responses}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		idx := min(len(s.requests), len(s.responses)-1)
		s.requests = append(s.requests, req)
		resp := s.responses[idx]
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if resp.status != http.StatusOK {
			w.WriteHeader(resp.status)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": resp.content, "type": "test_error"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": resp.content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *chatServer) Requests() []openai.ChatCompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]openai.ChatCompletionRequest(nil), s.requests...)
}

func newPlanner(s *chatServer, opts ...planner.Option) *planner.OpenAIPlanner {
	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = s.URL + "/v1"
	opts = append([]planner.Option{
		planner.WithRetry(apierr.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}),
	}, opts...)
	return planner.NewOpenAIPlanner(openai.NewClientWithConfig(cfg), opts...)
}

// tenMinutes is a transcript with one word every 2 seconds for 600s.
func tenMinutes() transcript.Transcript {
	var words []transcript.WordSpan
	for t := 0.0; t < 600; t += 2 {
		words = append(words, transcript.WordSpan{Word: "word.", Start: t, End: t + 1.5})
	}
	return transcript.Transcript{Words: words, Text: transcript.JoinWords(words), DurationEstimate: 599.5}
}

// ---------------------------------------------------------------------------
// Plan
// ---------------------------------------------------------------------------

func TestOpenAIPlanner_Plan(t *testing.T) {
	t.Parallel()

	plan := `{"clips":[
		{"title":"Late","start_time":400,"end_time":450,"social_score":6},
		{"title":"Best","start_time":100,"end_time":160,"social_score":9.5},
		{"title":"Too long","start_time":0,"end_time":400,"social_score":10},
		{"title":"Past the end","start_time":580,"end_time":640,"social_score":9},
		{"title":"Weak","start_time":200,"end_time":230,"social_score":2}
	]}`
	s := newChatServer(t, mockResp{status: http.StatusOK, content: plan})

	got, err := newPlanner(s).Plan(context.Background(), tenMinutes(), 2, "")
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}

	var titles []string
	for _, r := range got {
		titles = append(titles, r.Title)
	}
	if strings.Join(titles, ",") != "Best,Late" {
		t.Errorf("Plan() titles = %v, want top 2 valid clips by score, ordered by start", titles)
	}

	reqs := s.Requests()
	if len(reqs) != 1 {
		t.Fatalf("API calls = %d, want 1", len(reqs))
	}
	req := reqs[0]
	if req.Model != planner.DefaultModel {
		t.Errorf("Model = %q, want %q", req.Model, planner.DefaultModel)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Errorf("ResponseFormat = %+v, want json_object", req.ResponseFormat)
	}
	if len(req.Messages) != 2 || !strings.HasPrefix(req.Messages[1].Content, "[0.00-") {
		t.Errorf("user message should carry timestamped lines, got %+v", req.Messages)
	}
}

func TestOpenAIPlanner_Plan_LanguageInstruction(t *testing.T) {
	t.Parallel()

	s := newChatServer(t, mockResp{status: http.StatusOK,
		content: `{"clips":[{"title":"Un","start_time":10,"end_time":40,"social_score":5}]}`})

	fr, err := lang.Parse("fr")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := newPlanner(s, planner.WithModel("gpt-4o")).Plan(context.Background(), tenMinutes(), 1, fr); err != nil {
		t.Fatalf("Plan() error: %v", err)
	}

	req := s.Requests()[0]
	if req.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o", req.Model)
	}
	if !strings.HasPrefix(req.Messages[0].Content, "Write titles and descriptions in French.") {
		t.Errorf("system prompt = %q, want French instruction first", req.Messages[0].Content[:60])
	}
}

func TestOpenAIPlanner_Plan_RetriesTransientErrors(t *testing.T) {
	t.Parallel()

	s := newChatServer(t,
		mockResp{status: http.StatusTooManyRequests, content: "Rate limit reached"},
		mockResp{status: http.StatusServiceUnavailable, content: "overloaded"},
		mockResp{status: http.StatusOK, content: `[{"title":"A","start_time":10,"end_time":40}]`},
	)

	got, err := newPlanner(s).Plan(context.Background(), tenMinutes(), 3, "")
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if len(got) != 1 || len(s.Requests()) != 3 {
		t.Errorf("got %d clips after %d calls, want 1 after 3", len(got), len(s.Requests()))
	}
}

func TestOpenAIPlanner_Plan_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		resp      mockResp
		tr        transcript.Transcript
		opts      []planner.Option
		wantErr   error
		wantCalls int
	}{
		{
			name:      "auth failure is not retried",
			resp:      mockResp{status: http.StatusUnauthorized, content: "Incorrect API key"},
			tr:        tenMinutes(),
			wantErr:   apierr.ErrAuthFailed,
			wantCalls: 1,
		},
		{
			name:      "quota exceeded is not retried",
			resp:      mockResp{status: http.StatusTooManyRequests, content: "You exceeded your current quota"},
			tr:        tenMinutes(),
			wantErr:   apierr.ErrQuotaExceeded,
			wantCalls: 1,
		},
		{
			name:      "malformed plan",
			resp:      mockResp{status: http.StatusOK, content: `{"clips": "soon"}`},
			tr:        tenMinutes(),
			wantErr:   clip.ErrInvalidPlan,
			wantCalls: 1,
		},
		{
			name:      "no valid clips",
			resp:      mockResp{status: http.StatusOK, content: `{"clips":[{"title":"x","start_time":50,"end_time":20}]}`},
			tr:        tenMinutes(),
			wantErr:   planner.ErrNoClips,
			wantCalls: 1,
		},
		{
			name:    "empty transcript",
			resp:    mockResp{status: http.StatusOK},
			tr:      transcript.Transcript{},
			wantErr: planner.ErrEmptyTranscript,
		},
		{
			name:    "transcript too long",
			resp:    mockResp{status: http.StatusOK},
			tr:      tenMinutes(),
			opts:    []planner.Option{planner.WithMaxInputChars(100)},
			wantErr: planner.ErrTranscriptTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newChatServer(t, tt.resp)
			_, err := newPlanner(s, tt.opts...).Plan(context.Background(), tt.tr, 3, "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Plan() error = %v, want %v", err, tt.wantErr)
			}
			if got := len(s.Requests()); got != tt.wantCalls {
				t.Errorf("API calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Prompt helpers
// ---------------------------------------------------------------------------

func TestTimestampedLines(t *testing.T) {
	t.Parallel()

	words := []transcript.WordSpan{
		{Word: "Hello", Start: 0, End: 0.5},
		{Word: "there.", Start: 0.6, End: 1},
		{Word: "So", Start: 9, End: 9.2},
		{Word: "anyway.", Start: 9.3, End: 10},
		{Word: "Next", Start: 30, End: 30.4},
	}
	got := planner.TimestampedLines(words)
	want := "[0.00-10.00] Hello there. So anyway.\n[30.00-30.40] Next\n"
	if got != want {
		t.Errorf("TimestampedLines() = %q, want %q", got, want)
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	t.Parallel()

	got := planner.BuildSystemPrompt(4, 300, "")
	for _, want := range []string{"at most 4 clips", "15 and 300 seconds", `"clips"`} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	en, _ := lang.Parse("en-GB")
	if strings.Contains(planner.BuildSystemPrompt(4, 300, en), "Write titles") {
		t.Error("English output should not add a language instruction")
	}
}
