package transcript_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alnah/go-clipper/internal/transcript"
)

func TestWriteSRT(t *testing.T) {
	t.Parallel()

	tr := transcript.Transcript{
		Words: words("Hello", 0.0, 0.4, "there.", 0.5, 1.0, "How", 61.25, 61.5, "are", 61.5, 61.7, "you?", 61.7, 62.0),
	}

	var buf bytes.Buffer
	if err := transcript.WriteSRT(&buf, tr); err != nil {
		t.Fatalf("WriteSRT() error: %v", err)
	}

	want := "1\n00:00:00,000 --> 00:00:01,000\nHello there.\n\n" +
		"2\n00:01:01,250 --> 00:01:02,000\nHow are you?\n\n"
	if buf.String() != want {
		t.Errorf("WriteSRT() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteSRT_SplitsLongCues(t *testing.T) {
	t.Parallel()

	var ws []transcript.WordSpan
	for i := range 30 {
		ws = append(ws, transcript.WordSpan{Word: "w", Start: float64(i) * 0.3, End: float64(i)*0.3 + 0.25})
	}

	var buf bytes.Buffer
	if err := transcript.WriteSRT(&buf, transcript.Transcript{Words: ws}); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), " --> "); n < 3 {
		t.Errorf("got %d cues for 30 words, want at least 3", n)
	}
}

func TestWriteSRT_TextOnly(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tr := transcript.Transcript{Text: "no timings here", DurationEstimate: 300}
	if err := transcript.WriteSRT(&buf, tr); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "00:00:00,000 --> 00:05:00,000\nno timings here") {
		t.Errorf("WriteSRT() = %q", buf.String())
	}
}

func TestWrite_Formats(t *testing.T) {
	t.Parallel()

	tr := transcript.Transcript{Text: "hi", Words: words("hi", 0.0, 0.5), Chunks: 1, Skipped: 0}

	var text bytes.Buffer
	if err := transcript.Write(&text, tr, transcript.FormatText); err != nil || text.String() != "hi\n" {
		t.Errorf("text = %q, %v", text.String(), err)
	}

	var js bytes.Buffer
	if err := transcript.Write(&js, tr, transcript.FormatJSON); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"text", "words", "duration_estimate", "skipped_chunks"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("JSON missing %q: %s", key, js.String())
		}
	}

	if err := transcript.Write(&bytes.Buffer{}, tr, "docx"); err == nil {
		t.Error("Write(docx) error = nil, want error")
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		wantText string
		wantErr  bool
	}{
		{
			name:     "round trip of WriteJSON output",
			input:    `{"text":"hi there","duration_estimate":1,"words":[{"word":"hi","start":0,"end":0.4},{"word":"there","start":0.5,"end":1}],"chunks":1,"skipped_chunks":0}`,
			wantText: "hi there",
		},
		{
			name:     "text rebuilt from words",
			input:    `{"words":[{"word":"a","start":0,"end":1},{"word":"b","start":1,"end":2}]}`,
			wantText: "a b",
		},
		{name: "unsorted words", input: `{"words":[{"word":"b","start":5,"end":6},{"word":"a","start":1,"end":2}]}`, wantErr: true},
		{name: "end before start", input: `{"words":[{"word":"a","start":3,"end":2}]}`, wantErr: true},
		{name: "not JSON", input: `hello`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr, err := transcript.Decode(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Error("Decode() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if tr.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", tr.Text, tt.wantText)
			}
		})
	}
}

func TestIsFormat(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"json", "text", "srt"} {
		if !transcript.IsFormat(name) {
			t.Errorf("IsFormat(%q) = false", name)
		}
	}
	if transcript.IsFormat("vtt") || transcript.IsFormat("") {
		t.Error("IsFormat accepted an unsupported name")
	}
}
