package planner

import (
	"fmt"
	"strings"

	"github.com/alnah/go-clipper/internal/lang"
	"github.com/alnah/go-clipper/internal/transcript"
)

// segmentSeconds is the span of transcript each timestamped line covers.
const segmentSeconds = 15.0

const systemPrompt = `You select short, self-contained moments from an interview transcript that will perform well as social media clips.

Each transcript line is prefixed with its start and end time in seconds, like [12.40-27.10].

Return a JSON object of the form:
{"clips": [{"title": "...", "description": "...", "start_time": 12.4, "end_time": 58.0, "social_score": 8.5}]}

Rules:
- Return at most %d clips, best first.
- start_time and end_time are seconds taken from the transcript timestamps.
- Each clip lasts between 15 and %d seconds and starts and ends on a complete sentence.
- social_score is 0 to 10, higher means more likely to be shared.
- title is under 80 characters; description is one or two sentences.`

// buildSystemPrompt returns the instructions for n clips in outputLang.
func buildSystemPrompt(n int, maxClipSeconds int, outputLang lang.Language) string {
	prompt := fmt.Sprintf(systemPrompt, n, maxClipSeconds)
	if !outputLang.IsZero() && outputLang.BaseCode() != "en" {
		prompt = fmt.Sprintf("Write titles and descriptions in %s.\n\n%s", outputLang.DisplayName(), prompt)
	}
	return prompt
}

// timestampedLines renders words as lines of about segmentSeconds each,
// breaking early after sentence punctuation once half a segment has passed.
func timestampedLines(words []transcript.WordSpan) string {
	var b strings.Builder
	var line []string
	var lineStart, lineEnd float64

	flush := func() {
		if len(line) == 0 {
			return
		}
		fmt.Fprintf(&b, "[%.2f-%.2f] %s\n", lineStart, lineEnd, strings.Join(line, " "))
		line = line[:0]
	}

	for _, w := range words {
		word := strings.TrimSpace(w.Word)
		if word == "" {
			continue
		}
		if len(line) == 0 {
			lineStart = w.Start
		}
		line = append(line, word)
		lineEnd = w.End

		elapsed := lineEnd - lineStart
		if elapsed >= segmentSeconds || (elapsed >= segmentSeconds/2 && endsSentence(word)) {
			flush()
		}
	}
	flush()
	return b.String()
}

func endsSentence(word string) bool {
	return strings.HasSuffix(word, ".") || strings.HasSuffix(word, "?") || strings.HasSuffix(word, "!")
}
