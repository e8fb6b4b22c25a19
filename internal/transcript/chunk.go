package transcript

import (
	"fmt"
	"strings"
)

// WordSpan is one transcribed word and its start/end offsets in seconds.
type WordSpan struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ChunkResult is the transcription of one window. Words are relative to
// WindowStart until the result passes through Merge.
type ChunkResult struct {
	WindowStart float64
	Duration    float64
	Text        string
	Words       []WordSpan
	Failed      bool
}

// NewChunkResult validates word timings and returns a chunk result.
// Rejects negative or non-finite times and words ending before they start.
func NewChunkResult(windowStart, duration float64, text string, words []WordSpan) (ChunkResult, error) {
	if !finite(windowStart) || windowStart < 0 {
		return ChunkResult{}, fmt.Errorf("%w: window start %v", ErrInvalidWindow, windowStart)
	}
	if err := ValidateWords(words); err != nil {
		return ChunkResult{}, err
	}
	return ChunkResult{
		WindowStart: windowStart,
		Duration:    duration,
		Text:        strings.TrimSpace(text),
		Words:       words,
	}, nil
}

// FailedChunk is the empty result recorded for a window whose transcription failed.
func FailedChunk(windowStart, duration float64) ChunkResult {
	return ChunkResult{WindowStart: windowStart, Duration: duration, Failed: true}
}

// ValidateWords checks each span has finite, non-negative times with End >= Start.
func ValidateWords(words []WordSpan) error {
	for i, w := range words {
		if !finite(w.Start) || !finite(w.End) || w.Start < 0 || w.End < w.Start {
			return fmt.Errorf("%w: word %d %q [%v, %v]", ErrInvalidWord, i, w.Word, w.Start, w.End)
		}
	}
	return nil
}

// SynthesizeWords approximates word timings for text returned without them
// by dividing duration evenly across the whitespace-separated words.
// The result is an approximation, not aligned speech.
func SynthesizeWords(text string, duration float64) []WordSpan {
	fields := strings.Fields(text)
	if len(fields) == 0 || !finite(duration) || duration <= 0 {
		return nil
	}

	step := duration / float64(len(fields))
	words := make([]WordSpan, len(fields))
	for i, f := range fields {
		words[i] = WordSpan{
			Word:  f,
			Start: float64(i) * step,
			End:   float64(i+1) * step,
		}
	}
	// Pin the final end so rounding never leaves it short of duration.
	words[len(words)-1].End = duration
	return words
}
