package transcript

import (
	"strings"
)

// Transcript is the merged result of all chunks of one recording.
type Transcript struct {
	Text             string     `json:"text"`
	DurationEstimate float64    `json:"duration_estimate"`
	Words            []WordSpan `json:"words"`
	Chunks           int        `json:"chunks"`
	Skipped          int        `json:"skipped_chunks"`
}

// Partial reports whether at least one chunk contributed nothing because it failed.
func (t Transcript) Partial() bool {
	return t.Skipped > 0
}

// Merge combines chunk results, given in window order, into one transcript.
//
// Word times are shifted by each chunk's WindowStart. Repeated speech in the
// overlap between windows is not deduplicated by content; a shifted word
// starting before the last kept word is dropped so Words stays sorted by Start.
// Failed chunks are counted in Skipped.
//
// DurationEstimate is the latest word end, or the last window start plus
// chunkDuration when no word data exists.
func Merge(results []ChunkResult, chunkDuration float64) Transcript {
	tr := Transcript{Chunks: len(results)}
	if len(results) == 0 {
		return tr
	}

	texts := make([]string, 0, len(results))
	lastStart := -1.0
	for _, r := range results {
		if r.Failed {
			tr.Skipped++
			continue
		}
		if r.Text != "" {
			texts = append(texts, r.Text)
		}
		for _, w := range r.Words {
			abs := WordSpan{Word: w.Word, Start: w.Start + r.WindowStart, End: w.End + r.WindowStart}
			if abs.Start < lastStart {
				continue
			}
			lastStart = abs.Start
			tr.Words = append(tr.Words, abs)
			tr.DurationEstimate = max(tr.DurationEstimate, abs.End)
		}
	}

	if len(tr.Words) > 0 {
		tr.Text = JoinWords(tr.Words)
	} else {
		tr.Text = strings.Join(texts, " ")
		tr.DurationEstimate = results[len(results)-1].WindowStart + chunkDuration
	}
	return tr
}

// JoinWords joins word fields with single spaces.
func JoinWords(words []WordSpan) string {
	var b strings.Builder
	for _, w := range words {
		word := strings.TrimSpace(w.Word)
		if word == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}
	return b.String()
}
