package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/alnah/go-clipper/internal/format"
)

// SubRip cue limits. A cue closes at whichever limit is hit first, or after
// sentence-ending punctuation.
const (
	maxCueWords    = 12
	maxCueDuration = 5.0 // seconds
)

// cue is one SubRip subtitle entry.
type cue struct {
	start, end float64
	text       string
}

// WriteSRT renders the transcript as SubRip subtitles.
// Without word data the whole text becomes a single cue spanning the estimate.
func WriteSRT(w io.Writer, tr Transcript) error {
	cues := buildCues(tr)
	for i, c := range cues {
		if _, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			i+1, format.SRTTimestamp(c.start), format.SRTTimestamp(c.end), c.text); err != nil {
			return fmt.Errorf("write srt cue %d: %w", i+1, err)
		}
	}
	return nil
}

func buildCues(tr Transcript) []cue {
	if len(tr.Words) == 0 {
		if strings.TrimSpace(tr.Text) == "" {
			return nil
		}
		return []cue{{start: 0, end: tr.DurationEstimate, text: tr.Text}}
	}

	var cues []cue
	var cur []WordSpan
	flush := func() {
		if len(cur) == 0 {
			return
		}
		cues = append(cues, cue{start: cur[0].Start, end: cur[len(cur)-1].End, text: JoinWords(cur)})
		cur = cur[:0]
	}

	for _, word := range tr.Words {
		if len(cur) > 0 && (len(cur) >= maxCueWords || word.End-cur[0].Start > maxCueDuration) {
			flush()
		}
		cur = append(cur, word)
		if endsSentence(word.Word) {
			flush()
		}
	}
	flush()
	return cues
}

func endsSentence(word string) bool {
	return strings.HasSuffix(word, ".") || strings.HasSuffix(word, "?") || strings.HasSuffix(word, "!")
}

// WriteText writes the transcript text followed by a newline.
func WriteText(w io.Writer, tr Transcript) error {
	_, err := io.WriteString(w, tr.Text+"\n")
	return err
}

// WriteJSON writes the transcript as indented JSON.
func WriteJSON(w io.Writer, tr Transcript) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tr)
}

// Format names accepted by Write.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatSRT  = "srt"
)

// IsFormat reports whether name is a supported output format.
func IsFormat(name string) bool {
	return name == FormatJSON || name == FormatText || name == FormatSRT
}

// Write renders tr in the named format.
func Write(w io.Writer, tr Transcript, formatName string) error {
	switch formatName {
	case FormatJSON, "":
		return WriteJSON(w, tr)
	case FormatText:
		return WriteText(w, tr)
	case FormatSRT:
		return WriteSRT(w, tr)
	default:
		return fmt.Errorf("unknown transcript format %q (use json, text or srt)", formatName)
	}
}

// Decode reads a transcript written by WriteJSON. Word timings are validated
// and must be sorted by start time.
func Decode(r io.Reader) (Transcript, error) {
	var tr Transcript
	if err := json.NewDecoder(r).Decode(&tr); err != nil {
		return Transcript{}, fmt.Errorf("decode transcript: %w", err)
	}
	if err := ValidateWords(tr.Words); err != nil {
		return Transcript{}, err
	}
	for i := 1; i < len(tr.Words); i++ {
		if tr.Words[i].Start < tr.Words[i-1].Start {
			return Transcript{}, fmt.Errorf("%w: word %d starts before word %d", ErrInvalidWord, i, i-1)
		}
	}
	if tr.Text == "" {
		tr.Text = JoinWords(tr.Words)
	}
	return tr, nil
}
