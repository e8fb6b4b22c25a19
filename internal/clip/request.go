package clip

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
)

// MaxDuration is the longest clip accepted, in seconds.
const MaxDuration = 300.0

// Request describes one clip to cut from a source video.
// Times are seconds from the start of the source.
type Request struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	SocialScore float64 `json:"social_score"`
}

// Duration returns EndTime - StartTime.
func (r Request) Duration() float64 {
	return r.EndTime - r.StartTime
}

// Validate rejects requests that start before zero, end before they start,
// or run longer than MaxDuration. Out-of-range values are never clamped.
func (r Request) Validate() error {
	switch {
	case math.IsNaN(r.StartTime) || math.IsInf(r.StartTime, 0) ||
		math.IsNaN(r.EndTime) || math.IsInf(r.EndTime, 0):
		return fmt.Errorf("%w: %q has non-finite times", ErrInvalidRequest, r.Title)
	case r.StartTime < 0:
		return fmt.Errorf("%w: %q starts at %.3fs", ErrInvalidRequest, r.Title, r.StartTime)
	case r.EndTime <= r.StartTime:
		return fmt.Errorf("%w: %q ends at %.3fs, not after its start %.3fs",
			ErrInvalidRequest, r.Title, r.EndTime, r.StartTime)
	case r.Duration() > MaxDuration:
		return fmt.Errorf("%w: %q lasts %.3fs, limit is %.0fs",
			ErrInvalidRequest, r.Title, r.Duration(), MaxDuration)
	}
	return nil
}

// Result is a clip that ffmpeg produced successfully.
type Result struct {
	Request
	VideoPath string  `json:"video_path"`
	Duration  float64 `json:"duration"`
}

// plan is the document shape produced by the clip planner and accepted on
// the command line: either {"clips": [...]} or a bare array.
type plan struct {
	Clips []Request `json:"clips"`
}

// DecodePlan reads clip requests from r. Requests are returned as written;
// validation happens when they are cut.
func DecodePlan(r io.Reader) ([]Request, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidPlan)
	}

	if strings.HasPrefix(trimmed, "[") {
		var reqs []Request
		if err := json.Unmarshal([]byte(trimmed), &reqs); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
		}
		return reqs, nil
	}

	var p plan
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	return p.Clips, nil
}

// WriteManifest writes results as an indented JSON array.
func WriteManifest(w io.Writer, results []Result) error {
	if results == nil {
		results = []Result{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
