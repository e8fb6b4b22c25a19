package transcript

import (
	"fmt"
	"math"
)

// Chunking defaults, sized for the transcription service's per-request ceiling.
const (
	DefaultChunkDuration = 300.0 // seconds
	DefaultOverlap       = 30.0  // seconds
)

// maxPlanWindows rejects parameters whose stride is too small to be useful.
const maxPlanWindows = 100_000

// TimeWindow is a [Start, End] range in seconds with 0 <= Start < End.
type TimeWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// NewTimeWindow validates and returns a window.
func NewTimeWindow(start, end float64) (TimeWindow, error) {
	if !finite(start) || !finite(end) || start < 0 || end <= start {
		return TimeWindow{}, fmt.Errorf("%w: [%v, %v]", ErrInvalidWindow, start, end)
	}
	return TimeWindow{Start: start, End: end}, nil
}

// Duration returns End - Start.
func (w TimeWindow) Duration() float64 {
	return w.End - w.Start
}

// PlanChunks splits [0, total] into windows of at most chunk seconds, each
// starting overlap seconds before the previous one ended.
//
// The loop is capped at ceil(total/(chunk-overlap))+2 iterations, not
// ceil(total/chunk)+2: windows advance by chunk-overlap, so a cap derived
// from chunk alone is too small once the overlap is a large share of the
// chunk (chunk 300, overlap 290, total 3000 needs 271 windows, not 12).
// Every iteration must advance the start; if it does not, or the cap is
// reached before the last window ends at total, ErrPlanNotConverged is
// returned.
func PlanChunks(total, chunk, overlap float64) ([]TimeWindow, error) {
	if !finite(total) || !finite(chunk) || !finite(overlap) {
		return nil, fmt.Errorf("%w: non-finite input", ErrInvalidPlan)
	}
	if total <= 0 || chunk <= 0 || overlap < 0 || overlap >= chunk {
		return nil, fmt.Errorf("%w: total=%v chunk=%v overlap=%v", ErrInvalidPlan, total, chunk, overlap)
	}

	if total <= chunk {
		return []TimeWindow{{Start: 0, End: total}}, nil
	}

	stride := chunk - overlap
	if total/stride > maxPlanWindows {
		return nil, fmt.Errorf("%w: %v-second stride needs more than %d windows", ErrInvalidPlan, stride, maxPlanWindows)
	}

	maxIter := int(math.Ceil(total/stride)) + 2
	windows := make([]TimeWindow, 0, maxIter)

	t := 0.0
	for range maxIter {
		end := math.Min(t+chunk, total)
		windows = append(windows, TimeWindow{Start: t, End: end})
		if end >= total {
			return windows, nil
		}

		next := math.Max(end-overlap, 0)
		if next <= t {
			return nil, fmt.Errorf("%w: window start stuck at %v", ErrPlanNotConverged, t)
		}
		t = next
	}

	return nil, fmt.Errorf("%w: %d windows reached %v of %v seconds",
		ErrPlanNotConverged, len(windows), windows[len(windows)-1].End, total)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
