package clip

import "errors"

// Sentinel errors for clip requests and cutting.
var (
	// ErrInvalidRequest indicates a clip request with an impossible or oversized time range.
	ErrInvalidRequest = errors.New("invalid clip request")

	// ErrInvalidPlan indicates a clip plan document that cannot be decoded.
	ErrInvalidPlan = errors.New("invalid clip plan")

	// ErrCut indicates ffmpeg failed to produce a clip.
	ErrCut = errors.New("clip cutting failed")
)

// ErrOperationTimeout indicates a whole clip operation, planning included,
// ran past its deadline.
var ErrOperationTimeout = errors.New("clip operation timed out")
