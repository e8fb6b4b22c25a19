package transcript

import "errors"

// ErrInvalidPlan indicates chunk planning parameters that cannot produce windows.
var ErrInvalidPlan = errors.New("invalid chunk plan parameters")

// ErrPlanNotConverged indicates the planner stopped before covering the input.
// Returned instead of a plan with gaps.
var ErrPlanNotConverged = errors.New("chunk plan did not converge")

// ErrInvalidWindow indicates a time window violating 0 <= start < end.
var ErrInvalidWindow = errors.New("invalid time window")

// ErrInvalidWord indicates word timing data that cannot be placed on a timeline.
var ErrInvalidWord = errors.New("invalid word timing")
