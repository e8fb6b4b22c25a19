package planner

import "errors"

// Sentinel errors for clip planning.
var (
	// ErrTranscriptTooLong indicates the transcript exceeds the model's input budget.
	ErrTranscriptTooLong = errors.New("transcript too long for clip planning")

	// ErrEmptyTranscript indicates there is nothing to plan clips from.
	ErrEmptyTranscript = errors.New("transcript has no words")

	// ErrNoClips indicates the model returned no usable clip.
	ErrNoClips = errors.New("no usable clips in plan")
)
