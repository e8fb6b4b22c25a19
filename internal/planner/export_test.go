package planner

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

var (
	TimestampedLines  = timestampedLines
	BuildSystemPrompt = buildSystemPrompt
)
