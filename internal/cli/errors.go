package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrAPIKeyMissing indicates OPENAI_API_KEY environment variable is not set.
	ErrAPIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")

	// ErrFileNotFound indicates the specified input file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrOutputExists indicates the output file already exists.
	ErrOutputExists = errors.New("output file already exists")

	// ErrInvalidFlag indicates a flag value outside its accepted range.
	ErrInvalidFlag = errors.New("invalid flag value")

	// ErrPlanRequired indicates clips was run without --plan or --generate.
	ErrPlanRequired = errors.New("a clip plan is required")

	// ErrNoClipsCut indicates every requested clip failed to cut.
	ErrNoClipsCut = errors.New("no clip could be cut")
)
