package transcribe

import "errors"

// ErrAPIKeyMissing indicates OPENAI_API_KEY environment variable is not set.
var ErrAPIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")

// ErrTranscriptionService indicates the speech-to-text call failed.
// Wrapped together with an apierr sentinel describing the cause.
var ErrTranscriptionService = errors.New("transcription service error")

// ErrMalformedResponse indicates the service returned word timings that
// cannot be placed on a timeline.
var ErrMalformedResponse = errors.New("malformed transcription response")

// ErrOperationTimeout indicates the whole transcription ran past its deadline.
var ErrOperationTimeout = errors.New("transcription operation timed out")
