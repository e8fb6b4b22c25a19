package ingest

import "errors"

// Sentinel errors for rejected uploads.
var (
	// ErrTooLarge indicates the body or a text field exceeded its byte ceiling.
	ErrTooLarge = errors.New("upload too large")

	// ErrInvalidType indicates the file part's declared MIME type is not accepted.
	ErrInvalidType = errors.New("unsupported media type")

	// ErrStream indicates the body could not be read or written to disk.
	ErrStream = errors.New("upload stream failed")

	// ErrInvalidUpload indicates a malformed request: not multipart, no file
	// part, or more than one file part.
	ErrInvalidUpload = errors.New("invalid upload")
)
