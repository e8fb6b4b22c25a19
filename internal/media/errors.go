package media

import "errors"

// ErrProbe indicates the duration of an input could not be determined.
var ErrProbe = errors.New("duration probe failed")

// ErrExtraction indicates ffmpeg failed to produce an audio file.
var ErrExtraction = errors.New("audio extraction failed")

// ErrFileNotFound indicates the specified input file does not exist.
var ErrFileNotFound = errors.New("file not found")
