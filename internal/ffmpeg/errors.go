package ffmpeg

import "errors"

// ErrNotFound indicates ffmpeg or ffprobe could not be located.
var ErrNotFound = errors.New("media tool not found")

// ErrTimeout is returned when a process does not exit within its per-call timeout.
var ErrTimeout = errors.New("process did not exit within timeout")

// ErrNonZeroExit indicates a process ran but exited with a non-zero status.
// The captured stderr is available in the accompanying Result.
var ErrNonZeroExit = errors.New("process exited with non-zero status")
