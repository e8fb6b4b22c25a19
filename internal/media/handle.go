package media

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
)

// Kind is the MIME category of a media file.
type Kind string

// Media kinds accepted by the pipeline.
const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// KindFromMIME maps a MIME type such as "video/mp4" to its Kind.
// Returns false for anything that is not audio/* or video/*.
func KindFromMIME(mime string) (Kind, bool) {
	major, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(mime)), "/")
	switch Kind(major) {
	case KindAudio:
		return KindAudio, true
	case KindVideo:
		return KindVideo, true
	}
	return "", false
}

// Handle is a media file on local disk owned by whoever created it.
// The owner calls Release on every exit path unless ownership is handed off.
type Handle struct {
	Path string
	Kind Kind

	once sync.Once
	err  error
}

// NewHandle wraps an existing file.
func NewHandle(path string, kind Kind) *Handle {
	return &Handle{Path: path, Kind: kind}
}

// Release deletes the underlying file. Safe to call more than once and on a
// nil handle; a file that is already gone is not an error.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	h.once.Do(func() {
		if err := os.Remove(h.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			h.err = err
		}
	})
	return h.err
}
