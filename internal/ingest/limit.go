package ingest

import (
	"context"
	"io"
)

// limitedReader fails with ErrTooLarge once more than max bytes are read
// from r, and stops early when ctx is done.
type limitedReader struct {
	ctx      context.Context
	r        io.Reader
	max      int64
	n        int64
	exceeded bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if err := l.ctx.Err(); err != nil {
		return 0, err
	}
	if l.exceeded {
		return 0, ErrTooLarge
	}
	// Read one byte past the ceiling so an exact-size body is not rejected.
	if remaining := l.max - l.n + 1; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := l.r.Read(p)
	l.n += int64(n)
	if l.n > l.max {
		l.exceeded = true
		return 0, ErrTooLarge
	}
	return n, err
}
