package media

import (
	"context"
	"os"
	"time"

	"github.com/alnah/go-clipper/internal/ffmpeg"
)

// runner executes an external media tool with a per-call timeout.
// Implemented by *ffmpeg.Executor.
type runner interface {
	Run(ctx context.Context, path string, args []string, timeout time.Duration) (ffmpeg.Result, error)
}

// fileStatter retrieves file information.
type fileStatter interface {
	Stat(name string) (os.FileInfo, error)
}

// fileRemover removes files and directories.
type fileRemover interface {
	Remove(name string) error
	RemoveAll(path string) error
}

// Compile-time interface verification.
var (
	_ runner      = (*ffmpeg.Executor)(nil)
	_ fileStatter = osFileStatter{}
	_ fileRemover = osFileRemover{}
)

// osFileStatter implements fileStatter using os.Stat.
type osFileStatter struct{}

func (osFileStatter) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// osFileRemover implements fileRemover using os.Remove and os.RemoveAll.
type osFileRemover struct{}

func (osFileRemover) Remove(name string) error {
	return os.Remove(name)
}

func (osFileRemover) RemoveAll(path string) error {
	return os.RemoveAll(path)
}
