package clip

import (
	"context"
	"os"
	"time"

	"github.com/alnah/go-clipper/internal/ffmpeg"
)

// runner executes ffmpeg with a per-call timeout.
// Implemented by *ffmpeg.Executor.
type runner interface {
	Run(ctx context.Context, path string, args []string, timeout time.Duration) (ffmpeg.Result, error)
}

// fileSystem is the subset of file operations the cutter needs.
type fileSystem interface {
	MkdirAll(path string, perm os.FileMode) error
	Stat(name string) (os.FileInfo, error)
	Remove(name string) error
}

// Compile-time interface verification.
var (
	_ runner     = (*ffmpeg.Executor)(nil)
	_ fileSystem = osFileSystem{}
)

// osFileSystem implements fileSystem with the os package.
type osFileSystem struct{}

func (osFileSystem) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }
func (osFileSystem) Stat(name string) (os.FileInfo, error)        { return os.Stat(name) }
func (osFileSystem) Remove(name string) error                     { return os.Remove(name) }
