package ffmpeg

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
)

const (
	// minFFmpegMajorVersion is the minimum supported ffmpeg version.
	// Older builds lack -movflags +faststart handling and the libvorbis defaults we rely on.
	minFFmpegMajorVersion = 4

	// binaryExtWindows is the file extension for Windows executables.
	binaryExtWindows = ".exe"

	// installDirName is the per-user directory searched before PATH.
	installDirName = ".go-clipper"
)

// Environment variables overriding tool lookup.
const (
	envFFmpegPath  = "FFMPEG_PATH"
	envFFprobePath = "FFPROBE_PATH"
)

// Tools holds the resolved absolute paths of the two media binaries.
type Tools struct {
	FFmpeg  string
	FFprobe string
}

// tool describes one binary the resolver looks for.
type tool struct {
	name   string
	envVar string
}

var (
	ffmpegTool  = tool{name: "ffmpeg", envVar: envFFmpegPath}
	ffprobeTool = tool{name: "ffprobe", envVar: envFFprobePath}
)

// ---------------------------------------------------------------------------
// Resolver - testable tool resolution with dependency injection
// ---------------------------------------------------------------------------

// Resolver finds ffmpeg and ffprobe.
type Resolver struct {
	stat fileStatter
	env  envProvider
	goos string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFileStatter sets the filesystem stat implementation.
func WithFileStatter(s fileStatter) ResolverOption {
	return func(r *Resolver) { r.stat = s }
}

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(r *Resolver) { r.env = e }
}

// WithPlatform sets the target OS (for testing cross-platform behavior).
func WithPlatform(goos string) ResolverOption {
	return func(r *Resolver) { r.goos = goos }
}

// NewResolver creates a Resolver with the given options.
// Uses production defaults if no options are provided.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		stat: osFileStatter{},
		env:  osEnvProvider{},
		goos: runtime.GOOS,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds both tools. Each is looked up with the following precedence:
//  1. FFMPEG_PATH / FFPROBE_PATH environment variable (error if set but invalid)
//  2. ~/.go-clipper/bin/<tool>
//  3. for ffprobe only: the directory holding the resolved ffmpeg
//  4. System PATH
func (r *Resolver) Resolve() (Tools, error) {
	ffmpegPath, err := r.find(ffmpegTool, "")
	if err != nil {
		return Tools{}, err
	}
	ffprobePath, err := r.find(ffprobeTool, filepath.Dir(ffmpegPath))
	if err != nil {
		return Tools{}, err
	}
	return Tools{FFmpeg: ffmpegPath, FFprobe: ffprobePath}, nil
}

func (r *Resolver) find(t tool, siblingDir string) (string, error) {
	if envPath := r.env.Getenv(t.envVar); envPath != "" {
		if _, err := r.stat.Stat(envPath); err != nil {
			return "", fmt.Errorf("%w: %s is set to %q but binary not found",
				ErrNotFound, t.envVar, envPath)
		}
		return envPath, nil
	}

	if home, err := r.env.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, installDirName, "bin", r.binaryName(t))
		if _, err := r.stat.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if siblingDir != "" {
		candidate := filepath.Join(siblingDir, r.binaryName(t))
		if _, err := r.stat.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if path, err := r.env.LookPath(t.name); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w: %s\n\n%s", ErrNotFound, t.name, r.manualInstallInstructions())
}

func (r *Resolver) binaryName(t tool) string {
	if r.goos == "windows" {
		return t.name + binaryExtWindows
	}
	return t.name
}

// manualInstallInstructions returns platform-specific instructions.
func (r *Resolver) manualInstallInstructions() string {
	switch r.goos {
	case "darwin":
		return `To install FFmpeg (includes ffprobe):
  brew install ffmpeg

Or set FFMPEG_PATH and FFPROBE_PATH to your binaries.`
	case "linux":
		return `To install FFmpeg (includes ffprobe):
  Ubuntu/Debian: sudo apt install ffmpeg
  Fedora:        sudo dnf install ffmpeg
  Arch:          sudo pacman -S ffmpeg

Or set FFMPEG_PATH and FFPROBE_PATH to your binaries.`
	case "windows":
		return `To install FFmpeg (includes ffprobe):
  winget install ffmpeg

Or download from https://www.gyan.dev/ffmpeg/builds/

Or set FFMPEG_PATH and FFPROBE_PATH to your ffmpeg.exe and ffprobe.exe.`
	default:
		return `To install FFmpeg, download from https://ffmpeg.org/download.html
Or set FFMPEG_PATH and FFPROBE_PATH to your binaries.`
	}
}

// Resolve finds both tools with a default Resolver and warns on an old ffmpeg.
func Resolve(ctx context.Context) (Tools, error) {
	tools, err := NewResolver().Resolve()
	if err != nil {
		return Tools{}, err
	}
	CheckVersion(ctx, tools.FFmpeg)
	return tools, nil
}
