package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-clipper/internal/config"
	"github.com/alnah/go-clipper/internal/transcript"
)

// formatExt maps an output format to its file extension.
var formatExt = map[string]string{
	transcript.FormatJSON: ".json",
	transcript.FormatText: ".txt",
	transcript.FormatSRT:  ".srt",
}

// deriveOutputPath replaces the extension of inputPath with ext.
// Example: ("talk.mp4", ".srt") -> "talk.srt"
func deriveOutputPath(inputPath, ext string) string {
	return strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ext
}

// checkInput fails with ErrFileNotFound unless path is an existing file.
func checkInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	return nil
}

// checkOutputFree fails early with ErrOutputExists so no work is spent on a
// result that could not be written. writeFileAtomic re-checks with O_EXCL.
func checkOutputFree(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", path, ErrOutputExists)
	}
	return nil
}

// resolveOutput resolves the --output flag against output-dir and checks
// the result is free.
func resolveOutput(output, outputDir, defaultName string) (string, error) {
	p := config.ResolveOutputPath(output, outputDir, defaultName)
	if dir := filepath.Dir(p); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil { // #nosec G301 -- user output dir
			return "", fmt.Errorf("cannot create output directory: %w", err)
		}
	}
	return p, checkOutputFree(p)
}

// writeFileAtomic creates path and fills it with write.
// It fails if the file already exists (O_EXCL), preventing accidental overwrites.
// On write failure, the partial file is removed.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrOutputExists)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		if err := write(f); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}()

	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}

	return nil
}
