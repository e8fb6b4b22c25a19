package ffmpeg

import (
	"os"
	"os/exec"
)

// fileStatter abstracts stat operations on the filesystem.
type fileStatter interface {
	Stat(name string) (os.FileInfo, error)
}

// envProvider abstracts environment and path lookup operations.
type envProvider interface {
	Getenv(key string) string
	UserHomeDir() (string, error)
	LookPath(file string) (string, error)
}

// Compile-time interface verification.
var (
	_ fileStatter = osFileStatter{}
	_ envProvider = osEnvProvider{}
)

// osFileStatter implements fileStatter using the os package.
type osFileStatter struct{}

func (osFileStatter) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// osEnvProvider implements envProvider using os and exec packages.
type osEnvProvider struct{}

func (osEnvProvider) Getenv(key string) string {
	return os.Getenv(key)
}

func (osEnvProvider) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

func (osEnvProvider) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}
