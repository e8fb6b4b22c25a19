// Package config reads and writes the user configuration file and resolves
// typed settings from it, with environment variable fallbacks.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-clipper/internal/lang"
	"github.com/alnah/go-clipper/internal/transcribe"
	"github.com/alnah/go-clipper/internal/transcript"
)

// Config keys.
const (
	KeyOutputDir     = "output-dir"
	KeyWorkDir       = "work-dir"
	KeyParallel      = "parallel"
	KeyChunkDuration = "chunk-duration"
	KeyOverlap       = "overlap"
	KeyLanguage      = "language"
	KeyTimeout       = "timeout"
	KeyDatabaseURL   = "database-url"
	KeyAddr          = "addr"
	KeyMaxUploadMB   = "max-upload-mb"
	KeyClipCount     = "clip-count"
	KeyPlannerModel  = "planner-model"
)

// envPrefix prefixes the environment fallback of every key:
// "output-dir" falls back to CLIPPER_OUTPUT_DIR.
const envPrefix = "CLIPPER_"

// Server defaults.
const (
	DefaultAddr        = ":8080"
	DefaultMaxUploadMB = 500
	DefaultClipCount   = 5
)

// ErrUnknownKey indicates a key that is not a recognized setting.
var ErrUnknownKey = errors.New("unknown config key")

// ErrInvalidValue indicates a setting value that cannot be parsed.
var ErrInvalidValue = errors.New("invalid config value")

// keys lists every recognized key in display order.
var keys = []string{
	KeyOutputDir, KeyWorkDir, KeyParallel, KeyChunkDuration, KeyOverlap,
	KeyLanguage, KeyTimeout, KeyDatabaseURL, KeyAddr, KeyMaxUploadMB,
	KeyClipCount, KeyPlannerModel,
}

// Settings is the resolved configuration. Zero values from the file and the
// environment are replaced by Defaults.
type Settings struct {
	OutputDir     string
	WorkDir       string
	Parallel      int
	ChunkDuration float64 // seconds
	Overlap       float64 // seconds
	Language      lang.Language
	Timeout       time.Duration
	DatabaseURL   string
	Addr          string
	MaxUploadMB   int64
	ClipCount     int
	PlannerModel  string
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		Parallel:      1,
		ChunkDuration: transcript.DefaultChunkDuration,
		Overlap:       transcript.DefaultOverlap,
		Timeout:       transcribe.DefaultOperationTimeout,
		Addr:          DefaultAddr,
		MaxUploadMB:   DefaultMaxUploadMB,
		ClipCount:     DefaultClipCount,
	}
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (s Settings) MaxUploadBytes() int64 {
	return s.MaxUploadMB * 1000 * 1000
}

// Keys returns the recognized config keys.
func Keys() []string {
	return slices.Clone(keys)
}

// IsKey reports whether key is a recognized setting.
func IsKey(key string) bool {
	return slices.Contains(keys, key)
}

// EnvVar returns the environment fallback for key.
func EnvVar(key string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/go-clipper.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "go-clipper"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "go-clipper"), nil
}

// path returns the full path to the config file.
func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config"), nil
}

// Load reads the configuration file and falls back to os.Getenv.
func Load() (Settings, error) {
	return LoadWith(os.Getenv)
}

// LoadWith reads the configuration file, then uses getenv for every key the
// file leaves unset. A missing file is not an error.
func LoadWith(getenv func(string) string) (Settings, error) {
	p, err := path()
	if err != nil {
		return Settings{}, err
	}

	data, err := parseFile(p)
	if err != nil {
		if !os.IsNotExist(err) {
			return Settings{}, fmt.Errorf("failed to read config: %w", err)
		}
		data = make(map[string]string)
	}

	for _, key := range keys {
		if data[key] == "" {
			if v := getenv(EnvVar(key)); v != "" {
				data[key] = v
			}
		}
	}
	return Resolve(data)
}

// Resolve types raw key=value pairs into Settings on top of Defaults.
// Unknown keys are ignored so older files keep loading.
func Resolve(data map[string]string) (Settings, error) {
	s := Defaults()
	for _, key := range keys {
		raw := strings.TrimSpace(data[key])
		if raw == "" {
			continue
		}
		if err := s.set(key, raw); err != nil {
			return Settings{}, err
		}
	}
	return s, nil
}

// Validate checks that value is acceptable for key.
func Validate(key, value string) error {
	if !IsKey(key) {
		return fmt.Errorf("%w: %q (valid keys: %s)", ErrUnknownKey, key, strings.Join(keys, ", "))
	}
	s := Defaults()
	return s.set(key, strings.TrimSpace(value))
}

// set parses raw into the field for key.
func (s *Settings) set(key, raw string) error {
	var err error
	switch key {
	case KeyOutputDir:
		s.OutputDir = ExpandPath(raw)
	case KeyWorkDir:
		s.WorkDir = ExpandPath(raw)
	case KeyParallel:
		s.Parallel, err = positiveInt(raw)
	case KeyChunkDuration:
		s.ChunkDuration, err = seconds(raw, false)
	case KeyOverlap:
		s.Overlap, err = seconds(raw, true)
	case KeyLanguage:
		s.Language, err = lang.Parse(raw)
	case KeyTimeout:
		s.Timeout, err = time.ParseDuration(raw)
		if err == nil && s.Timeout <= 0 {
			err = errors.New("must be positive")
		}
	case KeyDatabaseURL:
		s.DatabaseURL = raw
	case KeyAddr:
		s.Addr = raw
	case KeyMaxUploadMB:
		var n int
		n, err = positiveInt(raw)
		s.MaxUploadMB = int64(n)
	case KeyClipCount:
		s.ClipCount, err = positiveInt(raw)
	case KeyPlannerModel:
		s.PlannerModel = raw
	}
	if err != nil {
		return fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, key, raw, err)
	}
	return nil
}

func positiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.New("must be at least 1")
	}
	return n, nil
}

// seconds parses a duration in seconds, either as a number or a Go duration.
func seconds(raw string, allowZero bool) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		d, derr := time.ParseDuration(raw)
		if derr != nil {
			return 0, errors.New("want seconds or a duration like 5m")
		}
		f = d.Seconds()
	}
	if f < 0 || (f == 0 && !allowZero) {
		return 0, errors.New("out of range")
	}
	return f, nil
}

// parseFile reads a key=value config file.
// Format: one key=value per line, # comments, empty lines ignored.
func parseFile(p string) (map[string]string, error) {
	f, err := os.Open(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid syntax at line %d: %q", lineNum, line)
		}
		data[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return data, nil
}

// Save validates and writes a single key=value to the config file.
// Creates the config directory and file if they don't exist.
// Preserves existing key=value pairs but discards comments.
func Save(key, value string) error {
	if err := Validate(key, value); err != nil {
		return err
	}

	p, err := path()
	if err != nil {
		return err
	}

	d := filepath.Dir(p)
	if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	existing, err := parseFile(p)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		existing = make(map[string]string)
	}
	existing[key] = strings.TrimSpace(value)

	return writeFile(p, existing)
}

// writeFile writes the config map to a file, keys sorted.
func writeFile(p string, data map[string]string) error {
	// #nosec G302 G304 -- config file may hold a database URL, path from home dir
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	names := make([]string, 0, len(data))
	for k := range data {
		names = append(names, k)
	}
	slices.Sort(names)

	for _, key := range names {
		if _, err := fmt.Fprintf(f, "%s=%s\n", key, data[key]); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	if !IsKey(key) {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	p, err := path()
	if err != nil {
		return "", err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	return data[key], nil
}

// List returns all config file values as a map.
func List() (map[string]string, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	return data, nil
}

// ResolveOutputPath resolves the final output path using the following precedence:
//  1. If output is absolute, use it as-is
//  2. If output is relative and outputDir is set, join them
//  3. If output is empty, use defaultName in outputDir (or cwd if no outputDir)
func ResolveOutputPath(output, outputDir, defaultName string) string {
	if output != "" && filepath.IsAbs(output) {
		return filepath.Clean(output)
	}

	if output != "" {
		if outputDir != "" {
			return filepath.Clean(filepath.Join(outputDir, output))
		}
		return filepath.Clean(output)
	}

	if outputDir != "" {
		return filepath.Clean(filepath.Join(outputDir, defaultName))
	}
	return filepath.Clean(defaultName)
}

// EnsureOutputDir creates d if needed and checks it is a writable directory.
func EnsureOutputDir(d string) error {
	if d == "" {
		return fmt.Errorf("%w: output-dir cannot be empty", ErrInvalidValue)
	}
	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("cannot access directory: %w", err)
		}
		if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user output dir
			return fmt.Errorf("cannot create directory: %w", err)
		}
		return nil
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: path is not a directory: %s", ErrInvalidValue, d)
	}

	probe, err := os.CreateTemp(d, ".go-clipper-write-test-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}

// Path returns the config file path.
func Path() (string, error) {
	return path()
}
