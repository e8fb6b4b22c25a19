package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-clipper/internal/config"
)

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/go-clipper/config (or $XDG_CONFIG_HOME).
Every key falls back to an environment variable when unset in the file:
output-dir reads CLIPPER_OUTPUT_DIR, database-url reads CLIPPER_DATABASE_URL.

Supported settings:
  output-dir       Directory for transcripts, manifests and clips
  work-dir         Parent of temporary per-run directories (default: system temp)
  parallel         Concurrent transcription requests, 1-10 (default: 1)
  chunk-duration   Seconds per chunk for long recordings (default: 300)
  overlap          Seconds shared by adjacent chunks (default: 30)
  language         Audio language, ISO 639-1 (default: auto-detect)
  timeout          Limit for one whole transcription or clip run, e.g. 45m (default: 30m)
  database-url     PostgreSQL URL; when set, results are recorded
  addr             Listen address for serve (default: :8080)
  max-upload-mb    Upload limit for serve in MB (default: 500)
  clip-count       Clips generated per upload by serve (default: 5)
  planner-model    Chat model used to pick clips (default: gpt-4o-mini)`,
		Example: `  clipper config set output-dir ~/Videos/clips
  clipper config set parallel 4
  clipper config get output-dir
  clipper config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value. The value is validated before it is saved.

Directories (output-dir, work-dir) are created if they don't exist.`,
		Example: `  clipper config set output-dir ~/Videos/clips
  clipper config set timeout 45m`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value.

Prints the value to stdout, or nothing if not set.`,
		Example: `  clipper config get output-dir`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

// configListCmd creates the "config list" subcommand.
func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List all configuration values.

Shows both values from the config file and environment variable fallbacks.`,
		Example: `  clipper config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	if err := config.Validate(key, value); err != nil {
		return err
	}

	switch key {
	case config.KeyOutputDir, config.KeyWorkDir:
		value = config.ExpandPath(strings.TrimSpace(value))
		if err := config.EnsureOutputDir(value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	if err := config.Save(key, value); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, strings.TrimSpace(value))
	return nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	value, err := config.Get(key)
	if err != nil {
		return err
	}

	if value == "" {
		value = env.Getenv(config.EnvVar(key))
	}

	if value != "" {
		fmt.Fprintln(env.Stdout, value)
	}

	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env) error {
	data, err := config.List()
	if err != nil {
		return err
	}

	printed := 0
	for _, key := range config.Keys() {
		value, ok := data[key]
		source := ""
		if !ok || value == "" {
			if value = env.Getenv(config.EnvVar(key)); value == "" {
				continue
			}
			source = " (from env)"
		}
		if key == config.KeyDatabaseURL {
			value = redactURL(value)
		}
		fmt.Fprintf(env.Stdout, "%s=%s%s\n", key, value, source)
		printed++
	}

	if printed == 0 {
		fmt.Fprintln(env.Stdout, "No configuration set.")
		fmt.Fprintln(env.Stdout, "\nAvailable settings:")
		for _, key := range config.Keys() {
			fmt.Fprintf(env.Stdout, "  %s\n", key)
		}
	}

	return nil
}

// redactURL hides the password of a connection URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}
