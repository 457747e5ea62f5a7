// Package cli provides the command-line interface for profjson.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ccollicutt/profjson/internal/cli/commands"
)

// EnvPrefix prefixes the environment variables that override flags,
// e.g. PROFJSON_OUTPUT or PROFJSON_METRICS_FILE.
const EnvPrefix = "PROFJSON"

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command with its own viper instance.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "profjson",
		Short: "Convert device profiles to JSON",
		Long: `profjson converts device profile dumps into a normalized JSON document.

For every profile it records:
  - The instance and class names from the header block
  - Each magnitude's description, units, type, limits and periods
  - Array dimensions (width, height) inferred from the magnitude type

Array limits are checked against the declared shape; single values are
broadcast to every cell and all numbers are written in canonical decimal form.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("binding flags: %w", err)
			}
			return setupLogging(cmd.ErrOrStderr(), v)
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Transform configuration file (YAML, JSON or JSONC)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output and debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Only log warnings and errors")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text|json)")

	rootCmd.AddCommand(commands.NewConvertCommand(v))
	rootCmd.AddCommand(commands.NewParseCommand(v))
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand(v))
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}

// setupLogging installs the default slog logger according to the flags.
func setupLogging(w io.Writer, v *viper.Viper) error {
	level := slog.LevelInfo
	switch {
	case v.GetBool("verbose"):
		level = slog.LevelDebug
	case v.GetBool("quiet"):
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format := v.GetString("log-format"); format {
	case "text", "":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format %q (use text or json)", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}
