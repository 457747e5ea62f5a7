package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ccollicutt/profjson/pkg/config"
	"github.com/ccollicutt/profjson/pkg/convert"
	"github.com/ccollicutt/profjson/pkg/output"
)

// ParseOptions holds command-line options for the parse command.
type ParseOptions struct {
	ConfigPath string
	Format     string
	Verbose    bool
	Quiet      bool
}

// NewParseCommand creates the parse command.
func NewParseCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <profile>",
		Short: "Parse a single profile and print the result",
		Long: `Parse one profile file and print what was extracted from it.

The text format lists the header and every magnitude; with --verbose it also
shows descriptions, limits and periods. The json format prints the same
document convert would write for this profile alone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, &ParseOptions{
				ConfigPath: v.GetString("config"),
				Format:     v.GetString("format"),
				Verbose:    v.GetBool("verbose"),
				Quiet:      v.GetBool("quiet"),
			})
		},
	}

	cmd.Flags().StringP("format", "f", "text", "Output format (text|json)")

	return cmd
}

func runParse(cmd *cobra.Command, args []string, opts *ParseOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	formatter, err := createFormatter(opts)
	if err != nil {
		return err
	}

	cfg, err := config.LoadOrDefault(ctx, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	result, err := convert.New(cfg, slog.Default()).ParseOne(ctx, args[0])
	if err != nil {
		return err
	}

	if err := formatter.Format(ctx, output.NewSingleReport(result), cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	return nil
}

func createFormatter(opts *ParseOptions) (output.Formatter, error) {
	formatOpts := output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	}

	switch opts.Format {
	case "text":
		return output.NewTextFormatter(formatOpts), nil
	case "json":
		return output.NewJSONFormatter(output.FormatOptions{}), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (use text or json)", opts.Format)
	}
}
