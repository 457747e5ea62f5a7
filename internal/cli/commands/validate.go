package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/profjson/pkg/config"
	"github.com/ccollicutt/profjson/pkg/transform"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a profjson transform configuration file without converting anything.

Checks:
  - YAML / JSON syntax (JSON files may contain comments)
  - Transform names (remove-time-unit, remove-white-spaces, remove-line-feed)
  - Exclude pattern syntax
  - Webhook URLs and triggers`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(w, "\nConfiguration valid!\n")

	// Transforms in the order they are applied
	transforms := cfg.Transforms()
	fmt.Fprintf(w, "\nTransforms:\n")
	for i, step := range transform.Table {
		props := transforms[step.Name]
		if len(props) == 0 {
			fmt.Fprintf(w, "  %d. %s: (none)\n", i+1, step.Name)
			continue
		}
		fmt.Fprintf(w, "  %d. %s: %s\n", i+1, step.Name, strings.Join(props, ", "))
	}
	if cfg.MatchAll {
		fmt.Fprintf(w, "  %q entries apply to every property\n", config.Wildcard)
	}

	if len(cfg.Exclude) > 0 {
		fmt.Fprintf(w, "\nExclude:\n")
		for _, pattern := range cfg.Exclude {
			fmt.Fprintf(w, "  - %s\n", pattern)
		}
	}

	if len(cfg.Webhooks) > 0 {
		fmt.Fprintf(w, "\nWebhooks:\n")
		for _, wh := range cfg.Webhooks {
			name := wh.Name
			if name == "" {
				name = wh.URL
			}
			fmt.Fprintf(w, "  - %s [%s]\n", name, wh.Trigger)
		}
	}

	return nil
}
