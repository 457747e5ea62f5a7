package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ccollicutt/profjson/pkg/config"
	"github.com/ccollicutt/profjson/pkg/convert"
	"github.com/ccollicutt/profjson/pkg/metrics"
	"github.com/ccollicutt/profjson/pkg/output"
	"github.com/ccollicutt/profjson/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// StdoutOutput is the --output value that writes the document to stdout.
const StdoutOutput = "-"

// ConvertOptions holds command-line options for the convert command.
type ConvertOptions struct {
	ConfigPath  string
	ProfileList string
	DeviceList  string
	Output      string
	MetricsFile string
	Strict      bool
	Jobs        int

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [profile...]",
		Short: "Convert profiles to a JSON document",
		Long: `Convert device profiles into a single profiles.json document.

Profiles are taken from, in this order:
  --profiles  a file listing profile paths or glob patterns, one per line
  --devices   a file listing device directories; every file under
              <device>/profiles is converted
  arguments   profile paths or glob patterns (** is supported)

Lines starting with # in list files are ignored. Profiles matching the
configured exclude patterns are skipped. By default that is any profile whose
path contains "extended" (**/*extended* and **/*extended*/**).

Every profile is parsed before the document is written, so a failing
profile never leaves a partial document behind. With --jobs greater than 1
profiles are parsed in parallel; the document order does not change.

Exit codes:
  0 - Document written
  1 - Document written, but limits had to be recovered (--strict only)
  2 - Configuration or runtime error`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, convertOptionsFrom(v))
		},
	}

	cmd.Flags().StringP("profiles", "p", "", "File listing profile paths")
	cmd.Flags().StringP("devices", "d", "", "File listing device directories")
	cmd.Flags().StringP("output", "o", ".", "Directory for profiles.json, or - for stdout")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this file (textfile collector format)")
	cmd.Flags().Bool("strict", false, "Exit with status 1 when limits had to be recovered")
	cmd.Flags().IntP("jobs", "j", 1, "Number of profiles parsed in parallel")

	// Webhook flags
	cmd.Flags().String("webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().String("webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().String("webhook-trigger", "always", "When to fire webhook (always|on_diagnostics|never)")

	return cmd
}

func convertOptionsFrom(v *viper.Viper) *ConvertOptions {
	return &ConvertOptions{
		ConfigPath:     v.GetString("config"),
		ProfileList:    v.GetString("profiles"),
		DeviceList:     v.GetString("devices"),
		Output:         v.GetString("output"),
		MetricsFile:    v.GetString("metrics-file"),
		Strict:         v.GetBool("strict"),
		Jobs:           v.GetInt("jobs"),
		WebhookURL:     v.GetString("webhook-url"),
		WebhookToken:   v.GetString("webhook-token"),
		WebhookTrigger: v.GetString("webhook-trigger"),
	}
}

func runConvert(cmd *cobra.Command, args []string, opts *ConvertOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadOrDefault(ctx, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := validateCLIWebhook(opts); err != nil {
		return err
	}

	inputs := convert.Inputs{
		ProfileList: opts.ProfileList,
		DeviceList:  opts.DeviceList,
		Paths:       args,
	}
	if inputs.Empty() {
		return errors.New("neither --profiles, --devices nor profile paths were given")
	}

	batch, err := convert.New(cfg, slog.Default(), convert.WithJobs(opts.Jobs)).Run(ctx, inputs)
	if err != nil {
		return err
	}

	report := output.NewReport(batch, opts.ConfigPath)

	if opts.Output == StdoutOutput {
		if err := output.NewJSONFormatter(output.FormatOptions{}).Format(ctx, report, cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("formatting output: %w", err)
		}
	} else {
		path, err := output.WriteDocument(ctx, report, opts.Output)
		if err != nil {
			return err
		}
		slog.Info("wrote profiles", "path", path, "profiles", report.Summary.ProfilesConverted)
	}

	if opts.MetricsFile != "" {
		m := metrics.New()
		m.Observe(report)
		if err := m.WriteTextfile(opts.MetricsFile); err != nil {
			return err
		}
	}

	// Send webhooks (errors logged but don't fail the conversion)
	sendWebhooks(ctx, cfg, opts, report)

	if opts.Strict && report.HasDiagnostics() {
		ExitCode = 1
	}

	return nil
}

// sendWebhooks sends the document to all configured webhooks.
// Errors are logged but don't fail the conversion.
func sendWebhooks(ctx context.Context, cfg *config.Config, opts *ConvertOptions, report *output.Report) {
	webhooks := collectWebhooks(cfg, opts)

	if len(webhooks) == 0 {
		return
	}

	client := webhook.NewClient()

	for _, wh := range webhooks {
		if !shouldFireWebhook(wh.Trigger, report.HasDiagnostics()) {
			continue
		}

		resp := client.Send(ctx, report, webhook.SendOptions{
			URL:     wh.URL,
			Token:   wh.Token,
			Timeout: wh.Timeout,
		})

		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		if resp.Success() {
			slog.Info("webhook sent", "webhook", name, "status", resp.StatusCode, "duration", resp.Duration)
		} else {
			slog.Warn("webhook failed", "webhook", name, "error", resp.Error)
		}
	}
}

// collectWebhooks merges config file webhooks with the CLI webhook.
func collectWebhooks(cfg *config.Config, opts *ConvertOptions) []config.WebhookConfig {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)

	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		webhooks = append(webhooks, cliWebhook(opts))
	}

	return webhooks
}

// cliWebhook builds the webhook described by the --webhook-* flags.
func cliWebhook(opts *ConvertOptions) config.WebhookConfig {
	trigger := config.WebhookTrigger(opts.WebhookTrigger)
	if trigger == "" {
		trigger = config.WebhookTriggerAlways
	}

	return config.WebhookConfig{
		Name:    "cli",
		URL:     opts.WebhookURL,
		Token:   opts.WebhookToken,
		Trigger: trigger,
		Timeout: config.DefaultWebhookTimeout,
	}
}

// validateCLIWebhook rejects a bad --webhook-url or --webhook-trigger before
// anything is converted.
func validateCLIWebhook(opts *ConvertOptions) error {
	if opts.WebhookURL == "" {
		return nil
	}
	wh := cliWebhook(opts)
	if err := config.ValidateWebhook(&wh); err != nil {
		return fmt.Errorf("invalid --webhook flags: %w", err)
	}
	return nil
}

// shouldFireWebhook determines if a webhook should fire based on trigger and diagnostics.
func shouldFireWebhook(trigger config.WebhookTrigger, hasDiagnostics bool) bool {
	switch trigger {
	case config.WebhookTriggerNever:
		return false
	case config.WebhookTriggerOnDiagnostics:
		return hasDiagnostics
	default:
		// Default to always
		return true
	}
}
