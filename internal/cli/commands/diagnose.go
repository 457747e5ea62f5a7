package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ccollicutt/profjson/pkg/config"
	"github.com/ccollicutt/profjson/pkg/convert"
	"github.com/ccollicutt/profjson/pkg/detector"
	"github.com/ccollicutt/profjson/pkg/parser"
	"github.com/ccollicutt/profjson/pkg/transform"
)

// Diagnostic statuses.
const (
	StatusOK      = "ok"
	StatusWarning = "warning"
	StatusError   = "error"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	ConfigPath  string
	ProfileList string
	DeviceList  string
	Verbose     bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose [profile...]",
		Short: "Diagnose configuration and profile issues",
		Long: `Diagnose common problems before running convert.

This command checks:
- Config file syntax and structure
- Profile and device list files
- That every profile parses, and which limits had to be recovered
- Values that still need a transform with the current configuration
- Webhook configuration (and connectivity with --verbose)

Profiles are given the same way as for convert.

Example:
  profjson diagnose -c profjson.yaml -d devices.txt
  profjson diagnose -v devices/**/profiles/*`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd, args, &DiagnoseOptions{
				ConfigPath:  v.GetString("config"),
				ProfileList: v.GetString("profiles"),
				DeviceList:  v.GetString("devices"),
				Verbose:     v.GetBool("verbose"),
			})
		},
	}

	cmd.Flags().StringP("profiles", "p", "", "File listing profile paths")
	cmd.Flags().StringP("devices", "d", "", "File listing device directories")

	return cmd
}

func runDiagnose(cmd *cobra.Command, args []string, opts *DiagnoseOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()
	results := []DiagnosticResult{}

	// 1. Config file
	cfg, configResults := checkConfig(ctx, opts.ConfigPath)
	results = append(results, configResults...)
	if cfg == nil {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. List files
	if opts.ProfileList != "" {
		results = append(results, checkListFile("Profile List", opts.ProfileList))
	}
	if opts.DeviceList != "" {
		results = append(results, checkDevices(opts.DeviceList)...)
	}

	// 3. Profiles
	inputs := convert.Inputs{
		ProfileList: opts.ProfileList,
		DeviceList:  opts.DeviceList,
		Paths:       args,
	}
	paths, profileResults := checkProfiles(ctx, cfg, inputs, opts)
	results = append(results, profileResults...)

	// 4. Values that still need a transform
	if len(paths) > 0 {
		results = append(results, checkTransforms(ctx, cfg, paths))
	}

	// 5. Webhooks
	results = append(results, checkWebhooks(cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfig(ctx context.Context, path string) (*config.Config, []DiagnosticResult) {
	if path == "" {
		cfg, err := config.LoadOrDefault(ctx, "")
		if err != nil {
			return nil, []DiagnosticResult{{
				Check:   "Config",
				Status:  StatusError,
				Message: fmt.Sprintf("Default configuration is invalid: %v", err),
				Suggests: []string{
					"Check the " + config.EnvExclude + " environment variable",
				},
			}}
		}
		return cfg, []DiagnosticResult{{
			Check:   "Config",
			Status:  StatusOK,
			Message: "No config file given, no transforms are applied",
			Suggests: []string{
				"Use 'profjson detect <profile> --write-config profjson.yaml' to generate a starter config",
			},
		}}
	}

	result := checkConfigExists(path)
	if result.Status == StatusError {
		return nil, []DiagnosticResult{result}
	}

	cfg, parsed := checkConfigParseable(ctx, path)
	return cfg, []DiagnosticResult{result, parsed}
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = StatusError
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'profjson detect <profile> --write-config profjson.yaml' to generate a starter config",
		}
		return result
	}
	if err != nil {
		result.Status = StatusError
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = StatusError
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = StatusWarning
		result.Message = "Config file is empty, no transforms are applied"
		return result
	}

	result.Status = StatusOK
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = StatusError
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
				"Only remove-time-unit, remove-white-spaces, remove-line-feed, match_all, exclude and webhooks are known keys",
			}
		}
		return nil, result
	}

	result.Status = StatusOK
	result.Message = "Config file parsed successfully"
	transforms := cfg.Transforms()
	for _, step := range transform.Table {
		if props := transforms[step.Name]; len(props) > 0 {
			result.Details = append(result.Details, fmt.Sprintf("%s: %s", step.Name, strings.Join(props, ", ")))
		}
	}
	result.Details = append(result.Details,
		fmt.Sprintf("Exclude patterns: %d", len(cfg.Exclude)),
		fmt.Sprintf("Webhooks: %d", len(cfg.Webhooks)),
	)
	return cfg, result
}

func checkListFile(check, path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("%s: %s", check, path),
	}

	entries, err := parser.ReadList(path)
	if err != nil {
		result.Status = StatusError
		result.Message = fmt.Sprintf("Cannot read list: %v", err)
		result.Suggests = []string{"Check the list file path is correct"}
		return result
	}
	if len(entries) == 0 {
		result.Status = StatusWarning
		result.Message = "List has no entries"
		return result
	}

	result.Status = StatusOK
	result.Message = fmt.Sprintf("%d entries", len(entries))
	result.Details = entries
	return result
}

func checkDevices(path string) []DiagnosticResult {
	listResult := checkListFile("Device List", path)
	if listResult.Status != StatusOK {
		return []DiagnosticResult{listResult}
	}
	results := []DiagnosticResult{listResult}

	for _, device := range listResult.Details {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Device: %s", device),
		}

		profiles, err := parser.DeviceProfiles(device)
		switch {
		case err != nil:
			result.Status = StatusError
			result.Message = fmt.Sprintf("Cannot list profiles: %v", err)
		case len(profiles) == 0:
			result.Status = StatusWarning
			result.Message = fmt.Sprintf("No files under %s/%s", device, parser.ProfilesDir)
			result.Suggests = []string{"Check the device directory has a " + parser.ProfilesDir + " directory"}
		default:
			result.Status = StatusOK
			result.Message = fmt.Sprintf("%d profile(s)", len(profiles))
			result.Details = profiles
		}
		results = append(results, result)
	}
	return results
}

// checkProfiles parses every profile the inputs name and returns the ones that parsed.
func checkProfiles(ctx context.Context, cfg *config.Config, inputs convert.Inputs, opts *DiagnoseOptions) ([]string, []DiagnosticResult) {
	if inputs.Empty() {
		return nil, []DiagnosticResult{{
			Check:   "Profiles",
			Status:  StatusWarning,
			Message: "No profiles given, only the configuration was checked",
			Suggests: []string{
				"Pass profile paths, --profiles or --devices to check profiles too",
			},
		}}
	}

	conv := convert.New(cfg, slog.Default())
	paths, skipped, err := conv.Discover(inputs)
	if err != nil {
		return nil, []DiagnosticResult{{
			Check:   "Profiles",
			Status:  StatusError,
			Message: fmt.Sprintf("Cannot discover profiles: %v", err),
		}}
	}

	summary := DiagnosticResult{
		Check:   "Profiles",
		Status:  StatusOK,
		Message: fmt.Sprintf("%d to convert, %d excluded", len(paths), len(skipped)),
	}
	if opts.Verbose {
		for _, s := range skipped {
			summary.Details = append(summary.Details, "excluded: "+s)
		}
	}
	if len(paths) == 0 {
		summary.Status = StatusWarning
		summary.Suggests = []string{"Every profile is excluded; check the exclude patterns"}
	}
	results := []DiagnosticResult{summary}

	var parsed []string
	for _, path := range paths {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Profile: %s", path),
		}

		r, err := conv.ParseOne(ctx, path)
		if err != nil {
			result.Status = StatusError
			result.Message = fmt.Sprintf("Cannot convert: %v", err)
			if parser.IsFatal(err) {
				result.Suggests = []string{"A failing profile aborts convert; fix or exclude it"}
			}
			results = append(results, result)
			continue
		}
		parsed = append(parsed, path)

		result.Message = fmt.Sprintf("%s (%s), %d magnitude(s)",
			r.Profile.Instance, r.Profile.ClassName, len(r.Profile.Monitors))

		unmodified := 0
		for _, d := range r.Diagnostics {
			if d.Kind == parser.DiagnosticLimitUnmodified {
				unmodified++
			}
			result.Details = append(result.Details, truncate(d.Magnitude+": "+d.Message, 100))
		}

		// Broadcast limits are normal and only listed with --verbose
		result.Status = StatusOK
		if unmodified > 0 {
			result.Status = StatusWarning
			result.Suggests = []string{"Limits left unmodified are written as found; check their values"}
		}

		results = append(results, result)
	}

	return parsed, results
}

func checkTransforms(ctx context.Context, cfg *config.Config, paths []string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Transforms",
	}

	d := detector.New(detector.WithSampleSize(100))
	detResult, err := d.DetectFromFiles(ctx, paths)
	if err != nil {
		result.Status = StatusWarning
		result.Message = fmt.Sprintf("Cannot inspect values: %v", err)
		return result
	}

	missing := detector.Missing(detResult.Suggestions(), cfg)
	if len(missing) == 0 {
		result.Status = StatusOK
		result.Message = fmt.Sprintf("No values need another transform (%d magnitude(s) sampled)", detResult.SampledMagnitudes)
		return result
	}

	result.Status = StatusWarning
	result.Message = fmt.Sprintf("%d transform(s) not configured for values found in profiles", len(missing))
	for _, s := range missing {
		result.Details = append(result.Details, fmt.Sprintf("%s: %s", s.Transform, strings.Join(s.Properties, ", ")))
	}
	result.Suggests = []string{
		"Use 'profjson detect <profile>' to see the affected values",
	}
	return result
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	_, _ = fmt.Fprintln(w, "=== profjson Diagnostics ===")
	_, _ = fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		// Status icon
		var icon string
		switch r.Status {
		case StatusOK:
			icon = "PASS"
			okCount++
		case StatusWarning:
			icon = "WARN"
			warnCount++
		case StatusError:
			icon = "FAIL"
			errCount++
		}

		_, _ = fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		_, _ = fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != StatusOK {
			for _, d := range r.Details {
				_, _ = fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			_, _ = fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		_, _ = fmt.Fprintln(w)
	}

	// Summary
	_, _ = fmt.Fprintln(w, "---")
	_, _ = fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	switch {
	case errCount > 0:
		_, _ = fmt.Fprintln(w, "\nFix the errors above before converting.")
	case warnCount > 0:
		_, _ = fmt.Fprintln(w, "\nProfiles can be converted but there are warnings.")
	default:
		_, _ = fmt.Fprintln(w, "\nEverything looks good!")
	}
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		// Webhooks are optional, just note they're not configured
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  StatusOK,
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := webhookName(wh)
		result := DiagnosticResult{
			Check:   fmt.Sprintf("Webhook: %s", name),
			Status:  StatusOK,
			Message: fmt.Sprintf("Trigger: %s", wh.Trigger),
		}

		if wh.Trigger == config.WebhookTriggerNever {
			result.Status = StatusWarning
			result.Message = "Trigger is never, the webhook is disabled"
		}

		if opts.Verbose {
			result.Details = []string{
				fmt.Sprintf("URL: %s", wh.URL),
				fmt.Sprintf("Timeout: %s", wh.Timeout),
			}
			if wh.Token != "" {
				result.Details = append(result.Details, "Token: configured")
			} else {
				result.Details = append(result.Details, "Token: none (an unset ${VAR} expands to nothing)")
			}
		}

		results = append(results, result)
	}

	// Optionally test webhook connectivity
	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			result := checkWebhookConnectivity(wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", webhookName(wh))
			results = append(results, result)
		}
	}

	return results
}

func webhookName(wh config.WebhookConfig) string {
	if wh.Name != "" {
		return wh.Name
	}
	return wh.URL
}

func checkWebhookConnectivity(wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// Just do a HEAD request to check if the endpoint is reachable
	req := resty.New().SetTimeout(5 * time.Second).R()
	if wh.Token != "" {
		req.SetAuthToken(wh.Token)
	}

	resp, err := req.Head(wh.URL)
	if err != nil {
		result.Status = StatusWarning
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}

	if status := resp.StatusCode(); status >= 200 && status < 400 {
		result.Status = StatusOK
		result.Message = fmt.Sprintf("Reachable (status %d)", status)
	} else {
		result.Status = StatusWarning
		result.Message = fmt.Sprintf("Reachable but returned status %d", status)
		result.Suggests = []string{
			"The endpoint may only accept POST (the document is sent with POST)",
			"Check authentication if using a token",
		}
	}

	return result
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
