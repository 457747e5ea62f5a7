package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ccollicutt/profjson/pkg/config"
	"github.com/ccollicutt/profjson/pkg/output"
	"github.com/ccollicutt/profjson/pkg/parser"
)

const testProfile = `[ Header ]
Instance = motor1
ClassName = Motor, Device
[ Magnitude .Motor.Speed]
description: Shaft speed
units: rpm
type: Array[3]
upper_limit: [3000]
lower_limit: [0,0,0]
default_sampling_period: 1
`

// execute runs cmd with its flags bound to v, the way the root command does.
func execute(t *testing.T, cmd *cobra.Command, v *viper.Viper, args ...string) (string, error) {
	t.Helper()
	if v != nil {
		cmd.PreRunE = func(c *cobra.Command, _ []string) error {
			return v.BindPFlags(c.Flags())
		}
	}

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTestFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func resetExitCode(t *testing.T) {
	t.Helper()
	ExitCode = 0
	t.Cleanup(func() { ExitCode = 0 })
}

func readDocument(t *testing.T, path string) []*parser.Profile {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	var profiles []*parser.Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		t.Fatalf("%s is not valid JSON: %v", path, err)
	}
	return profiles
}

func TestRunConvert_WritesDocument(t *testing.T) {
	resetExitCode(t)
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "devices", "motor1", "profiles", "motor"), testProfile)
	writeTestFile(t, filepath.Join(dir, "devices", "motor1", "profiles", "motor_extended"), testProfile)
	outDir := filepath.Join(dir, "out")

	v := viper.New()
	_, err := execute(t, NewConvertCommand(v), v, "-o", outDir, filepath.Join(dir, "devices", "**", "*"))
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}

	profiles := readDocument(t, filepath.Join(outDir, output.DocumentName))
	if len(profiles) != 1 {
		t.Fatalf("profiles = %d, want 1 (extended profile must be skipped)", len(profiles))
	}

	speed := profiles[0].Monitors["Motor.Speed"]
	if speed[parser.KeyUpperLimit] != "[3000.0,3000.0,3000.0]" {
		t.Errorf("upper_limit = %q", speed[parser.KeyUpperLimit])
	}
	if speed[parser.KeyDefaultSamplingPeriod] != "1.0" {
		t.Errorf("default_sampling_period = %q, want 1.0", speed[parser.KeyDefaultSamplingPeriod])
	}
	if profiles[0].ClassName != "Motor" {
		t.Errorf("className = %q, want Motor", profiles[0].ClassName)
	}
	if ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0 without --strict", ExitCode)
	}
}

func TestRunConvert_Stdout(t *testing.T) {
	resetExitCode(t)
	profile := writeTestFile(t, filepath.Join(t.TempDir(), "motor"), testProfile)

	v := viper.New()
	out, err := execute(t, NewConvertCommand(v), v, "--output", StdoutOutput, profile)
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}

	if !strings.HasPrefix(out, "[\n    {\n        \"instance\": \"motor1\"") {
		t.Errorf("unexpected document:\n%s", out)
	}
}

func TestRunConvert_Jobs(t *testing.T) {
	resetExitCode(t)
	dir := t.TempDir()
	for _, name := range []string{"m1", "m2", "m3", "m4"} {
		writeTestFile(t, filepath.Join(dir, name), strings.Replace(testProfile, "motor1", name, 1))
	}

	v := viper.New()
	out, err := execute(t, NewConvertCommand(v), v, "-j", "3", "-o", StdoutOutput, filepath.Join(dir, "m*"))
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}

	var profiles []*parser.Profile
	if err := json.Unmarshal([]byte(out), &profiles); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	var got []string
	for _, p := range profiles {
		got = append(got, p.Instance)
	}
	if strings.Join(got, ",") != "m1,m2,m3,m4" {
		t.Errorf("instances = %v, want discovery order", got)
	}
}

func TestRunConvert_DeviceAndProfileLists(t *testing.T) {
	resetExitCode(t)
	dir := t.TempDir()
	device := filepath.Join(dir, "dev")
	writeTestFile(t, filepath.Join(device, "profiles", "a"), strings.Replace(testProfile, "motor1", "from-device", 1))
	listed := writeTestFile(t, filepath.Join(dir, "listed"), strings.Replace(testProfile, "motor1", "from-list", 1))

	devices := writeTestFile(t, filepath.Join(dir, "devices.txt"), "# devices\n"+device+"\n")
	profiles := writeTestFile(t, filepath.Join(dir, "profiles.txt"), listed+"\n")

	v := viper.New()
	_, err := execute(t, NewConvertCommand(v), v, "-d", devices, "-p", profiles, "-o", dir)
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}

	got := readDocument(t, filepath.Join(dir, output.DocumentName))
	if len(got) != 2 {
		t.Fatalf("profiles = %d, want 2", len(got))
	}
	if got[0].Instance != "from-list" || got[1].Instance != "from-device" {
		t.Errorf("order = %s, %s; want profile list before devices", got[0].Instance, got[1].Instance)
	}
}

func TestRunConvert_Strict(t *testing.T) {
	resetExitCode(t)
	dir := t.TempDir()
	profile := writeTestFile(t, filepath.Join(dir, "motor"), testProfile)

	v := viper.New()
	if _, err := execute(t, NewConvertCommand(v), v, "--strict", "-o", dir, profile); err != nil {
		t.Fatalf("convert error = %v", err)
	}
	if ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1 when limits were broadcast", ExitCode)
	}
}

func TestRunConvert_MetricsFile(t *testing.T) {
	resetExitCode(t)
	dir := t.TempDir()
	profile := writeTestFile(t, filepath.Join(dir, "motor"), testProfile)
	metricsFile := filepath.Join(dir, "profjson.prom")

	v := viper.New()
	if _, err := execute(t, NewConvertCommand(v), v, "-o", dir, "--metrics-file", metricsFile, profile); err != nil {
		t.Fatalf("convert error = %v", err)
	}

	data, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("reading metrics: %v", err)
	}
	if !strings.Contains(string(data), "profjson_profiles_converted_total 1") {
		t.Errorf("metrics missing converted counter:\n%s", data)
	}
}

func TestRunConvert_NoInputs(t *testing.T) {
	v := viper.New()
	_, err := execute(t, NewConvertCommand(v), v, "-o", t.TempDir())
	if err == nil {
		t.Fatal("convert expected error without inputs")
	}
}

func TestRunConvert_FailureLeavesNoDocument(t *testing.T) {
	dir := t.TempDir()
	good := writeTestFile(t, filepath.Join(dir, "good"), testProfile)
	bad := writeTestFile(t, filepath.Join(dir, "bad"), "garbage\n")

	v := viper.New()
	_, err := execute(t, NewConvertCommand(v), v, "-o", dir, good, bad)
	if err == nil {
		t.Fatal("convert expected error for a profile without header")
	}
	if _, statErr := os.Stat(filepath.Join(dir, output.DocumentName)); !os.IsNotExist(statErr) {
		t.Error("a failed conversion must not write profiles.json")
	}
}

func TestRunConvert_ConfigTransforms(t *testing.T) {
	resetExitCode(t)
	dir := t.TempDir()
	profile := writeTestFile(t, filepath.Join(dir, "motor"),
		strings.Replace(testProfile, "default_sampling_period: 1", "default_sampling_period: 5s", 1))
	cfgPath := writeTestFile(t, filepath.Join(dir, "profjson.yaml"), "remove-time-unit: [default_sampling_period]\n")

	v := viper.New()
	v.Set("config", cfgPath)
	if _, err := execute(t, NewConvertCommand(v), v, "-o", dir, profile); err != nil {
		t.Fatalf("convert error = %v", err)
	}

	got := readDocument(t, filepath.Join(dir, output.DocumentName))
	if p := got[0].Monitors["Motor.Speed"][parser.KeyDefaultSamplingPeriod]; p != "5.0" {
		t.Errorf("default_sampling_period = %q, want 5.0", p)
	}
}

func TestRunConvert_WebhookFlag(t *testing.T) {
	resetExitCode(t)
	var received []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dir := t.TempDir()
	profile := writeTestFile(t, filepath.Join(dir, "motor"), testProfile)

	v := viper.New()
	if _, err := execute(t, NewConvertCommand(v), v, "-o", dir, "--webhook-url", server.URL, profile); err != nil {
		t.Fatalf("convert error = %v", err)
	}

	if !strings.Contains(string(received), `"instance": "motor1"`) {
		t.Errorf("webhook payload missing profile: %s", received)
	}
}

func TestRunConvert_InvalidWebhookTrigger(t *testing.T) {
	resetExitCode(t)
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dir := t.TempDir()
	profile := writeTestFile(t, filepath.Join(dir, "motor"), testProfile)

	v := viper.New()
	_, err := execute(t, NewConvertCommand(v), v,
		"-o", dir, "--webhook-url", server.URL, "--webhook-trigger", "on-diagnostics", profile)
	if err == nil || !strings.Contains(err.Error(), `invalid trigger "on-diagnostics"`) {
		t.Fatalf("convert error = %v, want invalid trigger", err)
	}
	if calls != 0 {
		t.Errorf("webhook called %d times, want 0", calls)
	}
	if _, err := os.Stat(filepath.Join(dir, "profiles.json")); !os.IsNotExist(err) {
		t.Errorf("profiles.json written despite invalid webhook flags: %v", err)
	}
}

func TestValidateCLIWebhook(t *testing.T) {
	tests := []struct {
		name    string
		opts    ConvertOptions
		wantErr bool
	}{
		{"no webhook", ConvertOptions{WebhookTrigger: "bogus"}, false},
		{"default trigger", ConvertOptions{WebhookURL: "https://example.com/hook"}, false},
		{"on_diagnostics", ConvertOptions{WebhookURL: "https://example.com/hook", WebhookTrigger: "on_diagnostics"}, false},
		{"never", ConvertOptions{WebhookURL: "https://example.com/hook", WebhookTrigger: "never"}, false},
		{"typo trigger", ConvertOptions{WebhookURL: "https://example.com/hook", WebhookTrigger: "on-diagnostics"}, true},
		{"bad scheme", ConvertOptions{WebhookURL: "ftp://example.com/hook"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCLIWebhook(&tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateCLIWebhook() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestShouldFireWebhook(t *testing.T) {
	tests := []struct {
		name           string
		trigger        config.WebhookTrigger
		hasDiagnostics bool
		want           bool
	}{
		{"on_diagnostics with diagnostics", config.WebhookTriggerOnDiagnostics, true, true},
		{"on_diagnostics without diagnostics", config.WebhookTriggerOnDiagnostics, false, false},
		{"always with diagnostics", config.WebhookTriggerAlways, true, true},
		{"always without diagnostics", config.WebhookTriggerAlways, false, true},
		{"never with diagnostics", config.WebhookTriggerNever, true, false},
		{"never without diagnostics", config.WebhookTriggerNever, false, false},
		{"empty trigger", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shouldFireWebhook(tt.trigger, tt.hasDiagnostics)
			if got != tt.want {
				t.Errorf("shouldFireWebhook(%q, %v) = %v, want %v",
					tt.trigger, tt.hasDiagnostics, got, tt.want)
			}
		})
	}
}

func TestCollectWebhooks(t *testing.T) {
	t.Run("config only", func(t *testing.T) {
		cfg := &config.Config{
			Webhooks: []config.WebhookConfig{
				{Name: "inventory", URL: "https://inventory.example.com/hook"},
				{Name: "archive", URL: "https://archive.example.com/hook"},
			},
		}

		webhooks := collectWebhooks(cfg, &ConvertOptions{})

		if len(webhooks) != 2 {
			t.Errorf("got %d webhooks, want 2", len(webhooks))
		}
	})

	t.Run("cli only", func(t *testing.T) {
		opts := &ConvertOptions{
			WebhookURL:     "https://cli.example.com/webhook",
			WebhookToken:   "secret",
			WebhookTrigger: "on_diagnostics",
		}

		webhooks := collectWebhooks(&config.Config{}, opts)

		if len(webhooks) != 1 {
			t.Fatalf("got %d webhooks, want 1", len(webhooks))
		}
		if webhooks[0].Name != "cli" {
			t.Errorf("got name %q, want cli", webhooks[0].Name)
		}
		if webhooks[0].Token != "secret" {
			t.Errorf("got token %q, want secret", webhooks[0].Token)
		}
		if webhooks[0].Trigger != config.WebhookTriggerOnDiagnostics {
			t.Errorf("got trigger %q, want on_diagnostics", webhooks[0].Trigger)
		}
		if webhooks[0].Timeout != config.DefaultWebhookTimeout {
			t.Errorf("got timeout %v, want %v", webhooks[0].Timeout, config.DefaultWebhookTimeout)
		}
	})

	t.Run("default trigger", func(t *testing.T) {
		webhooks := collectWebhooks(&config.Config{}, &ConvertOptions{WebhookURL: "https://example.com/webhook"})

		if len(webhooks) != 1 {
			t.Fatalf("got %d webhooks, want 1", len(webhooks))
		}
		if webhooks[0].Trigger != config.WebhookTriggerAlways {
			t.Errorf("got trigger %q, want always", webhooks[0].Trigger)
		}
	})
}

func TestSendWebhooks(t *testing.T) {
	var receivedPayloads [][]byte
	var receivedAuths []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		receivedPayloads = append(receivedPayloads, body)
		receivedAuths = append(receivedAuths, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{
		Webhooks: []config.WebhookConfig{
			{
				Name:    "test-webhook",
				URL:     server.URL,
				Token:   "test-token",
				Trigger: config.WebhookTriggerAlways,
				Timeout: 10 * time.Second,
			},
		},
	}

	report := &output.Report{
		Profiles: []*parser.Profile{{Instance: "motor1", Monitors: map[string]parser.Magnitude{}}},
	}

	sendWebhooks(context.Background(), cfg, &ConvertOptions{}, report)

	if len(receivedPayloads) != 1 {
		t.Fatalf("expected 1 webhook call, got %d", len(receivedPayloads))
	}

	var payload []map[string]interface{}
	if err := json.Unmarshal(receivedPayloads[0], &payload); err != nil {
		t.Fatalf("invalid JSON payload: %v", err)
	}
	if len(payload) != 1 {
		t.Errorf("payload has %d profiles, want 1", len(payload))
	}

	if receivedAuths[0] != "Bearer test-token" {
		t.Errorf("got auth %q, want Bearer test-token", receivedAuths[0])
	}
}

func TestSendWebhooks_OnDiagnosticsTrigger(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{
		Webhooks: []config.WebhookConfig{
			{
				Name:    "on-diagnostics-webhook",
				URL:     server.URL,
				Trigger: config.WebhookTriggerOnDiagnostics,
				Timeout: 10 * time.Second,
			},
		},
	}

	sendWebhooks(context.Background(), cfg, &ConvertOptions{}, &output.Report{})
	if callCount != 0 {
		t.Errorf("on_diagnostics webhook fired without diagnostics, callCount = %d", callCount)
	}

	withDiagnostics := &output.Report{
		Diagnostics: []parser.Diagnostic{{Magnitude: "M", Kind: parser.DiagnosticLimitBroadcast}},
	}
	sendWebhooks(context.Background(), cfg, &ConvertOptions{}, withDiagnostics)
	if callCount != 1 {
		t.Errorf("on_diagnostics webhook should fire with diagnostics, callCount = %d", callCount)
	}
}

func TestSendWebhooks_NeverTrigger(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{
		Webhooks: []config.WebhookConfig{
			{Name: "never-webhook", URL: server.URL, Trigger: config.WebhookTriggerNever, Timeout: 10 * time.Second},
		},
	}

	sendWebhooks(context.Background(), cfg, &ConvertOptions{}, &output.Report{})

	if callCount != 0 {
		t.Errorf("never trigger webhook should not fire, callCount = %d", callCount)
	}
}

func TestSendWebhooks_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := &config.Config{
		Webhooks: []config.WebhookConfig{
			{Name: "error-webhook", URL: server.URL, Trigger: config.WebhookTriggerAlways, Timeout: 10 * time.Second},
		},
	}

	// Should not panic, just log error
	sendWebhooks(context.Background(), cfg, &ConvertOptions{}, &output.Report{})
}

func TestSendWebhooks_NoWebhooks(t *testing.T) {
	sendWebhooks(context.Background(), &config.Config{}, &ConvertOptions{}, &output.Report{})
}
