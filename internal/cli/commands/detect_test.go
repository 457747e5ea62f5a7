package commands

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/ccollicutt/profjson/pkg/config"
	"github.com/ccollicutt/profjson/pkg/detector"
	"github.com/ccollicutt/profjson/pkg/parser"
)

const unitProfile = `[ Header ]
Instance = pump1
ClassName = Pump
[ Magnitude .Pump.Flow]
units: l/min
type: float
upper_limit: 120
lower_limit: 0
default_sampling_period: 10s
default_storage_period: 60 s
`

func detectResult(t *testing.T) *detector.DetectionResult {
	t.Helper()
	path := writeTestFile(t, filepath.Join(t.TempDir(), "pump1"), unitProfile)
	result, err := detector.New().DetectFromFile(context.Background(), path)
	if err != nil {
		t.Fatalf("DetectFromFile failed: %v", err)
	}
	return result
}

func TestGenerateStarterConfig(t *testing.T) {
	content := generateStarterConfig(detectResult(t))

	checks := []string{
		"remove-time-unit:",
		"  - default_sampling_period",
		"  - default_storage_period",
		"remove-white-spaces:",
		"remove-line-feed: []",
		"match_all: false",
		`  - "**/*extended*"` + "\n",
		`  - "**/*extended*/**"` + "\n",
		"Period with time unit",
		"100%",
	}

	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Errorf("Config missing %q", check)
		}
	}
}

func TestGenerateStarterConfig_Loadable(t *testing.T) {
	cfg, err := config.Parse([]byte(generateStarterConfig(detectResult(t))), ".yaml")
	if err != nil {
		t.Fatalf("Generated config does not load: %v", err)
	}

	if !cfg.Applies(config.TransformRemoveTimeUnit, parser.KeyDefaultSamplingPeriod) {
		t.Error("Expected remove-time-unit on default_sampling_period")
	}
	if !cfg.Applies(config.TransformRemoveWhiteSpaces, parser.KeyDefaultStoragePeriod) {
		t.Error("Expected remove-white-spaces on default_storage_period")
	}
	if cfg.Applies(config.TransformRemoveWhiteSpaces, parser.KeyDefaultSamplingPeriod) {
		t.Error("Did not expect remove-white-spaces on default_sampling_period")
	}
	if !cfg.Excluded("devices/extended-dev/profiles/p") {
		t.Error("Expected profiles under an extended directory to be excluded")
	}
}

func TestWriteStarterConfig_Success(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "profjson.yaml")

	var out strings.Builder
	if err := writeStarterConfig(&out, detectResult(t), configPath); err != nil {
		t.Fatalf("writeStarterConfig failed: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}
	if !strings.Contains(out.String(), "Wrote starter config to: "+configPath) {
		t.Errorf("Expected write notice, got %q", out.String())
	}

	if _, err := config.Load(context.Background(), configPath); err != nil {
		t.Errorf("Written config does not load: %v", err)
	}
}

func TestWriteStarterConfig_NoOverwrite(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "existing.yaml")

	if err := os.WriteFile(configPath, []byte("existing content"), 0644); err != nil {
		t.Fatalf("Failed to create existing file: %v", err)
	}

	err := writeStarterConfig(&strings.Builder{}, detectResult(t), configPath)
	if err == nil {
		t.Fatal("Expected error when file exists, got nil")
	}
	if !strings.Contains(err.Error(), "will not overwrite") {
		t.Errorf("Expected 'will not overwrite' error, got: %v", err)
	}

	// Verify original content unchanged
	content, _ := os.ReadFile(configPath)
	if string(content) != "existing content" {
		t.Error("Existing file was modified")
	}
}

func TestWriteStarterConfig_NoMatch(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "test.yaml")

	result := &detector.DetectionResult{SampledProfiles: 1, SampledMagnitudes: 3}

	err := writeStarterConfig(&strings.Builder{}, result, configPath)
	if err == nil {
		t.Fatal("Expected error when nothing was detected, got nil")
	}
	if !strings.Contains(err.Error(), "no values need a transform") {
		t.Errorf("Expected 'no values need a transform' error, got: %v", err)
	}
	if _, err := os.Stat(configPath); !os.IsNotExist(err) {
		t.Error("Config file should not have been created")
	}
}

func TestDetectOptions_Defaults(t *testing.T) {
	cmd := NewDetectCommand()

	output, _ := cmd.Flags().GetString("output")
	if output != "text" {
		t.Errorf("Expected default output 'text', got %q", output)
	}

	sample, _ := cmd.Flags().GetInt("sample")
	if sample != 100 {
		t.Errorf("Expected default sample 100, got %d", sample)
	}

	writeConfig, _ := cmd.Flags().GetString("write-config")
	if writeConfig != "" {
		t.Errorf("Expected default write-config '', got %q", writeConfig)
	}
}

func TestRunDetect_Text(t *testing.T) {
	path := writeTestFile(t, filepath.Join(t.TempDir(), "pump1"), unitProfile)

	out, err := execute(t, NewDetectCommand(), nil, "--all", path)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	checks := []string{
		"File: " + path,
		"Magnitudes sampled: 1",
		"Detected: Period with time unit in default_sampling_period",
		"Confidence: 100.0% (1/1 values matched)",
		"default_sampling_period = 10s (Pump.Flow)",
		"--- Other findings ---",
		"2. Period with spaced time unit in default_storage_period",
	}
	for _, check := range checks {
		if !strings.Contains(out, check) {
			t.Errorf("Output missing %q\n%s", check, out)
		}
	}
}

func TestRunDetect_NoMatch(t *testing.T) {
	path := writeTestFile(t, filepath.Join(t.TempDir(), "motor1"), testProfile)

	out, err := execute(t, NewDetectCommand(), nil, path)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if !strings.Contains(out, "No values need a transform.") {
		t.Errorf("Expected no-match notice, got:\n%s", out)
	}
}

func TestRunDetect_JSON(t *testing.T) {
	path := writeTestFile(t, filepath.Join(t.TempDir(), "pump1"), unitProfile)

	out, err := execute(t, NewDetectCommand(), nil, "-o", "json", path)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	var got JSONOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("Output is not valid JSON: %v\n%s", err, out)
	}

	if len(got.Matches) != 1 {
		t.Errorf("Expected only the best match without --all, got %d", len(got.Matches))
	}
	if got.SampledProfiles != 1 || got.SampledMagnitudes != 1 {
		t.Errorf("Unexpected sample counts: %d profiles, %d magnitudes", got.SampledProfiles, got.SampledMagnitudes)
	}
	if len(got.Suggestions) != 2 {
		t.Errorf("Expected 2 suggestions, got %v", got.Suggestions)
	}
}

func TestRunDetect_WriteConfigThenConvert(t *testing.T) {
	resetExitCode(t)
	dir := t.TempDir()
	path := writeTestFile(t, filepath.Join(dir, "pump1"), unitProfile)
	configPath := filepath.Join(dir, "profjson.yaml")

	if _, err := execute(t, NewDetectCommand(), nil, "-w", configPath, path); err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	v := viper.New()
	v.Set("config", configPath)
	out, err := execute(t, NewConvertCommand(v), v, "-o", StdoutOutput, path)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	var profiles []*parser.Profile
	if err := json.Unmarshal([]byte(out), &profiles); err != nil {
		t.Fatalf("Output is not valid JSON: %v\n%s", err, out)
	}
	flow := profiles[0].Monitors["Pump.Flow"]
	if flow[parser.KeyDefaultSamplingPeriod] != "10.0" {
		t.Errorf("Expected sampling period 10.0, got %q", flow[parser.KeyDefaultSamplingPeriod])
	}
	if flow[parser.KeyDefaultStoragePeriod] != "60.0" {
		t.Errorf("Expected storage period 60.0, got %q", flow[parser.KeyDefaultStoragePeriod])
	}
}

func TestRunDetect_UnknownOutput(t *testing.T) {
	path := writeTestFile(t, filepath.Join(t.TempDir(), "pump1"), unitProfile)

	if _, err := execute(t, NewDetectCommand(), nil, "-o", "xml", path); err == nil {
		t.Error("Expected error for unknown output format")
	}
}

func TestRunDetect_MissingFile(t *testing.T) {
	if _, err := execute(t, NewDetectCommand(), nil, "/nonexistent/profile"); err == nil {
		t.Error("Expected error for missing profile")
	}
}
