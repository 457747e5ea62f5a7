package output

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DocumentName is the file written by WriteDocument.
const DocumentName = "profiles.json"

// WriteDocument writes the report's profiles to dir/profiles.json.
// The document is rendered in full before the file is touched, and replaced
// atomically, so a failed run never leaves a truncated document behind.
func WriteDocument(ctx context.Context, report *Report, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}

	var buf bytes.Buffer
	if err := NewJSONFormatter(FormatOptions{}).Format(ctx, report, &buf); err != nil {
		return "", fmt.Errorf("encoding profiles: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(dir, DocumentName)
	tmp, err := os.CreateTemp(dir, "."+DocumentName+"-*")
	if err != nil {
		return "", fmt.Errorf("creating output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing output file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("writing output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("writing output file: %w", err)
	}

	return path, nil
}
