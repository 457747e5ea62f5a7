package parser

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ProfilesDir is the directory under a device that holds its profiles.
const ProfilesDir = "profiles"

// ExpandGlobs expands a list of file paths and doublestar patterns into a
// deduplicated list of paths. Entries keep their order; the matches of one
// pattern are sorted. Patterns that don't match any files are returned as-is
// (the caller should handle file-not-found errors).
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			result = append(result, path)
		}
	}

	for _, pattern := range patterns {
		if !hasMeta(pattern) {
			add(pattern)
			continue
		}

		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}

		if len(matches) == 0 {
			// Keep the literal so the missing file is reported when it is opened
			add(pattern)
			continue
		}

		sort.Strings(matches)
		for _, match := range matches {
			add(match)
		}
	}

	return result, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// ReadList reads a list file: one entry per line, blank lines and lines
// starting with '#' are ignored.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided list path is expected
	if err != nil {
		return nil, fatal(path, ErrIOFailure, err)
	}
	defer f.Close()

	lines, err := ReadLines(f)
	if err != nil {
		return nil, fatal(path, ErrIOFailure, err)
	}

	var entries []string
	for _, line := range lines {
		if strings.HasPrefix(line, "#") {
			continue
		}
		if entry := strings.TrimSpace(line); entry != "" {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// DeviceProfiles returns every regular file below <device>/profiles in lexical order.
// A device without a profiles directory has no profiles.
func DeviceProfiles(device string) ([]string, error) {
	root := filepath.Join(device, ProfilesDir)

	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fatal(root, ErrIOFailure, err)
	}
	if !info.IsDir() {
		return nil, nil
	}

	matches, err := doublestar.Glob(os.DirFS(root), "**", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fatal(root, ErrIOFailure, err)
	}

	sort.Strings(matches)
	profiles := make([]string, len(matches))
	for i, m := range matches {
		profiles[i] = filepath.Join(root, filepath.FromSlash(m))
	}
	return profiles, nil
}
