// Package manifest reads and writes the JSON manifests that describe the
// template database and probe sets: an object mapping person IDs to ordered
// lists of image paths.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Manifest maps a person identifier to an ordered list of image paths.
type Manifest map[string][]string

// Load reads a manifest from a JSON file.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	return m, nil
}

// Save writes the manifest as indented JSON, creating parent directories.
func (m Manifest) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating manifest directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// People returns the person IDs in sorted order. Go map iteration is
// unordered, so every consumer that needs reproducible results iterates
// through this instead.
func (m Manifest) People() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ImageCount returns the total number of image paths across all people.
func (m Manifest) ImageCount() int {
	n := 0
	for _, paths := range m {
		n += len(paths)
	}
	return n
}
