// Package store holds the template database: one embedding per enrolled
// template image, built eagerly from a manifest and queried read-only for
// the rest of the process.
package store

import (
	"context"
	"fmt"

	"github.com/veidt/faceprobe/internal/embedding"
	"github.com/veidt/faceprobe/internal/manifest"
)

// Entry is a single enrolled template: one image of one person.
type Entry struct {
	// Key is {personID}_{index}, where index is the zero-based position of
	// the image within that person's manifest list.
	Key       string
	PersonID  string
	ImagePath string
	Embedding []float32
}

// Store is the in-memory template database. It is immutable after Build,
// so concurrent reads are safe.
type Store struct {
	entries []Entry
	byKey   map[string]int
	names   map[string]string
}

// Build embeds every image of every person in the manifest and returns the
// fully populated store. People are processed in sorted-ID order and images
// in manifest order; entries keep that order, which fixes the matcher's
// scan order and makes tie-breaking reproducible.
//
// A provider failure for any single image aborts the whole build. Template
// construction is operator-facing: a broken manifest should be fixed, not
// silently shrunk.
func Build(ctx context.Context, m manifest.Manifest, provider embedding.Provider) (*Store, error) {
	return BuildWithProgress(ctx, m, provider, nil)
}

// BuildWithProgress is Build with an optional callback invoked after each
// image is embedded, for progress reporting.
func BuildWithProgress(ctx context.Context, m manifest.Manifest, provider embedding.Provider, onEmbed func(Entry)) (*Store, error) {
	s := &Store{
		byKey: make(map[string]int),
		names: make(map[string]string, len(m)),
	}

	for _, personID := range m.People() {
		s.names[personID] = personID

		for i, imagePath := range m[personID] {
			emb, err := provider.Embed(ctx, imagePath)
			if err != nil {
				return nil, fmt.Errorf("embedding %s for person %s: %w", imagePath, personID, err)
			}

			entry := Entry{
				Key:       fmt.Sprintf("%s_%d", personID, i),
				PersonID:  personID,
				ImagePath: imagePath,
				Embedding: emb,
			}
			s.byKey[entry.Key] = len(s.entries)
			s.entries = append(s.entries, entry)

			if onEmbed != nil {
				onEmbed(entry)
			}
		}
	}

	return s, nil
}

// Entries returns all template entries in insertion order. Callers must not
// modify the returned slice.
func (s *Store) Entries() []Entry {
	return s.entries
}

// Get returns the entry for a template key.
func (s *Store) Get(key string) (Entry, bool) {
	idx, ok := s.byKey[key]
	if !ok {
		return Entry{}, false
	}
	return s.entries[idx], true
}

// Name returns the display name for a person ID. Enrolled people fall back
// to their own ID; unknown IDs report "Unknown".
func (s *Store) Name(personID string) string {
	if name, ok := s.names[personID]; ok {
		return name
	}
	return "Unknown"
}

// SetName overrides the display name for an enrolled person. Unknown IDs
// are ignored to preserve the invariant that every name belongs to an
// enrolled person.
func (s *Store) SetName(personID, name string) {
	if _, ok := s.names[personID]; ok && name != "" {
		s.names[personID] = name
	}
}

// FirstImage returns the first enrolled template image for a person, used
// by the web UI to show the best matching template.
func (s *Store) FirstImage(personID string) string {
	for _, e := range s.entries {
		if e.PersonID == personID {
			return e.ImagePath
		}
	}
	return ""
}

// Len returns the number of template entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// PersonCount returns the number of enrolled people.
func (s *Store) PersonCount() int {
	return len(s.names)
}
