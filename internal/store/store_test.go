package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/veidt/faceprobe/internal/embedding"
	"github.com/veidt/faceprobe/internal/manifest"
)

// pathProvider returns a fixed embedding per image path.
func pathProvider(embeddings map[string][]float32) embedding.Provider {
	return embedding.ProviderFunc{
		ModelName: "test",
		Fn: func(_ context.Context, path string) ([]float32, error) {
			emb, ok := embeddings[path]
			if !ok {
				return nil, fmt.Errorf("no embedding for %s", path)
			}
			return emb, nil
		},
	}
}

func TestBuild_KeysAndOrder(t *testing.T) {
	m := manifest.Manifest{
		"bob":   {"bob/1.jpg", "bob/2.jpg"},
		"alice": {"alice/1.jpg"},
	}
	provider := pathProvider(map[string][]float32{
		"alice/1.jpg": {1, 0},
		"bob/1.jpg":   {0, 1},
		"bob/2.jpg":   {1, 1},
	})

	s, err := Build(context.Background(), m, provider)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	if s.PersonCount() != 2 {
		t.Errorf("PersonCount() = %d, want 2", s.PersonCount())
	}

	// Sorted person order, then manifest image order.
	wantKeys := []string{"alice_0", "bob_0", "bob_1"}
	for i, e := range s.Entries() {
		if e.Key != wantKeys[i] {
			t.Errorf("entry %d key = %q, want %q", i, e.Key, wantKeys[i])
		}
	}

	entry, ok := s.Get("bob_1")
	if !ok {
		t.Fatal("Get(bob_1) not found")
	}
	if entry.PersonID != "bob" || entry.ImagePath != "bob/2.jpg" {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestBuild_ProviderFailureAborts(t *testing.T) {
	m := manifest.Manifest{
		"alice": {"alice/1.jpg"},
		"bob":   {"bob/broken.jpg"},
	}
	provider := pathProvider(map[string][]float32{
		"alice/1.jpg": {1, 0},
	})

	if _, err := Build(context.Background(), m, provider); err == nil {
		t.Fatal("Build should propagate provider failure")
	}
}

func TestBuild_ProgressCallback(t *testing.T) {
	m := manifest.Manifest{"alice": {"alice/1.jpg", "alice/2.jpg"}}
	provider := pathProvider(map[string][]float32{
		"alice/1.jpg": {1, 0},
		"alice/2.jpg": {0, 1},
	})

	var seen []string
	s, err := BuildWithProgress(context.Background(), m, provider, func(e Entry) {
		seen = append(seen, e.Key)
	})
	if err != nil {
		t.Fatalf("BuildWithProgress: %v", err)
	}
	if len(seen) != s.Len() {
		t.Errorf("callback invoked %d times, want %d", len(seen), s.Len())
	}
}

func TestName_Fallbacks(t *testing.T) {
	m := manifest.Manifest{"52": {"52/1.jpg"}}
	provider := pathProvider(map[string][]float32{"52/1.jpg": {1}})

	s, err := Build(context.Background(), m, provider)
	if err != nil {
		t.Fatal(err)
	}

	if got := s.Name("52"); got != "52" {
		t.Errorf("Name(52) = %q, want identity fallback", got)
	}
	if got := s.Name("999"); got != "Unknown" {
		t.Errorf("Name(999) = %q, want Unknown", got)
	}

	s.SetName("52", "Weihao")
	if got := s.Name("52"); got != "Weihao" {
		t.Errorf("Name after SetName = %q", got)
	}

	s.SetName("999", "Nobody")
	if got := s.Name("999"); got != "Unknown" {
		t.Errorf("SetName must ignore unenrolled IDs, got %q", got)
	}
}

func TestFirstImage(t *testing.T) {
	m := manifest.Manifest{"a": {"a/1.jpg", "a/2.jpg"}}
	provider := pathProvider(map[string][]float32{
		"a/1.jpg": {1, 0},
		"a/2.jpg": {0, 1},
	})
	s, err := Build(context.Background(), m, provider)
	if err != nil {
		t.Fatal(err)
	}

	if got := s.FirstImage("a"); got != "a/1.jpg" {
		t.Errorf("FirstImage = %q, want a/1.jpg", got)
	}
	if got := s.FirstImage("zzz"); got != "" {
		t.Errorf("FirstImage for unknown person = %q, want empty", got)
	}
}

func TestBuild_EmptyManifest(t *testing.T) {
	provider := embedding.ProviderFunc{
		Fn: func(context.Context, string) ([]float32, error) {
			return nil, errors.New("should not be called")
		},
	}

	s, err := Build(context.Background(), manifest.Manifest{}, provider)
	if err != nil {
		t.Fatalf("Build of empty manifest: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}
