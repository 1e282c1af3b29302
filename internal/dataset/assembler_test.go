package dataset

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
}

// makeTree builds a labeled dataset tree: person -> image names.
func makeTree(t *testing.T, people map[string][]string) string {
	t.Helper()
	root := t.TempDir()
	for person, images := range people {
		for _, img := range images {
			writeFile(t, filepath.Join(root, person, img))
		}
	}
	return root
}

func TestLoadExclusions(t *testing.T) {
	readme := filepath.Join(t.TempDir(), "readme.txt")
	content := "Dataset notes.\n" +
		"Participant #37 has withdrawn consent.\n" +
		"participant #52 WITHDRAWN per request\n" +
		"Participant #12 provided extra photos.\n" +
		"No number here but withdraw appears.\n"
	if err := os.WriteFile(readme, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadExclusions(readme)
	if err != nil {
		t.Fatalf("LoadExclusions: %v", err)
	}
	want := []string{"37", "52"}
	if len(got) != len(want) {
		t.Fatalf("excluded = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("excluded[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLoadExclusions_MissingFileIsEmpty(t *testing.T) {
	got, err := LoadExclusions(filepath.Join(t.TempDir(), "readme.txt"))
	if err != nil {
		t.Fatalf("missing readme must not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("excluded = %v, want none", got)
	}
}

func TestMake_SplitsTemplatesAndProbes(t *testing.T) {
	root := makeTree(t, map[string][]string{
		"1": {"a.jpg", "b.jpg", "c.jpg"},
		"2": {"a.jpg", "b.jpg"},
	})
	a := &Assembler{Root: root}

	templates, probes, err := a.Make(MakeOptions{TemplateImages: 1, ProbeImages: 1, Seed: 7})
	if err != nil {
		t.Fatalf("Make: %v", err)
	}

	for _, id := range []string{"1", "2"} {
		if len(templates[id]) != 1 {
			t.Errorf("person %s templates = %v, want 1 image", id, templates[id])
		}
		if len(probes[id]) != 1 {
			t.Errorf("person %s probes = %v, want 1 image", id, probes[id])
		}
		// Template and probe sets must not overlap.
		if len(templates[id]) == 1 && len(probes[id]) == 1 && templates[id][0] == probes[id][0] {
			t.Errorf("person %s: probe reuses template image %s", id, templates[id][0])
		}
	}
}

func TestMake_Deterministic(t *testing.T) {
	root := makeTree(t, map[string][]string{
		"1": {"a.jpg", "b.jpg", "c.jpg", "d.jpg"},
		"2": {"a.jpg", "b.jpg", "c.jpg"},
		"3": {"a.jpg", "b.jpg"},
	})
	a := &Assembler{Root: root}
	opts := MakeOptions{MaxIndividuals: 2, TemplateImages: 1, ProbeImages: 1, Seed: 42}

	t1, p1, err := a.Make(opts)
	if err != nil {
		t.Fatal(err)
	}
	t2, p2, err := a.Make(opts)
	if err != nil {
		t.Fatal(err)
	}

	if len(t1) != 2 {
		t.Fatalf("sampled %d people, want 2", len(t1))
	}
	for id, paths := range t1 {
		if len(t2[id]) != len(paths) || t2[id][0] != paths[0] {
			t.Errorf("same seed produced different templates for %s", id)
		}
	}
	for id, paths := range p1 {
		if len(p2[id]) != len(paths) || p2[id][0] != paths[0] {
			t.Errorf("same seed produced different probes for %s", id)
		}
	}
}

func TestMake_ExcludesWithdrawn(t *testing.T) {
	root := makeTree(t, map[string][]string{
		"1":  {"a.jpg", "b.jpg"},
		"37": {"a.jpg", "b.jpg"},
	})
	a := &Assembler{Root: root, Excluded: []string{"37"}}

	templates, _, err := a.Make(MakeOptions{Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := templates["37"]; ok {
		t.Error("withdrawn participant 37 must not be enrolled")
	}
	if _, ok := templates["1"]; !ok {
		t.Error("participant 1 missing from templates")
	}
}

func TestMake_TooFewImages(t *testing.T) {
	// One image only: it becomes a template and no probe is emitted.
	root := makeTree(t, map[string][]string{"solo": {"only.jpg"}})
	a := &Assembler{Root: root}

	templates, probes, err := a.Make(MakeOptions{TemplateImages: 1, ProbeImages: 1, Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(templates["solo"]) != 1 {
		t.Errorf("templates = %v, want the single image", templates["solo"])
	}
	if _, ok := probes["solo"]; ok {
		t.Errorf("probes = %v, want none", probes["solo"])
	}
}

func TestMake_IgnoresNonImageFiles(t *testing.T) {
	root := makeTree(t, map[string][]string{"1": {"a.jpg", "notes.txt", "b.PNG"}})
	a := &Assembler{Root: root}

	templates, _, err := a.Make(MakeOptions{TemplateImages: 5, ProbeImages: 0, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(templates["1"]) != 2 {
		t.Errorf("templates = %v, want the 2 image files", templates["1"])
	}
}

func TestMake_EmptyRoot(t *testing.T) {
	a := &Assembler{Root: t.TempDir()}
	if _, _, err := a.Make(MakeOptions{}); err == nil {
		t.Error("expected error for dataset without labeled directories")
	}
}

func TestNormalizePersonID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"52", "52"},
		{"Jiří Novák", "jiri_novak"},
		{"  Müller ", "muller"},
		{"ALICE", "alice"},
	}
	for _, tt := range tests {
		if got := NormalizePersonID(tt.in); got != tt.want {
			t.Errorf("NormalizePersonID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
