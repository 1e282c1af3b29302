// Package dataset builds the local reference dataset: downloading and
// extracting the public archive sets, and assembling template/probe
// manifests from the labeled directory tree (one directory per person).
package dataset

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/veidt/faceprobe/internal/manifest"
)

// imageExtensions lists the file extensions treated as images.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Assembler scans a labeled image tree and emits template/probe manifests.
type Assembler struct {
	// Root is the extracted dataset directory; each subdirectory is one
	// person and its name becomes the person ID.
	Root string
	// Excluded lists person IDs to skip (withdrawn participants).
	Excluded []string
}

// MakeOptions controls manifest assembly.
type MakeOptions struct {
	// MaxIndividuals caps how many people end up in the template
	// database. 0 means everyone.
	MaxIndividuals int
	// MaxProbeIndividuals caps how many of the template people also get
	// probes. 0 means the same as MaxIndividuals.
	MaxProbeIndividuals int
	// TemplateImages is how many images per person go into the template
	// database (default 1).
	TemplateImages int
	// ProbeImages is how many further images per person become probes
	// (default 1).
	ProbeImages int
	// Seed fixes the sampling order so experiment datasets are
	// reproducible.
	Seed int64
}

// LoadExclusions parses the dataset readme for withdrawn participants.
// Lines mentioning "withdraw" name the participant after a '#', e.g.
// "participant #37 has withdrawn consent".
func LoadExclusions(readmePath string) ([]string, error) {
	f, err := os.Open(readmePath) //nolint:gosec // operator-supplied path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening readme %s: %w", readmePath, err)
	}
	defer f.Close()

	var excluded []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(strings.ToLower(line), "withdraw") {
			continue
		}
		_, after, found := strings.Cut(line, "#")
		if !found {
			continue
		}
		fields := strings.Fields(after)
		if len(fields) > 0 {
			excluded = append(excluded, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading readme: %w", err)
	}

	return excluded, nil
}

// Make assembles the template and probe manifests. For every sampled
// person the images are shuffled once, the first TemplateImages become
// templates and the next ProbeImages become probes, so the two sets never
// overlap. People with too few images contribute what they have, templates
// first.
func (a *Assembler) Make(opts MakeOptions) (templates, probes manifest.Manifest, err error) {
	if opts.TemplateImages <= 0 {
		opts.TemplateImages = 1
	}
	if opts.ProbeImages <= 0 {
		opts.ProbeImages = 1
	}

	people, err := a.listPeople()
	if err != nil {
		return nil, nil, err
	}
	if len(people) == 0 {
		return nil, nil, fmt.Errorf("no labeled directories under %s", a.Root)
	}

	rng := rand.New(rand.NewSource(opts.Seed)) //nolint:gosec // sampling, not crypto

	maxPeople := opts.MaxIndividuals
	if maxPeople <= 0 || maxPeople > len(people) {
		maxPeople = len(people)
	}
	rng.Shuffle(len(people), func(i, j int) { people[i], people[j] = people[j], people[i] })
	sampled := people[:maxPeople]

	maxProbePeople := opts.MaxProbeIndividuals
	if maxProbePeople <= 0 || maxProbePeople > maxPeople {
		maxProbePeople = maxPeople
	}
	probePeople := make(map[string]bool, maxProbePeople)
	for _, p := range sampled[:maxProbePeople] {
		probePeople[p] = true
	}

	templates = manifest.Manifest{}
	probes = manifest.Manifest{}

	for _, person := range sampled {
		dir := filepath.Join(a.Root, person)
		images, err := listImages(dir)
		if err != nil {
			return nil, nil, err
		}
		if len(images) == 0 {
			continue
		}

		rng.Shuffle(len(images), func(i, j int) { images[i], images[j] = images[j], images[i] })

		nTemplates := min(opts.TemplateImages, len(images))
		templatePaths := make([]string, 0, nTemplates)
		for _, img := range images[:nTemplates] {
			templatePaths = append(templatePaths, filepath.Join(dir, img))
		}

		id := NormalizePersonID(person)
		templates[id] = templatePaths

		if probePeople[person] && len(images) > nTemplates {
			nProbes := min(opts.ProbeImages, len(images)-nTemplates)
			probePaths := make([]string, 0, nProbes)
			for _, img := range images[nTemplates : nTemplates+nProbes] {
				probePaths = append(probePaths, filepath.Join(dir, img))
			}
			probes[id] = probePaths
		}
	}

	return templates, probes, nil
}

// listPeople returns the person directories under Root, minus exclusions,
// in sorted order so sampling depends only on the seed.
func (a *Assembler) listPeople() ([]string, error) {
	entries, err := os.ReadDir(a.Root)
	if err != nil {
		return nil, fmt.Errorf("reading dataset root %s: %w", a.Root, err)
	}

	excluded := make(map[string]bool, len(a.Excluded))
	for _, id := range a.Excluded {
		excluded[id] = true
	}

	var people []string
	for _, entry := range entries {
		if !entry.IsDir() || excluded[entry.Name()] {
			continue
		}
		people = append(people, entry.Name())
	}
	sort.Strings(people)
	return people, nil
}

// listImages returns the image file names in dir, sorted.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading person directory %s: %w", dir, err)
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			images = append(images, entry.Name())
		}
	}
	sort.Strings(images)
	return images, nil
}
