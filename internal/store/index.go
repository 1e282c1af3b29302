package store

import (
	"errors"
	"fmt"

	"github.com/coder/hnsw"

	"github.com/veidt/faceprobe/internal/metric"
)

// HNSWMaxNeighbors is the M parameter of the HNSW graph.
const HNSWMaxNeighbors = 16

// Candidate is one nearest-template suggestion from the index.
type Candidate struct {
	Key       string  `json:"key"`
	PersonID  string  `json:"person_id"`
	ImagePath string  `json:"image_path"`
	Distance  float64 `json:"distance"`
}

// Index is an HNSW graph over the store's entries for fast top-k template
// lookups. It backs the candidate-browsing surfaces (web UI, identify
// --candidates); the authoritative nearest-match decision stays with the
// matcher's exact linear scan.
type Index struct {
	store *Store
	graph *hnsw.Graph[string]
	m     metric.Metric
}

// NewIndex builds the candidate index for a fully constructed store.
func NewIndex(s *Store, m metric.Metric) (*Index, error) {
	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)

	switch m {
	case metric.Cosine:
		g.Distance = hnsw.CosineDistance
	case metric.Euclidean:
		g.Distance = hnsw.EuclideanDistance
	default:
		return nil, fmt.Errorf("%w: %q", metric.ErrUnsupportedMetric, string(m))
	}

	for _, e := range s.Entries() {
		if len(e.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(e.Key, e.Embedding))
	}

	return &Index{store: s, graph: g, m: m}, nil
}

// Candidates returns up to k nearest templates to the query embedding.
// Distances are recomputed with the exact metric so they match what the
// linear-scan matcher would report.
func (ix *Index) Candidates(query []float32, k int) ([]Candidate, error) {
	if k <= 0 {
		return nil, errors.New("k must be positive")
	}
	if ix.store.Len() == 0 {
		return nil, nil
	}

	neighbors := ix.graph.Search(query, k)

	candidates := make([]Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		entry, ok := ix.store.Get(n.Key)
		if !ok {
			continue
		}
		d, err := ix.m.Distance(query, n.Value)
		if err != nil {
			return nil, fmt.Errorf("scoring candidate %s: %w", n.Key, err)
		}
		candidates = append(candidates, Candidate{
			Key:       entry.Key,
			PersonID:  entry.PersonID,
			ImagePath: entry.ImagePath,
			Distance:  d,
		})
	}

	return candidates, nil
}
