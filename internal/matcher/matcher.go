// Package matcher finds the nearest enrolled template for a query face and
// applies the optional acceptance threshold.
package matcher

import (
	"context"
	"fmt"

	"github.com/veidt/faceprobe/internal/embedding"
	"github.com/veidt/faceprobe/internal/metric"
	"github.com/veidt/faceprobe/internal/store"
)

// Sentinel display names used in results.
const (
	NameNoMatch = "No match"
	NameError   = "Error"
)

// Result is the outcome of a single identification.
type Result struct {
	// PersonID is the accepted match, or empty when there is none.
	PersonID string `json:"person_id"`
	// Name is the display name of the match, or "No match" / "Error".
	Name string `json:"name"`
	// Distance is the best distance found; only valid when HasDistance.
	Distance    float64 `json:"distance,omitempty"`
	HasDistance bool    `json:"has_distance"`
	// Accepted reports whether the match cleared the threshold.
	Accepted bool `json:"match_accepted"`
	// Error carries the provider failure message for "Error" results.
	Error string `json:"error,omitempty"`
}

// Matcher scans a template store for the nearest match to a query.
type Matcher struct {
	store    *store.Store
	provider embedding.Provider
	metric   metric.Metric
	// threshold is the optional acceptance gate; nil accepts any nearest
	// neighbor, however far.
	threshold *float64
}

// New creates a matcher over a fully built store. threshold may be nil.
func New(s *store.Store, provider embedding.Provider, m metric.Metric, threshold *float64) *Matcher {
	return &Matcher{store: s, provider: provider, metric: m, threshold: threshold}
}

// Metric returns the active distance metric.
func (m *Matcher) Metric() metric.Metric {
	return m.metric
}

// Store returns the template store being scanned.
func (m *Matcher) Store() *store.Store {
	return m.store
}

// Identify obtains the query embedding for the image at path and matches it
// against the store.
//
// A provider failure (unreadable image, no face found, service down) is
// converted into an "Error" result with a nil error: single-query failures
// are routine and must never abort a batch run. Failures inside the scan
// itself, such as an embedding dimension mismatch against the store, are
// returned as errors.
func (m *Matcher) Identify(ctx context.Context, path string) (Result, error) {
	query, err := m.provider.Embed(ctx, path)
	if err != nil {
		return Result{Name: NameError, Error: err.Error()}, nil
	}
	return m.IdentifyEmbedding(query)
}

// IdentifyEmbedding matches a precomputed query embedding against every
// template entry in a single linear pass.
//
// The scan visits entries in store insertion order and keeps the running
// minimum under strict less-than, so the first entry seen wins ties and
// repeated runs over the same store produce identical results. The nearest
// neighbor is always computed; the threshold is a separate gate applied
// afterwards.
func (m *Matcher) IdentifyEmbedding(query []float32) (Result, error) {
	entries := m.store.Entries()
	if len(entries) == 0 {
		// Degenerate but valid: nothing enrolled, nothing to match.
		return Result{Name: NameNoMatch}, nil
	}

	var (
		bestPerson string
		bestSet    bool
		best       float64
	)
	for _, entry := range entries {
		d, err := m.metric.Distance(query, entry.Embedding)
		if err != nil {
			return Result{}, fmt.Errorf("comparing against template %s: %w", entry.Key, err)
		}
		if !bestSet || d < best {
			best = d
			bestPerson = entry.PersonID
			bestSet = true
		}
	}

	if m.threshold != nil && best > *m.threshold {
		return Result{
			Name:        NameNoMatch,
			Distance:    best,
			HasDistance: true,
		}, nil
	}

	return Result{
		PersonID:    bestPerson,
		Name:        m.store.Name(bestPerson),
		Distance:    best,
		HasDistance: true,
		Accepted:    true,
	}, nil
}
