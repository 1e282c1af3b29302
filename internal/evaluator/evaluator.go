// Package evaluator runs batch identification experiments over a probe set
// and aggregates the outcomes into accuracy, precision and rejection
// metrics.
package evaluator

import (
	"context"
	"sync"

	"github.com/veidt/faceprobe/internal/manifest"
	"github.com/veidt/faceprobe/internal/matcher"
)

// Record is the outcome of one probe image.
type Record struct {
	ProbeImage        string
	TruePersonID      string
	PredictedPersonID string
	Distance          float64
	HasDistance       bool
	Accepted          bool
	// Err is non-empty when the probe could not be evaluated, either
	// because the embedding provider failed (soft matcher error) or the
	// scan itself failed (hard evaluator-level error).
	Err string
}

// Correct reports whether the prediction equals the true identity.
func (r Record) Correct() bool {
	return r.PredictedPersonID != "" && r.PredictedPersonID == r.TruePersonID
}

// Options controls a batch run.
type Options struct {
	// Concurrency is the number of probes evaluated in parallel. Values
	// below 2 run sequentially. Records always land in probe-set order
	// regardless of concurrency, so metrics stay reproducible.
	Concurrency int
	// OnRecord, if set, is called once per finished probe (from multiple
	// goroutines when Concurrency > 1). Used for progress reporting.
	OnRecord func(Record)
}

// Report holds the per-probe records of one experiment run, in probe-set
// order: people sorted by ID, images in manifest order.
type Report struct {
	Records []Record
}

type probe struct {
	personID string
	path     string
}

// Run evaluates every probe image against the matcher. Individual probe
// failures are captured in their records; the run itself always completes.
func Run(ctx context.Context, probes manifest.Manifest, m *matcher.Matcher, opts Options) *Report {
	var flat []probe
	for _, personID := range probes.People() {
		for _, path := range probes[personID] {
			flat = append(flat, probe{personID: personID, path: path})
		}
	}

	records := make([]Record, len(flat))

	evaluate := func(i int) {
		records[i] = evaluateProbe(ctx, m, flat[i])
		if opts.OnRecord != nil {
			opts.OnRecord(records[i])
		}
	}

	if opts.Concurrency > 1 {
		var wg sync.WaitGroup
		jobs := make(chan int)

		for w := 0; w < opts.Concurrency; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					evaluate(i)
				}
			}()
		}

		for i := range flat {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	} else {
		for i := range flat {
			evaluate(i)
		}
	}

	return &Report{Records: records}
}

func evaluateProbe(ctx context.Context, m *matcher.Matcher, p probe) Record {
	rec := Record{
		ProbeImage:   p.path,
		TruePersonID: p.personID,
	}

	res, err := m.Identify(ctx, p.path)
	if err != nil {
		// Hard scan failure: record it and keep the predicted fields null.
		rec.Err = err.Error()
		return rec
	}

	rec.PredictedPersonID = res.PersonID
	rec.Distance = res.Distance
	rec.HasDistance = res.HasDistance
	rec.Accepted = res.Accepted
	rec.Err = res.Error
	return rec
}
