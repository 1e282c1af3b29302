package evaluator

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/veidt/faceprobe/internal/metric"
)

// PersonStats is the per-individual accuracy breakdown.
type PersonStats struct {
	PersonID string  `json:"person_id"`
	Accuracy float64 `json:"accuracy"`
	Count    int     `json:"count"`
}

// Summary holds the aggregate metrics of one run. All rates are fractions
// in [0, 1].
type Summary struct {
	Total         int     `json:"total"`
	Accuracy      float64 `json:"accuracy"`
	Precision     float64 `json:"precision"`
	RejectionRate float64 `json:"rejection_rate"`

	// Confusion quadrants for open-set identification. Note the labeling:
	// a correct match that the threshold rejects counts as a false
	// negative, an incorrect match that it accepts as a false positive.
	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	TrueNegatives  int `json:"true_negatives"`
	FalseNegatives int `json:"false_negatives"`

	// PerPerson is sorted by person ID. Best and Worst break accuracy
	// ties in favor of the earlier ID.
	PerPerson          []PersonStats `json:"per_person"`
	Best               PersonStats   `json:"best"`
	Worst              PersonStats   `json:"worst"`
	MeanPersonAccuracy float64       `json:"mean_person_accuracy"`
}

// Summary computes the aggregate metrics over the report's records.
func (r *Report) Summary() Summary {
	s := Summary{Total: len(r.Records)}
	if s.Total == 0 {
		return s
	}

	correct := 0
	accepted := 0
	acceptedCorrect := 0
	for _, rec := range r.Records {
		isCorrect := rec.Correct()
		if isCorrect {
			correct++
		}
		switch {
		case isCorrect && rec.Accepted:
			s.TruePositives++
		case !isCorrect && rec.Accepted:
			s.FalsePositives++
		case !isCorrect && !rec.Accepted:
			s.TrueNegatives++
		default:
			s.FalseNegatives++
		}
		if rec.Accepted {
			accepted++
			if isCorrect {
				acceptedCorrect++
			}
		}
	}

	s.Accuracy = float64(correct) / float64(s.Total)
	// Precision is defined as 0 when nothing was accepted; never NaN.
	if accepted > 0 {
		s.Precision = float64(acceptedCorrect) / float64(accepted)
	}
	s.RejectionRate = float64(s.Total-accepted) / float64(s.Total)

	s.PerPerson = r.perPerson()
	if len(s.PerPerson) > 0 {
		s.Best = s.PerPerson[0]
		s.Worst = s.PerPerson[0]
		sum := 0.0
		for _, p := range s.PerPerson {
			if p.Accuracy > s.Best.Accuracy {
				s.Best = p
			}
			if p.Accuracy < s.Worst.Accuracy {
				s.Worst = p
			}
			sum += p.Accuracy
		}
		s.MeanPersonAccuracy = sum / float64(len(s.PerPerson))
	}

	return s
}

func (r *Report) perPerson() []PersonStats {
	counts := make(map[string]int)
	corrects := make(map[string]int)
	for _, rec := range r.Records {
		counts[rec.TruePersonID]++
		if rec.Correct() {
			corrects[rec.TruePersonID]++
		}
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	stats := make([]PersonStats, 0, len(ids))
	for _, id := range ids {
		stats = append(stats, PersonStats{
			PersonID: id,
			Accuracy: float64(corrects[id]) / float64(counts[id]),
			Count:    counts[id],
		})
	}
	return stats
}

// csvHeader is the column layout of the results artifact.
var csvHeader = []string{"probe_image", "true_person_id", "predicted_person_id", "distance", "match_accepted", "error"}

// WriteCSV writes the per-record table, one header plus one row per record.
// Absent predictions and distances are empty cells.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, rec := range r.Records {
		distance := ""
		if rec.HasDistance {
			distance = strconv.FormatFloat(rec.Distance, 'g', -1, 64)
		}
		row := []string{
			rec.ProbeImage,
			rec.TruePersonID,
			rec.PredictedPersonID,
			distance,
			strconv.FormatBool(rec.Accepted),
			rec.Err,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the results artifact into dir, named deterministically
// from the model and metric of the run, and returns its path.
func (r *Report) SaveCSV(dir, model string, m metric.Metric) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating results directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("results_%s_%s.csv", model, m))
	f, err := os.Create(path) //nolint:gosec // operator-supplied output dir
	if err != nil {
		return "", fmt.Errorf("creating results file: %w", err)
	}
	defer f.Close()

	if err := r.WriteCSV(f); err != nil {
		return "", err
	}
	return path, nil
}
