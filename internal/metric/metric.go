// Package metric provides the distance functions used for face matching.
// Embeddings are []float32 as delivered by the embedding service; all
// accumulation happens in float64 to avoid precision loss on long vectors.
package metric

import (
	"errors"
	"fmt"
	"math"
)

// Metric selects a distance function for comparing face embeddings.
type Metric string

const (
	Cosine    Metric = "cosine"
	Euclidean Metric = "euclidean"
)

var (
	// ErrUnsupportedMetric is returned by Parse for unknown metric names.
	// Metric names are validated at configuration time so a bad name can
	// never surface in the middle of a template scan.
	ErrUnsupportedMetric = errors.New("unsupported distance metric")

	// ErrDimensionMismatch is returned when two embeddings of different
	// lengths are compared. This is always a hard failure.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrZeroVector is returned by the cosine distance when either input
	// has zero norm, which would divide by zero.
	ErrZeroVector = errors.New("zero-norm embedding")
)

// Parse validates a metric name.
func Parse(name string) (Metric, error) {
	switch Metric(name) {
	case Cosine, Euclidean:
		return Metric(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMetric, name)
}

// Metrics lists the supported metric names.
func Metrics() []string {
	return []string{string(Cosine), string(Euclidean)}
}

// Distance computes the dissimilarity between two equal-length embeddings
// under the metric. Lower is more similar; identical vectors score 0.
func (m Metric) Distance(a, b []float32) (float64, error) {
	switch m {
	case Cosine:
		return CosineDistance(a, b)
	case Euclidean:
		return EuclideanDistance(a, b)
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedMetric, string(m))
}

// CosineDistance computes 1 - cosine similarity between two vectors.
// The result lies in [0, 2]: 0 for identical direction, 2 for opposite.
func CosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, ErrZeroVector
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors.
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity, nil
}

// EuclideanDistance computes the L2 norm of a-b.
func EuclideanDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}

	return math.Sqrt(sum), nil
}
