// Package metric implements the similarity/distance kernels used by the
// indices, and the unified ranking score that lets the search layer always
// sort descending regardless of which metric produced the score.
package metric

import (
	"math"

	"github.com/doganarif/vectordb/errs"
	"github.com/doganarif/vectordb/model"
)

const op = "metric"

// DotProduct computes the dot product of two equal-length vectors.
func DotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm computes the L2 norm (magnitude) of a vector.
func Norm(v []float32) float32 {
	return float32(math.Sqrt(float64(DotProduct(v, v))))
}

// Cosine returns the cosine similarity of a and b, in [-1, 1].
//
// A zero-norm vector is rejected with errs.InvalidVector rather than
// silently treated as similarity 0 — cosine angle is undefined for the
// zero vector and the spec requires the caller to never divide by zero.
func Cosine(a, b []float32) (float32, error) {
	na := Norm(a)
	nb := Norm(b)
	if na == 0 || nb == 0 {
		return 0, errs.New(op, errs.InvalidVector, "zero-norm vector is undefined under cosine metric")
	}
	return DotProduct(a, b) / (na * nb), nil
}

// Euclidean returns the non-negative L2 distance between a and b.
func Euclidean(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return float32(math.Sqrt(float64(sum)))
}

// Score computes the metric value between a and b and converts it to the
// unified ranking score: higher always means closer. Cosine similarity is
// returned as-is; Euclidean distance is negated.
func Score(m model.Metric, a, b []float32) (float32, error) {
	switch m {
	case model.Cosine:
		return Cosine(a, b)
	case model.Euclidean:
		return -Euclidean(a, b), nil
	default:
		return 0, errs.New(op, errs.UnsupportedMetric, "unknown metric %q", m)
	}
}

// supportedPairs is the (algorithm × metric) compatibility table: KDTree
// only makes sense with a distance metric, LSH only with the cosine
// hyperplane scheme it's built around.
var supportedPairs = map[model.Algorithm]map[model.Metric]bool{
	model.Linear: {model.Cosine: true, model.Euclidean: true},
	model.KDTree: {model.Euclidean: true},
	model.LSH:    {model.Cosine: true},
}

// Supported reports whether algorithm and metric may be paired.
func Supported(algorithm model.Algorithm, m model.Metric) bool {
	metrics, ok := supportedPairs[algorithm]
	if !ok {
		return false
	}
	return metrics[m]
}

// CheckSupported returns errs.UnsupportedMetric if the pairing is invalid.
func CheckSupported(algorithm model.Algorithm, m model.Metric) error {
	if !Supported(algorithm, m) {
		return errs.New(op, errs.UnsupportedMetric, "algorithm %q does not support metric %q", algorithm, m)
	}
	return nil
}

// Less breaks ties in score by chunk id lexicographic order, ascending,
// so ranking is deterministic across index kinds.
func Less(idA string, scoreA float32, idB string, scoreB float32) bool {
	if scoreA != scoreB {
		return scoreA > scoreB
	}
	return idA < idB
}
