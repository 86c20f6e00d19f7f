// Package vectorindex provides the pluggable nearest-neighbor index
// implementations: Linear (exact), KDTree (euclidean only) and LSH (cosine
// only, approximate).
package vectorindex

import (
	"sort"

	"github.com/doganarif/vectordb/errs"
	"github.com/doganarif/vectordb/metric"
	"github.com/doganarif/vectordb/model"
)

const op = "vectorindex"

// Result is a single (id, score) match, ordered by the unified ranking
// score from the metric package (higher is closer).
type Result struct {
	ID    string
	Score float32
}

// Index is the shared contract every index kind implements.
type Index interface {
	// Build indexes vectors, parallel to ids, under metric m. Fails if any
	// vector's length disagrees with the first vector's, or if the
	// (algorithm, metric) pairing is unsupported.
	Build(vectors [][]float32, ids []string, m model.Metric) error

	// Query returns the top min(k, N) results ordered by score descending,
	// tie-broken by id ascending. Fails if len(q) != the build dimension or
	// k <= 0.
	Query(q []float32, k int) ([]Result, error)

	// Size returns the number of indexed vectors.
	Size() int

	// Dimension returns the vector length fixed at build time, or 0 if
	// nothing has been built yet.
	Dimension() int

	Algorithm() model.Algorithm
	Metric() model.Metric

	// Marshal/Unmarshal serialize the internal structure. Unused by
	// Snapshot (which always rebuilds from chunks), but exercised by
	// index-level tests and available for process-local caching.
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
}

// New constructs an empty index of the given kind, pre-validating the
// (algorithm, metric) pairing.
func New(algorithm model.Algorithm, m model.Metric) (Index, error) {
	if err := metric.CheckSupported(algorithm, m); err != nil {
		return nil, err
	}
	switch algorithm {
	case model.Linear:
		return newLinear(m), nil
	case model.KDTree:
		return newKDTree(), nil
	case model.LSH:
		return newLSH(m, DefaultLSHConfig()), nil
	default:
		return nil, errs.New(op, errs.UnsupportedMetric, "unknown index algorithm %q", algorithm)
	}
}

func validateBuildInputs(vectors [][]float32, ids []string) (int, error) {
	if len(vectors) != len(ids) {
		return 0, errs.New(op, errs.InvalidArgument, "vectors and ids must have equal length, got %d and %d", len(vectors), len(ids))
	}
	if len(vectors) == 0 {
		return 0, nil
	}
	d := len(vectors[0])
	for i, v := range vectors {
		if len(v) != d {
			return 0, errs.New(op, errs.DimensionMismatch, "vector %d has length %d, expected %d", i, len(v), d)
		}
	}
	return d, nil
}

func validateQuery(q []float32, k, dim int) error {
	if k <= 0 {
		return errs.New(op, errs.InvalidArgument, "k must be positive, got %d", k)
	}
	if dim != 0 && len(q) != dim {
		return errs.New(op, errs.DimensionMismatch, "query vector has length %d, expected %d", len(q), dim)
	}
	return nil
}

// sortResults sorts results by the spec's tie-break rule: score descending,
// id ascending on ties.
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		return metric.Less(results[i].ID, results[i].Score, results[j].ID, results[j].Score)
	})
}

// boundedHeap keeps the k results with the highest score seen so far. It is
// a min-heap on score: the root is always the weakest of the retained
// candidates, so a new candidate only has to beat the root to be admitted.
type boundedHeap struct {
	k     int
	items []Result
}

func newBoundedHeap(k int) *boundedHeap {
	return &boundedHeap{k: k, items: make([]Result, 0, k)}
}

func (h *boundedHeap) len() int { return len(h.items) }

// offer considers r for inclusion in the top-k set.
func (h *boundedHeap) offer(r Result) {
	if len(h.items) < h.k {
		h.items = append(h.items, r)
		h.up(len(h.items) - 1)
		return
	}
	root := h.items[0]
	if r.Score < root.Score || (r.Score == root.Score && r.ID > root.ID) {
		return
	}
	h.items[0] = r
	h.down(0)
}

// drain returns the retained results sorted by the ranking order.
func (h *boundedHeap) drain() []Result {
	out := make([]Result, len(h.items))
	copy(out, h.items)
	sortResults(out)
	return out
}

func (h *boundedHeap) less(i, j int) bool {
	// Min-heap ordered so the weakest candidate floats to the root: "weaker"
	// means lower score, ties broken by id descending so the lexically
	// largest id (the one the ascending tie-break ranks last among equal
	// scores) is the one most eagerly replaced.
	if h.items[i].Score != h.items[j].Score {
		return h.items[i].Score < h.items[j].Score
	}
	return h.items[i].ID > h.items[j].ID
}

func (h *boundedHeap) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *boundedHeap) down(i int) {
	n := len(h.items)
	for {
		left, right := 2*i+1, 2*i+2
		smallest := i
		if left < n && h.less(left, smallest) {
			smallest = left
		}
		if right < n && h.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}
