package vectorindex

import (
	"bytes"
	"encoding/gob"

	"github.com/doganarif/vectordb/errs"
	"github.com/doganarif/vectordb/metric"
	"github.com/doganarif/vectordb/model"
)

// linear is an exact, full-scan index supporting both cosine and euclidean.
// Deterministic: query computes the metric against every vector and keeps
// the top-k via a bounded min-heap, O(N log k).
type linear struct {
	m         model.Metric
	vectors   [][]float32
	ids       []string
	dimension int
}

func newLinear(m model.Metric) *linear {
	return &linear{m: m}
}

func (l *linear) Build(vectors [][]float32, ids []string, m model.Metric) error {
	if err := metric.CheckSupported(model.Linear, m); err != nil {
		return err
	}
	d, err := validateBuildInputs(vectors, ids)
	if err != nil {
		return err
	}
	l.m = m
	l.vectors = vectors
	l.ids = ids
	l.dimension = d
	return nil
}

func (l *linear) Query(q []float32, k int) ([]Result, error) {
	if err := validateQuery(q, k, l.dimension); err != nil {
		return nil, err
	}
	if len(l.vectors) == 0 {
		return nil, nil
	}
	heap := newBoundedHeap(min(k, len(l.vectors)))
	for i, v := range l.vectors {
		score, err := metric.Score(l.m, q, v)
		if err != nil {
			return nil, errs.Wrap(op, errs.KindOf(err), err)
		}
		heap.offer(Result{ID: l.ids[i], Score: score})
	}
	return heap.drain(), nil
}

func (l *linear) Size() int             { return len(l.vectors) }
func (l *linear) Dimension() int        { return l.dimension }
func (l *linear) Algorithm() model.Algorithm { return model.Linear }
func (l *linear) Metric() model.Metric  { return l.m }

type linearData struct {
	Metric    model.Metric
	Vectors   [][]float32
	IDs       []string
	Dimension int
}

func (l *linear) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	data := linearData{Metric: l.m, Vectors: l.vectors, IDs: l.ids, Dimension: l.dimension}
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return nil, errs.Wrap(op, errs.Internal, err)
	}
	return buf.Bytes(), nil
}

func (l *linear) Unmarshal(data []byte) error {
	var d linearData
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&d); err != nil {
		return errs.Wrap(op, errs.SnapshotCorrupt, err)
	}
	l.m = d.Metric
	l.vectors = d.Vectors
	l.ids = d.IDs
	l.dimension = d.Dimension
	return nil
}
