package vectorindex

import (
	"testing"

	"github.com/doganarif/vectordb/errs"
	"github.com/doganarif/vectordb/model"
)

func TestNewRejectsUnsupportedPairing(t *testing.T) {
	_, err := New(model.KDTree, model.Cosine)
	if errs.KindOf(err) != errs.UnsupportedMetric {
		t.Fatalf("expected UnsupportedMetric, got %v", err)
	}
}

func TestNewConstructsEachKind(t *testing.T) {
	cases := []struct {
		algorithm model.Algorithm
		metric    model.Metric
	}{
		{model.Linear, model.Cosine},
		{model.Linear, model.Euclidean},
		{model.KDTree, model.Euclidean},
		{model.LSH, model.Cosine},
	}
	for _, tc := range cases {
		idx, err := New(tc.algorithm, tc.metric)
		if err != nil {
			t.Fatalf("New(%s, %s) failed: %v", tc.algorithm, tc.metric, err)
		}
		if idx.Algorithm() != tc.algorithm {
			t.Errorf("expected algorithm %s, got %s", tc.algorithm, idx.Algorithm())
		}
	}
}

func TestBoundedHeapKeepsTopKByRankingOrder(t *testing.T) {
	h := newBoundedHeap(2)
	h.offer(Result{ID: "a", Score: 1})
	h.offer(Result{ID: "b", Score: 3})
	h.offer(Result{ID: "c", Score: 2})

	got := h.drain()
	if len(got) != 2 {
		t.Fatalf("expected 2 retained results, got %d", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "c" {
		t.Errorf("expected [b, c] in descending score order, got %+v", got)
	}
}

func TestBoundedHeapTieBreaksByAscendingID(t *testing.T) {
	h := newBoundedHeap(3)
	h.offer(Result{ID: "z", Score: 1})
	h.offer(Result{ID: "a", Score: 1})
	h.offer(Result{ID: "m", Score: 1})

	got := h.drain()
	if got[0].ID != "a" || got[1].ID != "m" || got[2].ID != "z" {
		t.Errorf("expected ascending id order on tied scores, got %+v", got)
	}
}

// TestBoundedHeapEvictionTieBreaksByID reproduces chunk1/chunk2/chunk3 at
// k=2 with chunk2 and chunk3 tied at score 0: eviction on a full heap must
// keep the smaller id (chunk2) and drop the larger one (chunk3), not just
// whichever of the two arrived first.
func TestBoundedHeapEvictionTieBreaksByID(t *testing.T) {
	h := newBoundedHeap(2)
	h.offer(Result{ID: "chunk1", Score: 1})
	h.offer(Result{ID: "chunk2", Score: 0})
	h.offer(Result{ID: "chunk3", Score: 0})

	got := h.drain()
	if len(got) != 2 || got[0].ID != "chunk1" || got[1].ID != "chunk2" {
		t.Errorf("expected [chunk1, chunk2], got %+v", got)
	}
}

// TestBoundedHeapEvictionTieBreaksByIDReverseArrival checks the same
// invariant with the tied candidates offered in the opposite order, so the
// result can't depend on arrival order either way.
func TestBoundedHeapEvictionTieBreaksByIDReverseArrival(t *testing.T) {
	h := newBoundedHeap(2)
	h.offer(Result{ID: "chunk1", Score: 1})
	h.offer(Result{ID: "chunk3", Score: 0})
	h.offer(Result{ID: "chunk2", Score: 0})

	got := h.drain()
	if len(got) != 2 || got[0].ID != "chunk1" || got[1].ID != "chunk2" {
		t.Errorf("expected [chunk1, chunk2], got %+v", got)
	}
}
