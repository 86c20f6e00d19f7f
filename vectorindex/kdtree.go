package vectorindex

import (
	"bytes"
	"encoding/gob"
	"sort"

	"github.com/doganarif/vectordb/errs"
	"github.com/doganarif/vectordb/metric"
	"github.com/doganarif/vectordb/model"
)

// kdNode is a node in a median-split KD-tree. Exported fields so the whole
// tree can be gob-encoded.
type kdNode struct {
	Point       []float32
	ID          string
	Axis        int
	Left, Right *kdNode
}

// kdtree is a euclidean-only balanced binary tree over the d axes, cycling
// axes by depth mod d. Median-split build is deterministic: ties along the
// splitting axis keep stable (insertion/id) order, so the left subtree
// always gets the earlier id.
type kdtree struct {
	root      *kdNode
	dimension int
	size      int
}

func newKDTree() *kdtree {
	return &kdtree{}
}

func (t *kdtree) Build(vectors [][]float32, ids []string, m model.Metric) error {
	if err := metric.CheckSupported(model.KDTree, m); err != nil {
		return err
	}
	d, err := validateBuildInputs(vectors, ids)
	if err != nil {
		return err
	}
	t.dimension = d
	t.size = len(vectors)
	if len(vectors) == 0 {
		t.root = nil
		return nil
	}
	t.root = buildKD(vectors, ids, 0)
	return nil
}

// buildKD recursively partitions by the lower median along the axis
// cycling with depth. Using sort.SliceStable preserves the original
// (caller-supplied, expected ascending-by-id) order among equal keys, so
// ties resolve to the earlier id going left.
func buildKD(points [][]float32, ids []string, depth int) *kdNode {
	if len(points) == 0 {
		return nil
	}
	k := len(points[0])
	axis := depth % k

	type pair struct {
		point []float32
		id    string
	}
	combined := make([]pair, len(points))
	for i := range points {
		combined[i] = pair{point: points[i], id: ids[i]}
	}
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].point[axis] < combined[j].point[axis]
	})

	median := len(combined) / 2
	node := &kdNode{Point: combined[median].point, ID: combined[median].id, Axis: axis}

	leftPoints := make([][]float32, median)
	leftIDs := make([]string, median)
	for i := 0; i < median; i++ {
		leftPoints[i] = combined[i].point
		leftIDs[i] = combined[i].id
	}
	rightPoints := make([][]float32, len(combined)-median-1)
	rightIDs := make([]string, len(combined)-median-1)
	for i := median + 1; i < len(combined); i++ {
		rightPoints[i-median-1] = combined[i].point
		rightIDs[i-median-1] = combined[i].id
	}

	node.Left = buildKD(leftPoints, leftIDs, depth+1)
	node.Right = buildKD(rightPoints, rightIDs, depth+1)
	return node
}

func (t *kdtree) Query(q []float32, k int) ([]Result, error) {
	if err := validateQuery(q, k, t.dimension); err != nil {
		return nil, err
	}
	if t.root == nil {
		return nil, nil
	}
	heap := newBoundedHeap(min(k, t.size))
	kdQuery(t.root, q, heap)
	return heap.drain(), nil
}

// kdQuery performs a best-first bounded search: descend into the child
// containing q first, then visit the sibling only if the squared distance
// from q to the splitting hyperplane is less than the current k-th best
// squared distance (or the heap isn't full yet).
func kdQuery(node *kdNode, q []float32, heap *boundedHeap) {
	if node == nil {
		return
	}
	dist := metric.Euclidean(q, node.Point)
	heap.offer(Result{ID: node.ID, Score: -dist})

	diff := q[node.Axis] - node.Point[node.Axis]
	var first, second *kdNode
	if diff < 0 {
		first, second = node.Left, node.Right
	} else {
		first, second = node.Right, node.Left
	}

	kdQuery(first, q, heap)

	if heap.len() < heap.k {
		kdQuery(second, q, heap)
		return
	}
	// heap.items[0] holds the weakest (most negative score) retained
	// candidate; its squared distance is the current k-th best.
	worstDist := -heap.items[0].Score
	if diff*diff < worstDist*worstDist {
		kdQuery(second, q, heap)
	}
}

func (t *kdtree) Size() int                  { return t.size }
func (t *kdtree) Dimension() int             { return t.dimension }
func (t *kdtree) Algorithm() model.Algorithm { return model.KDTree }
func (t *kdtree) Metric() model.Metric       { return model.Euclidean }

type kdData struct {
	Root      *kdNode
	Dimension int
	Size      int
}

func (t *kdtree) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	data := kdData{Root: t.root, Dimension: t.dimension, Size: t.size}
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return nil, errs.Wrap(op, errs.Internal, err)
	}
	return buf.Bytes(), nil
}

func (t *kdtree) Unmarshal(data []byte) error {
	var d kdData
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&d); err != nil {
		return errs.Wrap(op, errs.SnapshotCorrupt, err)
	}
	t.root = d.Root
	t.dimension = d.Dimension
	t.size = d.Size
	return nil
}
