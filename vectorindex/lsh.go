package vectorindex

import (
	"bytes"
	"encoding/gob"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/doganarif/vectordb/errs"
	"github.com/doganarif/vectordb/metric"
	"github.com/doganarif/vectordb/model"
)

// LSHConfig parameterizes the random-hyperplane LSH index.
type LSHConfig struct {
	NumTables int // T, default 4
	NumPlanes int // P, default 16
	// ExpansionFactor controls multi-probe candidate-set growth: probing
	// continues until |C| >= max(k, k*ExpansionFactor) or every signature
	// within Hamming distance 4 has been probed.
	ExpansionFactor int
	// Seed seeds the hyperplane PRNG. When zero, Build uses the fixed seed 1.
	// registry.Registry sets it from SeedFrom, so rebuilds of the same
	// library are reproducible without sharing global PRNG state.
	Seed int64
}

// DefaultLSHConfig returns the baseline configuration: T=4, P=16, expansion 2.
func DefaultLSHConfig() LSHConfig {
	return LSHConfig{NumTables: 4, NumPlanes: 16, ExpansionFactor: 2}
}

// SeedFrom derives a deterministic build seed from a library id and the
// index identity, so two builds of the same library (same id, same
// configuration) produce identical hyperplanes.
func SeedFrom(libraryID string, algorithm model.Algorithm, configSalt string) int64 {
	h := fnv.New64a()
	h.Write([]byte(libraryID))
	h.Write([]byte("|"))
	h.Write([]byte(algorithm))
	h.Write([]byte("|"))
	h.Write([]byte(configSalt))
	return int64(h.Sum64())
}

// lshBucketEntry is one member of a hash bucket.
type lshBucketEntry struct {
	ID     string
	Vector []float32
}

// lsh is a random-hyperplane LSH index for cosine similarity. Approximate:
// recall depends on T, P and data distribution; ranking within the
// candidate set is always exact cosine similarity.
type lsh struct {
	cfg       LSHConfig
	planes    [][][]float32                  // [table][plane] -> normal vector
	tables    []map[uint32][]lshBucketEntry   // [table][signature] -> entries
	dimension int
	size      int
}

// NewLSH constructs an empty LSH index with an explicit configuration,
// bypassing the (algorithm, metric) factory in New — registry.Registry uses
// this to set a per-library deterministic Seed (see SeedFrom) before Build.
func NewLSH(cfg LSHConfig) Index {
	return newLSH(model.Cosine, cfg)
}

func newLSH(m model.Metric, cfg LSHConfig) *lsh {
	_ = m // LSH is cosine-only; metric is fixed but kept for symmetry with other constructors.
	if cfg.NumTables <= 0 {
		cfg.NumTables = DefaultLSHConfig().NumTables
	}
	if cfg.NumPlanes <= 0 {
		cfg.NumPlanes = DefaultLSHConfig().NumPlanes
	}
	if cfg.ExpansionFactor <= 0 {
		cfg.ExpansionFactor = DefaultLSHConfig().ExpansionFactor
	}
	return &lsh{cfg: cfg}
}

func (l *lsh) Build(vectors [][]float32, ids []string, m model.Metric) error {
	if err := metric.CheckSupported(model.LSH, m); err != nil {
		return err
	}
	d, err := validateBuildInputs(vectors, ids)
	if err != nil {
		return err
	}
	l.dimension = d
	l.size = len(vectors)

	if len(vectors) == 0 {
		l.planes = nil
		l.tables = nil
		return nil
	}

	seed := l.cfg.Seed
	if seed == 0 {
		seed = 1
	}
	rng := rand.New(rand.NewSource(seed))

	l.planes = make([][][]float32, l.cfg.NumTables)
	for t := 0; t < l.cfg.NumTables; t++ {
		planes := make([][]float32, l.cfg.NumPlanes)
		for p := 0; p < l.cfg.NumPlanes; p++ {
			plane := make([]float32, d)
			var norm float64
			for i := range plane {
				v := rng.NormFloat64()
				plane[i] = float32(v)
				norm += v * v
			}
			norm = math.Sqrt(norm)
			if norm > 0 {
				for i := range plane {
					plane[i] = float32(float64(plane[i]) / norm)
				}
			}
			planes[p] = plane
		}
		l.planes[t] = planes
	}

	l.tables = make([]map[uint32][]lshBucketEntry, l.cfg.NumTables)
	for t := range l.tables {
		l.tables[t] = make(map[uint32][]lshBucketEntry)
	}
	for i, v := range vectors {
		for t, planes := range l.planes {
			sig := signature(v, planes)
			l.tables[t][sig] = append(l.tables[t][sig], lshBucketEntry{ID: ids[i], Vector: v})
		}
	}
	return nil
}

// signature computes the P-bit signature of the signs of projections onto
// planes.
func signature(v []float32, planes [][]float32) uint32 {
	var sig uint32
	for i, plane := range planes {
		if metric.DotProduct(v, plane) >= 0 {
			sig |= 1 << uint(i)
		}
	}
	return sig
}

func (l *lsh) Query(q []float32, k int) ([]Result, error) {
	if err := validateQuery(q, k, l.dimension); err != nil {
		return nil, err
	}
	if l.size == 0 {
		return nil, nil
	}

	target := max(k, k*l.cfg.ExpansionFactor)
	candidates := make(map[string][]float32)

	for t, planes := range l.planes {
		sig := signature(q, planes)
		collectBucket(l.tables[t], sig, candidates)

		maxHamming := len(planes)
		if maxHamming > 4 {
			// Probing beyond Hamming distance 4 touches a number of
			// signatures that grows combinatorially with P while adding
			// little recall in practice; cap it so multi-probe stays cheap
			// on the P=16 default (C(16,4)=1820 vs C(16,8)=12870).
			maxHamming = 4
		}
		for hamming := 1; len(candidates) < target && hamming <= maxHamming; hamming++ {
			for _, flip := range bitCombinations(len(planes), hamming) {
				if len(candidates) >= target {
					break
				}
				collectBucket(l.tables[t], sig^flip, candidates)
			}
		}
	}

	results := make([]Result, 0, len(candidates))
	for id, v := range candidates {
		score, err := metric.Cosine(q, v)
		if err != nil {
			return nil, errs.Wrap(op, errs.KindOf(err), err)
		}
		results = append(results, Result{ID: id, Score: score})
	}
	sortResults(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func collectBucket(table map[uint32][]lshBucketEntry, sig uint32, out map[string][]float32) {
	for _, e := range table[sig] {
		if _, ok := out[e.ID]; !ok {
			out[e.ID] = e.Vector
		}
	}
}

// bitCombinations returns every bitmask over n bits with exactly weight
// bits set, used to probe signatures at a fixed Hamming distance.
func bitCombinations(n, weight int) []uint32 {
	var out []uint32
	var rec func(start int, chosen []int)
	rec = func(start int, chosen []int) {
		if len(chosen) == weight {
			var mask uint32
			for _, b := range chosen {
				mask |= 1 << uint(b)
			}
			out = append(out, mask)
			return
		}
		for i := start; i < n; i++ {
			rec(i+1, append(chosen, i))
		}
	}
	rec(0, nil)
	return out
}

func (l *lsh) Size() int                  { return l.size }
func (l *lsh) Dimension() int             { return l.dimension }
func (l *lsh) Algorithm() model.Algorithm { return model.LSH }
func (l *lsh) Metric() model.Metric       { return model.Cosine }

type lshData struct {
	Cfg       LSHConfig
	Planes    [][][]float32
	Tables    []map[uint32][]lshBucketEntry
	Dimension int
	Size      int
}

func (l *lsh) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	data := lshData{Cfg: l.cfg, Planes: l.planes, Tables: l.tables, Dimension: l.dimension, Size: l.size}
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return nil, errs.Wrap(op, errs.Internal, err)
	}
	return buf.Bytes(), nil
}

func (l *lsh) Unmarshal(data []byte) error {
	var d lshData
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&d); err != nil {
		return errs.Wrap(op, errs.SnapshotCorrupt, err)
	}
	l.cfg = d.Cfg
	l.planes = d.Planes
	l.tables = d.Tables
	l.dimension = d.Dimension
	l.size = d.Size
	return nil
}
