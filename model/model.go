// Package model defines the Library / Document / Chunk hierarchy and the
// index and snapshot descriptors that sit alongside it.
package model

import "time"

// Algorithm names an index implementation.
type Algorithm string

const (
	Linear Algorithm = "linear"
	KDTree Algorithm = "kdtree"
	LSH    Algorithm = "lsh"
)

// Metric names a distance/similarity kernel.
type Metric string

const (
	Cosine    Metric = "cosine"
	Euclidean Metric = "euclidean"
)

// Metadata is a free-form property bag attached to libraries, documents and
// chunks. Values are JSON-like scalars or slices of scalars: equality
// against a scalar, or membership in a set, is all a metadata filter needs.
type Metadata map[string]any

// Clone returns a shallow copy of m (safe because values are treated as
// immutable once stored).
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Library is the top-level container. Names are unique across the
// repository.
type Library struct {
	ID          string
	Name        string
	Description string
	Metadata    Metadata
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Document belongs to exactly one Library.
type Document struct {
	ID          string
	LibraryID   string
	Title       string
	Description string
	Metadata    Metadata
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Chunk belongs to exactly one Document, and (denormalized) one Library.
type Chunk struct {
	ID         string
	DocumentID string
	LibraryID  string
	Text       string
	Embedding  []float32
	Metadata   Metadata
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IndexConfig records the configured (algorithm, metric) pair for a
// library's compiled index, the only part of a CompiledIndex that survives
// a snapshot (internal structure is always rebuilt on restore).
type IndexConfig struct {
	Algorithm Algorithm
	Metric    Metric
}

// IndexDescriptor is the introspection result returned by
// IndexRegistry.describe.
type IndexDescriptor struct {
	LibraryID string
	Algorithm Algorithm
	Metric    Metric
	Size      int
	Dimension int
	Built     bool
	// LastError is the most recent build failure for this library, if the
	// cache's last attempt failed and hasn't been superseded by a successful
	// build since. Empty when Built is true or no build has ever failed.
	LastError string
}

// SnapshotHeader is a snapshot's identity and metadata, without its
// repository payload.
type SnapshotHeader struct {
	ID        string
	Name      string
	CreatedAt time.Time
	SizeBytes int64
}
