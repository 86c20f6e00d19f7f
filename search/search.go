// Package search implements SearchService, the single read path that ties
// the repository, the index registry and the metadata filter together: a
// query wraps a compiled-index lookup with an overfetch/resolve/filter/
// truncate pipeline. Overfetch is capped at the index size, so when fewer
// than k candidates pass the filter the result is shorter than k.
package search

import (
	"github.com/doganarif/vectordb/errs"
	"github.com/doganarif/vectordb/model"
	"github.com/doganarif/vectordb/vectorindex"
)

const op = "search"

// defaultOverfetch is the multiplier applied to k when a metadata filter is
// present, so filtering out candidates still leaves enough to fill k.
const defaultOverfetch = 4

// Locker is the subset of repository.Repository a Service needs to
// bracket a read across the registry build and chunk resolution.
type Locker interface {
	RLock(libraryID string) (func(), error)
}

// IndexSource resolves a library's compiled index, building on demand.
type IndexSource interface {
	GetOrBuild(libraryID string) (vectorindex.Index, error)
}

// ChunkResolver resolves a chunk id to its current record.
type ChunkResolver interface {
	ResolveChunk(libraryID, chunkID string) (*model.Chunk, bool)
}

// Repository is the combined contract Service depends on; repository.Repository
// satisfies it.
type Repository interface {
	Locker
	ChunkResolver
}

// Result pairs a resolved chunk with its ranking score.
type Result struct {
	Chunk model.Chunk
	Score float32
}

// Filter is a metadata predicate: key -> expected scalar, or expected set
// (as a []any) for containment matching.
type Filter map[string]any

// Service is SearchService.
type Service struct {
	repo  Repository
	index IndexSource
}

// New creates a Service.
func New(repo Repository, index IndexSource) *Service {
	return &Service{repo: repo, index: index}
}

// Search returns the first k chunks matching q (and, if non-empty, filter),
// ranked by the index's scoring order.
func (s *Service) Search(libraryID string, q []float32, k int, filter Filter) ([]Result, error) {
	if k <= 0 {
		return nil, errs.New(op, errs.InvalidArgument, "k must be positive, got %d", k)
	}

	unlock, err := s.repo.RLock(libraryID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	idx, err := s.index.GetOrBuild(libraryID)
	if err != nil {
		return nil, err
	}

	queryK := k
	if len(filter) > 0 {
		queryK = k * defaultOverfetch
		if n := idx.Size(); n > 0 && queryK > n {
			queryK = n
		}
	}

	raw, err := idx.Query(q, queryK)
	if err != nil {
		return nil, errs.Wrap(op, errs.KindOf(err), err)
	}

	out := make([]Result, 0, k)
	for _, r := range raw {
		chunk, ok := s.repo.ResolveChunk(libraryID, r.ID)
		if !ok {
			// Defensive: the id came from the index a moment ago under the
			// same read lock, so this should not happen under correct lock
			// discipline. Skip rather than fail the whole search.
			continue
		}
		if !matches(chunk.Metadata, filter) {
			continue
		}
		out = append(out, Result{Chunk: *chunk, Score: r.Score})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// matches reports whether metadata satisfies every key in filter.
func matches(metadata model.Metadata, filter Filter) bool {
	for key, expected := range filter {
		actual, ok := metadata[key]
		if !ok {
			return false
		}
		if !valueMatches(actual, expected) {
			return false
		}
	}
	return true
}

func valueMatches(actual, expected any) bool {
	if set, ok := expected.([]any); ok {
		for _, candidate := range set {
			if candidate == actual {
				return true
			}
		}
		return false
	}
	return actual == expected
}
