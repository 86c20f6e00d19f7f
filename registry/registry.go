// Package registry implements IndexRegistry: the per-library cache of
// compiled nearest-neighbor indexes, built on demand and evicted on
// invalidation.
//
// One compiled index is kept per library behind a mutex, rebuilt from the
// backing vector source on demand, with single-flight coalescing so
// concurrent callers hitting a cold cache share one build rather than
// racing — the shape of a sync.Once that can be reset.
package registry

import (
	"sync"

	"github.com/doganarif/vectordb/errs"
	"github.com/doganarif/vectordb/model"
	"github.com/doganarif/vectordb/vectorindex"
)

const op = "registry"

// VectorSource supplies the vectors an index is built from. repository.Repository
// satisfies this; tests can fake it.
type VectorSource interface {
	VectorSnapshot(libraryID string) ([][]float32, []string, error)
}

// entry is one library's configured algorithm/metric and its compiled index,
// which is nil whenever a (re)build is needed.
type entry struct {
	cfg      model.IndexConfig
	idx      vectorindex.Index
	building bool
	done     chan struct{}
	err      error
}

// Registry is the IndexRegistry: configure once per library, then
// GetOrBuild on every search, paying the build cost only after a
// configuration change or an invalidating mutation.
type Registry struct {
	mu         sync.Mutex
	source     VectorSource
	entries    map[string]*entry
	configured map[string]bool
}

// New creates a Registry reading vectors from source.
func New(source VectorSource) *Registry {
	return &Registry{
		source:     source,
		entries:    make(map[string]*entry),
		configured: make(map[string]bool),
	}
}

// Configure sets libraryID's (algorithm, metric) pair, evicting any
// previously compiled index so the next GetOrBuild rebuilds under the new
// configuration. Defaults to linear/cosine if never configured.
func (r *Registry) Configure(libraryID string, cfg model.IndexConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[libraryID] = &entry{cfg: cfg}
	r.configured[libraryID] = true
}

// LookupConfig returns libraryID's explicitly configured (algorithm, metric)
// pair and true, or ok=false if Configure was never called for it — the
// distinction snapshot.Service needs to decide whether a library's index
// section is present or null in the persisted file.
func (r *Registry) LookupConfig(libraryID string) (model.IndexConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.configured[libraryID] {
		return model.IndexConfig{}, false
	}
	return r.configOrDefault(libraryID), true
}

func (r *Registry) configOrDefault(libraryID string) model.IndexConfig {
	if e, ok := r.entries[libraryID]; ok {
		return e.cfg
	}
	return model.IndexConfig{Algorithm: model.Linear, Metric: model.Cosine}
}

// Invalidate evicts libraryID's compiled index, if any, keeping its
// configured (algorithm, metric) pair. Idempotent: safe to call for a
// library with nothing cached, or repeatedly. This is the hook
// repository.Repository calls on any chunk-set or embedding mutation.
func (r *Registry) Invalidate(libraryID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[libraryID]
	if !ok {
		return
	}
	if e.building {
		// A build is in flight against the pre-mutation snapshot; let it
		// finish and store its (now stale) result in the old entry, which is
		// replaced below so the very next GetOrBuild rebuilds. The in-flight
		// callers still observe a consistent snapshot, matching the
		// documented semantics that concurrent writes don't guarantee a
		// reader sees them mid-flight.
		r.entries[libraryID] = &entry{cfg: e.cfg}
		return
	}
	r.entries[libraryID] = &entry{cfg: e.cfg}
}

// GetOrBuild returns libraryID's compiled index, building it if necessary.
// The caller must already hold at least a read lock on libraryID (via
// repository.Repository.RLock) so the vector snapshot taken here is
// consistent with the rest of the caller's search.
func (r *Registry) GetOrBuild(libraryID string) (vectorindex.Index, error) {
	for {
		r.mu.Lock()
		e, ok := r.entries[libraryID]
		if !ok {
			e = &entry{cfg: r.configOrDefault(libraryID)}
			r.entries[libraryID] = e
		}
		if e.idx != nil {
			idx := e.idx
			r.mu.Unlock()
			return idx, nil
		}
		if e.building {
			done := e.done
			r.mu.Unlock()
			<-done
			continue
		}

		e.building = true
		e.done = make(chan struct{})
		cfg := e.cfg
		r.mu.Unlock()

		idx, err := r.build(libraryID, cfg)

		r.mu.Lock()
		e.building = false
		if err != nil {
			e.err = err
		} else {
			e.idx = idx
			e.err = nil
		}
		close(e.done)
		r.mu.Unlock()

		if err != nil {
			return nil, err
		}
		return idx, nil
	}
}

func (r *Registry) build(libraryID string, cfg model.IndexConfig) (vectorindex.Index, error) {
	vectors, ids, err := r.source.VectorSnapshot(libraryID)
	if err != nil {
		return nil, err
	}

	var idx vectorindex.Index
	if cfg.Algorithm == model.LSH {
		lshCfg := vectorindex.DefaultLSHConfig()
		lshCfg.Seed = vectorindex.SeedFrom(libraryID, cfg.Algorithm, "")
		idx = vectorindex.NewLSH(lshCfg)
	} else {
		idx, err = vectorindex.New(cfg.Algorithm, cfg.Metric)
		if err != nil {
			return nil, err
		}
	}

	if err := idx.Build(vectors, ids, cfg.Metric); err != nil {
		return nil, errs.Wrap(op, errs.KindOf(err), err)
	}
	return idx, nil
}

// Describe reports libraryID's current configuration and, if a compiled
// index is cached, its size/dimension. Built is false when a build is
// still pending (no compiled index yet).
func (r *Registry) Describe(libraryID string) model.IndexDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg := r.configOrDefault(libraryID)
	desc := model.IndexDescriptor{
		LibraryID: libraryID,
		Algorithm: cfg.Algorithm,
		Metric:    cfg.Metric,
	}
	if e, ok := r.entries[libraryID]; ok {
		if e.idx != nil {
			desc.Built = true
			desc.Size = e.idx.Size()
			desc.Dimension = e.idx.Dimension()
		} else if e.err != nil {
			desc.LastError = e.err.Error()
		}
	}
	return desc
}

// Forget removes libraryID's entry entirely, for use when the library
// itself is deleted.
func (r *Registry) Forget(libraryID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, libraryID)
	delete(r.configured, libraryID)
}

// Reset drops every cached entry and configuration, for use by
// snapshot.Service.Restore right after the backing repository state has
// been replaced wholesale — stale per-library state from before the
// restore must not survive it.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*entry)
	r.configured = make(map[string]bool)
}
