// Package vectordb ties the repository, index registry, search service and
// snapshot service into one facade, assembled behind a Builder.
package vectordb

import (
	"github.com/doganarif/vectordb/config"
	"github.com/doganarif/vectordb/model"
	"github.com/doganarif/vectordb/registry"
	"github.com/doganarif/vectordb/repository"
	"github.com/doganarif/vectordb/search"
	"github.com/doganarif/vectordb/snapshot"
)

// DB is the facade over the whole in-memory vector database.
type DB struct {
	Repository *repository.Repository
	Registry   *registry.Registry
	Search     *search.Service
	Snapshot   *snapshot.Service

	defaultIndex model.IndexConfig
}

// Builder configures a DB.
type Builder struct {
	dataDir      string
	defaultIndex model.IndexConfig
}

// NewBuilder creates a Builder seeded with the spec's defaults
// (linear/cosine, data_dir "data").
func NewBuilder() *Builder {
	return &Builder{
		dataDir:      "data",
		defaultIndex: model.IndexConfig{Algorithm: model.Linear, Metric: model.Cosine},
	}
}

// FromConfig seeds the Builder from a loaded config.Config.
func (b *Builder) FromConfig(cfg config.Config) *Builder {
	b.dataDir = cfg.DataDir
	b.defaultIndex = model.IndexConfig{Algorithm: cfg.DefaultIndex, Metric: cfg.DefaultMetric}
	return b
}

// WithDataDir overrides the snapshot directory.
func (b *Builder) WithDataDir(dir string) *Builder {
	b.dataDir = dir
	return b
}

// WithDefaultIndex overrides the default (algorithm, metric) new libraries
// get until explicitly configured otherwise.
func (b *Builder) WithDefaultIndex(cfg model.IndexConfig) *Builder {
	b.defaultIndex = cfg
	return b
}

// Build wires up the repository, registry, search and snapshot layers and
// connects the repository's invalidation hook to the registry.
func (b *Builder) Build() (*DB, error) {
	repo := repository.New()
	reg := registry.New(repo)
	repo.OnInvalidate(reg.Invalidate)

	searchSvc := search.New(repo, reg)

	snapSvc, err := snapshot.New(b.dataDir, repo, reg)
	if err != nil {
		return nil, err
	}

	return &DB{
		Repository:   repo,
		Registry:     reg,
		Search:       searchSvc,
		Snapshot:     snapSvc,
		defaultIndex: b.defaultIndex,
	}, nil
}

// CreateLibrary creates a library and configures its index to the
// builder-supplied default, so a freshly created library is searchable
// without a separate index-configuration call.
func (db *DB) CreateLibrary(name, description string, metadata model.Metadata) (*model.Library, error) {
	lib, err := db.Repository.CreateLibrary(name, description, metadata)
	if err != nil {
		return nil, err
	}
	db.Registry.Configure(lib.ID, db.defaultIndex)
	return lib, nil
}

// DeleteLibrary removes a library and its compiled index.
func (db *DB) DeleteLibrary(id string) error {
	if err := db.Repository.DeleteLibrary(id); err != nil {
		return err
	}
	db.Registry.Forget(id)
	return nil
}
