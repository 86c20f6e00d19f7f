// Package snapshot implements durable point-in-time dumps of the whole
// repository: create/list/get/restore/delete.
//
// Commits a whole write as one unit, or not at all, via a write-then-rename
// JSON file (see DESIGN.md for why this isn't backed by a SQL file store).
package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/doganarif/vectordb/errs"
	"github.com/doganarif/vectordb/metric"
	"github.com/doganarif/vectordb/model"
	"github.com/doganarif/vectordb/registry"
	"github.com/doganarif/vectordb/repository"
)

const op = "snapshot"

const formatVersion = 1

type chunkEnvelope struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Embedding []float32      `json:"embedding"`
	Metadata  model.Metadata `json:"metadata"`
}

type documentEnvelope struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Metadata    model.Metadata  `json:"metadata"`
	Chunks      []chunkEnvelope `json:"chunks"`
}

type indexEnvelope struct {
	Algorithm model.Algorithm `json:"algorithm"`
	Metric    model.Metric    `json:"metric"`
}

type libraryEnvelope struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Metadata    model.Metadata     `json:"metadata"`
	Documents   []documentEnvelope `json:"documents"`
	Index       *indexEnvelope     `json:"index"`
}

type envelope struct {
	FormatVersion int               `json:"format_version"`
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	CreatedAt     time.Time         `json:"created_at"`
	Libraries     []libraryEnvelope `json:"libraries"`
}

// Service is the snapshot admin surface.
type Service struct {
	dataDir  string
	repo     *repository.Repository
	registry *registry.Registry
}

// New creates a Service rooted at dataDir, creating it if necessary.
func New(dataDir string, repo *repository.Repository, reg *registry.Registry) (*Service, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errs.Wrap(op, errs.Internal, err)
	}
	return &Service{dataDir: dataDir, repo: repo, registry: reg}, nil
}

func (s *Service) path(id string) string {
	return filepath.Join(s.dataDir, id+".json")
}

// Create builds a snapshot from the current repository state and registers
// it under name. Fails with AlreadyExists if name is already taken by
// another snapshot.
func (s *Service) Create(name string) (*model.SnapshotHeader, error) {
	if name == "" {
		return nil, errs.New(op, errs.InvalidArgument, "snapshot name must not be empty")
	}

	existing, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, h := range existing {
		if h.Name == name {
			return nil, errs.New(op, errs.AlreadyExists, "snapshot named %q already exists", name)
		}
	}

	libs := s.repo.Snapshot()
	env := envelope{
		FormatVersion: formatVersion,
		ID:            uuid.NewString(),
		Name:          name,
		CreatedAt:     time.Now(),
		Libraries:     make([]libraryEnvelope, 0, len(libs)),
	}
	for _, lib := range libs {
		env.Libraries = append(env.Libraries, toLibraryEnvelope(lib, s.registry))
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, errs.Wrap(op, errs.Internal, err)
	}

	if err := writeAtomic(s.path(env.ID), data); err != nil {
		return nil, err
	}

	return &model.SnapshotHeader{
		ID:        env.ID,
		Name:      env.Name,
		CreatedAt: env.CreatedAt,
		SizeBytes: int64(len(data)),
	}, nil
}

// writeAtomic writes data to a ".tmp" sibling of path, fsyncs it, then
// renames it into place so a crash never leaves a half-written snapshot
// file where a reader expects a complete one.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errs.Wrap(op, errs.Internal, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return errs.Wrap(op, errs.Internal, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return errs.Wrap(op, errs.Internal, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errs.Wrap(op, errs.Internal, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errs.Wrap(op, errs.Internal, err)
	}
	return nil
}

// List enumerates every snapshot file's header, ordered by creation time.
func (s *Service) List() ([]model.SnapshotHeader, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(op, errs.Internal, err)
	}

	out := make([]model.SnapshotHeader, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		header, err := s.Get(id)
		if err != nil {
			continue
		}
		out = append(out, *header)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Get returns a snapshot's header metadata. It reads and decodes the whole
// file to do so, but returns only the header fields.
func (s *Service) Get(id string) (*model.SnapshotHeader, error) {
	path := s.path(id)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New(op, errs.NotFound, "snapshot %q not found", id)
		}
		return nil, errs.Wrap(op, errs.Internal, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(op, errs.Internal, err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errs.Wrap(op, errs.SnapshotCorrupt, err)
	}

	return &model.SnapshotHeader{
		ID:        env.ID,
		Name:      env.Name,
		CreatedAt: env.CreatedAt,
		SizeBytes: info.Size(),
	}, nil
}

// Restore loads snapshot id and replaces the repository's entire state with
// it, eagerly rebuilding every library's configured index. Malformed files
// or inconsistent data leave the current state untouched: the file is
// decoded into a staging envelope, every index configuration is checked
// before the swap, and repository.Repository.Restore builds its replacement
// maps before ever touching live state, so a failure here never leaves a
// partial restore in place.
func (s *Service) Restore(id string) error {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return errs.New(op, errs.NotFound, "snapshot %q not found", id)
		}
		return errs.Wrap(op, errs.Internal, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return errs.Wrap(op, errs.SnapshotCorrupt, err)
	}
	if env.FormatVersion != formatVersion {
		return errs.New(op, errs.SnapshotCorrupt, "unsupported format_version %d", env.FormatVersion)
	}

	libs := make([]repository.LibrarySnapshot, 0, len(env.Libraries))
	for _, le := range env.Libraries {
		libs = append(libs, fromLibraryEnvelope(le))
		if le.Index != nil {
			if err := metric.CheckSupported(le.Index.Algorithm, le.Index.Metric); err != nil {
				return errs.Wrap(op, errs.SnapshotCorrupt, err)
			}
		}
	}

	if err := s.repo.Restore(libs); err != nil {
		return err
	}

	s.registry.Reset()
	for _, le := range env.Libraries {
		if le.Index == nil {
			continue
		}
		s.registry.Configure(le.ID, model.IndexConfig{Algorithm: le.Index.Algorithm, Metric: le.Index.Metric})
		unlock, err := s.repo.RLock(le.ID)
		if err != nil {
			return err
		}
		_, err = s.registry.GetOrBuild(le.ID)
		unlock()
		if err != nil {
			return errs.Wrap(op, errs.SnapshotCorrupt, err)
		}
	}
	return nil
}

// Delete removes snapshot id's file. Idempotent: missing is not an error.
func (s *Service) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return errs.Wrap(op, errs.Internal, err)
	}
	return nil
}

func toLibraryEnvelope(lib repository.LibrarySnapshot, reg *registry.Registry) libraryEnvelope {
	out := libraryEnvelope{
		ID:          lib.Library.ID,
		Name:        lib.Library.Name,
		Description: lib.Library.Description,
		Metadata:    lib.Library.Metadata,
		Documents:   make([]documentEnvelope, 0, len(lib.Documents)),
	}
	for _, doc := range lib.Documents {
		de := documentEnvelope{
			ID:          doc.Document.ID,
			Title:       doc.Document.Title,
			Description: doc.Document.Description,
			Metadata:    doc.Document.Metadata,
			Chunks:      make([]chunkEnvelope, 0, len(doc.Chunks)),
		}
		for _, c := range doc.Chunks {
			de.Chunks = append(de.Chunks, chunkEnvelope{
				ID: c.ID, Text: c.Text, Embedding: c.Embedding, Metadata: c.Metadata,
			})
		}
		out.Documents = append(out.Documents, de)
	}
	if cfg, ok := reg.LookupConfig(lib.Library.ID); ok {
		out.Index = &indexEnvelope{Algorithm: cfg.Algorithm, Metric: cfg.Metric}
	}
	return out
}

func fromLibraryEnvelope(le libraryEnvelope) repository.LibrarySnapshot {
	out := repository.LibrarySnapshot{
		Library: model.Library{
			ID:          le.ID,
			Name:        le.Name,
			Description: le.Description,
			Metadata:    le.Metadata,
		},
	}
	for _, de := range le.Documents {
		doc := repository.DocumentSnapshot{
			Document: model.Document{
				ID:          de.ID,
				LibraryID:   le.ID,
				Title:       de.Title,
				Description: de.Description,
				Metadata:    de.Metadata,
			},
		}
		for _, ce := range de.Chunks {
			doc.Chunks = append(doc.Chunks, model.Chunk{
				ID:         ce.ID,
				DocumentID: de.ID,
				LibraryID:  le.ID,
				Text:       ce.Text,
				Embedding:  ce.Embedding,
				Metadata:   ce.Metadata,
			})
		}
		out.Documents = append(out.Documents, doc)
	}
	return out
}
