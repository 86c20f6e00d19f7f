// Package repository implements the in-memory CRUD store for the
// library/document/chunk hierarchy, with reader/writer concurrency control.
//
// Locking uses two tiers: a process-wide lock guards the set of libraries
// itself (so library create/delete is atomic with respect to lookups), and
// one writer-priority lock.RWLock per library guards that library's
// documents and chunks. Lock ordering is always global-then-per-library.
package repository

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/doganarif/vectordb/errs"
	"github.com/doganarif/vectordb/lock"
	"github.com/doganarif/vectordb/model"
)

const op = "repository"

// InvalidationFunc is called whenever a mutation changes a library's chunk
// set, or a chunk's embedding — the signal the IndexRegistry consumes to
// evict its compiled index before the mutation becomes visible to readers.
// Metadata-only chunk updates do not call it (resolved to the "safe"
// no-invalidation reading — see DESIGN.md).
type InvalidationFunc func(libraryID string)

// libraryRecord holds one library's documents and chunks, guarded by its
// own writer-priority lock.
type libraryRecord struct {
	lock *lock.RWLock

	lib             model.Library
	documents       map[string]*model.Document
	chunks          map[string]*model.Chunk
	chunksByDocID   map[string]map[string]struct{}
	dimension       int // 0 until the first chunk fixes it
}

func newLibraryRecord(lib model.Library) *libraryRecord {
	return &libraryRecord{
		lock:          lock.New(),
		lib:           lib,
		documents:     make(map[string]*model.Document),
		chunks:        make(map[string]*model.Chunk),
		chunksByDocID: make(map[string]map[string]struct{}),
	}
}

// Repository is the in-memory hierarchical store.
type Repository struct {
	global *lock.RWLock

	libraries map[string]*libraryRecord
	names     map[string]string // library name -> id, for uniqueness

	onInvalidate InvalidationFunc
}

// New creates an empty Repository.
func New() *Repository {
	return &Repository{
		global:    lock.New(),
		libraries: make(map[string]*libraryRecord),
		names:     make(map[string]string),
	}
}

// OnInvalidate registers the callback invoked on chunk-set or
// embedding-affecting mutations. Intended to be wired to
// registry.Registry.Invalidate once, at construction time.
func (r *Repository) OnInvalidate(fn InvalidationFunc) {
	r.onInvalidate = fn
}

func (r *Repository) notify(libraryID string) {
	if r.onInvalidate != nil {
		r.onInvalidate(libraryID)
	}
}

// recordFor resolves a library record under the global read lock. The
// returned record's own lock must be acquired by the caller before reading
// or mutating its fields.
func (r *Repository) recordFor(libraryID string) (*libraryRecord, error) {
	r.global.RLock()
	defer r.global.RUnlock()
	rec, ok := r.libraries[libraryID]
	if !ok {
		return nil, errs.New(op, errs.NotFound, "library %q not found", libraryID)
	}
	return rec, nil
}

// ---- Library operations ----

// CreateLibrary creates a library with a unique, non-empty name.
func (r *Repository) CreateLibrary(name, description string, metadata model.Metadata) (*model.Library, error) {
	if name == "" {
		return nil, errs.New(op, errs.InvalidArgument, "library name must not be empty")
	}

	r.global.Lock()
	defer r.global.Unlock()

	if _, exists := r.names[name]; exists {
		return nil, errs.New(op, errs.AlreadyExists, "library named %q already exists", name)
	}

	now := time.Now()
	lib := model.Library{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Metadata:    metadata.Clone(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.libraries[lib.ID] = newLibraryRecord(lib)
	r.names[name] = lib.ID

	out := lib
	return &out, nil
}

// GetLibrary returns a copy of the library record.
func (r *Repository) GetLibrary(id string) (*model.Library, error) {
	rec, err := r.recordFor(id)
	if err != nil {
		return nil, err
	}
	rec.lock.RLock()
	defer rec.lock.RUnlock()
	out := rec.lib
	out.Metadata = out.Metadata.Clone()
	return &out, nil
}

// ListLibraries returns a copy of every library, ordered by id.
func (r *Repository) ListLibraries() ([]*model.Library, error) {
	r.global.RLock()
	recs := make([]*libraryRecord, 0, len(r.libraries))
	for _, rec := range r.libraries {
		recs = append(recs, rec)
	}
	r.global.RUnlock()

	out := make([]*model.Library, 0, len(recs))
	for _, rec := range recs {
		rec.lock.RLock()
		lib := rec.lib
		lib.Metadata = lib.Metadata.Clone()
		rec.lock.RUnlock()
		out = append(out, &lib)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LibraryPatch describes a partial update to a library. Nil fields are left
// unchanged.
type LibraryPatch struct {
	Name        *string
	Description *string
	Metadata    model.Metadata
}

// UpdateLibrary applies patch to library id. A non-nil Name must remain
// unique.
func (r *Repository) UpdateLibrary(id string, patch LibraryPatch) (*model.Library, error) {
	rec, err := r.recordFor(id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil && *patch.Name == "" {
		return nil, errs.New(op, errs.InvalidArgument, "library name must not be empty")
	}

	// Renaming touches the global name index, so take the global write
	// lock first, per the lock-ordering rule (global, then per-library).
	if patch.Name != nil {
		r.global.Lock()
		defer r.global.Unlock()
	}

	rec.lock.Lock()
	defer rec.lock.Unlock()

	if patch.Name != nil && *patch.Name != rec.lib.Name {
		if _, exists := r.names[*patch.Name]; exists {
			return nil, errs.New(op, errs.AlreadyExists, "library named %q already exists", *patch.Name)
		}
		delete(r.names, rec.lib.Name)
		r.names[*patch.Name] = id
		rec.lib.Name = *patch.Name
	}
	if patch.Description != nil {
		rec.lib.Description = *patch.Description
	}
	if patch.Metadata != nil {
		rec.lib.Metadata = patch.Metadata.Clone()
	}
	rec.lib.UpdatedAt = time.Now()

	out := rec.lib
	out.Metadata = out.Metadata.Clone()
	return &out, nil
}

// DeleteLibrary removes a library and cascades to its documents and chunks.
func (r *Repository) DeleteLibrary(id string) error {
	r.global.Lock()
	defer r.global.Unlock()

	rec, ok := r.libraries[id]
	if !ok {
		return errs.New(op, errs.NotFound, "library %q not found", id)
	}
	delete(r.names, rec.lib.Name)
	delete(r.libraries, id)
	return nil
}

// ---- Document operations ----

// CreateDocument creates a document under libraryID.
func (r *Repository) CreateDocument(libraryID, title, description string, metadata model.Metadata) (*model.Document, error) {
	if title == "" {
		return nil, errs.New(op, errs.InvalidArgument, "document title must not be empty")
	}
	rec, err := r.recordFor(libraryID)
	if err != nil {
		return nil, err
	}

	rec.lock.Lock()
	defer rec.lock.Unlock()

	now := time.Now()
	doc := model.Document{
		ID:          uuid.NewString(),
		LibraryID:   libraryID,
		Title:       title,
		Description: description,
		Metadata:    metadata.Clone(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	rec.documents[doc.ID] = &doc
	rec.chunksByDocID[doc.ID] = make(map[string]struct{})

	out := doc
	return &out, nil
}

// GetDocument returns a copy of a document.
func (r *Repository) GetDocument(libraryID, docID string) (*model.Document, error) {
	rec, err := r.recordFor(libraryID)
	if err != nil {
		return nil, err
	}
	rec.lock.RLock()
	defer rec.lock.RUnlock()
	doc, ok := rec.documents[docID]
	if !ok {
		return nil, errs.New(op, errs.NotFound, "document %q not found", docID)
	}
	out := *doc
	out.Metadata = out.Metadata.Clone()
	return &out, nil
}

// ListDocuments returns every document in libraryID, ordered by id.
func (r *Repository) ListDocuments(libraryID string) ([]*model.Document, error) {
	rec, err := r.recordFor(libraryID)
	if err != nil {
		return nil, err
	}
	rec.lock.RLock()
	defer rec.lock.RUnlock()

	out := make([]*model.Document, 0, len(rec.documents))
	for _, doc := range rec.documents {
		d := *doc
		d.Metadata = d.Metadata.Clone()
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DocumentPatch describes a partial update to a document.
type DocumentPatch struct {
	Title       *string
	Description *string
	Metadata    model.Metadata
}

// UpdateDocument applies patch to a document.
func (r *Repository) UpdateDocument(libraryID, docID string, patch DocumentPatch) (*model.Document, error) {
	rec, err := r.recordFor(libraryID)
	if err != nil {
		return nil, err
	}
	rec.lock.Lock()
	defer rec.lock.Unlock()

	doc, ok := rec.documents[docID]
	if !ok {
		return nil, errs.New(op, errs.NotFound, "document %q not found", docID)
	}
	if patch.Title != nil {
		if *patch.Title == "" {
			return nil, errs.New(op, errs.InvalidArgument, "document title must not be empty")
		}
		doc.Title = *patch.Title
	}
	if patch.Description != nil {
		doc.Description = *patch.Description
	}
	if patch.Metadata != nil {
		doc.Metadata = patch.Metadata.Clone()
	}
	doc.UpdatedAt = time.Now()

	out := *doc
	out.Metadata = out.Metadata.Clone()
	return &out, nil
}

// DeleteDocument removes a document and cascades to its chunks.
func (r *Repository) DeleteDocument(libraryID, docID string) error {
	rec, err := r.recordFor(libraryID)
	if err != nil {
		return err
	}
	rec.lock.Lock()
	defer rec.lock.Unlock()

	if _, ok := rec.documents[docID]; !ok {
		return errs.New(op, errs.NotFound, "document %q not found", docID)
	}

	chunkIDs := rec.chunksByDocID[docID]
	invalidate := len(chunkIDs) > 0
	for chunkID := range chunkIDs {
		delete(rec.chunks, chunkID)
	}
	delete(rec.chunksByDocID, docID)
	delete(rec.documents, docID)

	if invalidate {
		r.notify(libraryID)
	}
	return nil
}

// ---- Chunk operations ----

// CreateChunk creates a chunk under docID in libraryID. The first chunk
// created in a library fixes that library's embedding dimension; later
// chunks with a mismatched length are rejected.
func (r *Repository) CreateChunk(libraryID, docID, text string, embedding []float32, metadata model.Metadata) (*model.Chunk, error) {
	if len(embedding) == 0 {
		return nil, errs.New(op, errs.InvalidArgument, "embedding must not be empty")
	}
	rec, err := r.recordFor(libraryID)
	if err != nil {
		return nil, err
	}

	rec.lock.Lock()
	defer rec.lock.Unlock()

	if _, ok := rec.documents[docID]; !ok {
		return nil, errs.New(op, errs.NotFound, "document %q not found", docID)
	}

	if rec.dimension == 0 {
		rec.dimension = len(embedding)
	} else if rec.dimension != len(embedding) {
		return nil, errs.New(op, errs.DimensionMismatch,
			"embedding has length %d, library dimension is %d", len(embedding), rec.dimension)
	}

	now := time.Now()
	embCopy := make([]float32, len(embedding))
	copy(embCopy, embedding)

	chunk := model.Chunk{
		ID:         uuid.NewString(),
		DocumentID: docID,
		LibraryID:  libraryID,
		Text:       text,
		Embedding:  embCopy,
		Metadata:   metadata.Clone(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	rec.chunks[chunk.ID] = &chunk
	rec.chunksByDocID[docID][chunk.ID] = struct{}{}

	r.notify(libraryID)

	out := chunk
	return &out, nil
}

// GetChunk returns a copy of a chunk.
func (r *Repository) GetChunk(libraryID, chunkID string) (*model.Chunk, error) {
	rec, err := r.recordFor(libraryID)
	if err != nil {
		return nil, err
	}
	rec.lock.RLock()
	defer rec.lock.RUnlock()
	chunk, ok := rec.chunks[chunkID]
	if !ok {
		return nil, errs.New(op, errs.NotFound, "chunk %q not found", chunkID)
	}
	return cloneChunk(chunk), nil
}

// ListChunks returns every chunk in libraryID, optionally scoped to docID
// (pass "" for every document), ordered by id.
func (r *Repository) ListChunks(libraryID, docID string) ([]*model.Chunk, error) {
	rec, err := r.recordFor(libraryID)
	if err != nil {
		return nil, err
	}
	rec.lock.RLock()
	defer rec.lock.RUnlock()
	return r.listChunksLocked(rec, docID), nil
}

func (r *Repository) listChunksLocked(rec *libraryRecord, docID string) []*model.Chunk {
	var out []*model.Chunk
	if docID == "" {
		out = make([]*model.Chunk, 0, len(rec.chunks))
		for _, c := range rec.chunks {
			out = append(out, cloneChunk(c))
		}
	} else {
		ids := rec.chunksByDocID[docID]
		out = make([]*model.Chunk, 0, len(ids))
		for id := range ids {
			out = append(out, cloneChunk(rec.chunks[id]))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ChunkPatch describes a partial update to a chunk. A non-nil Embedding
// must match the library's established dimension.
type ChunkPatch struct {
	Text      *string
	Embedding []float32
	Metadata  model.Metadata
}

// UpdateChunk applies patch to a chunk. Only an Embedding change
// invalidates the library's compiled index — a metadata- or text-only
// update does not (see DESIGN.md).
func (r *Repository) UpdateChunk(libraryID, chunkID string, patch ChunkPatch) (*model.Chunk, error) {
	rec, err := r.recordFor(libraryID)
	if err != nil {
		return nil, err
	}
	rec.lock.Lock()
	defer rec.lock.Unlock()

	chunk, ok := rec.chunks[chunkID]
	if !ok {
		return nil, errs.New(op, errs.NotFound, "chunk %q not found", chunkID)
	}

	embeddingChanged := false
	if patch.Embedding != nil {
		if rec.dimension != 0 && len(patch.Embedding) != rec.dimension {
			return nil, errs.New(op, errs.DimensionMismatch,
				"embedding has length %d, library dimension is %d", len(patch.Embedding), rec.dimension)
		}
		embCopy := make([]float32, len(patch.Embedding))
		copy(embCopy, patch.Embedding)
		chunk.Embedding = embCopy
		embeddingChanged = true
	}
	if patch.Text != nil {
		chunk.Text = *patch.Text
	}
	if patch.Metadata != nil {
		chunk.Metadata = patch.Metadata.Clone()
	}
	chunk.UpdatedAt = time.Now()

	if embeddingChanged {
		r.notify(libraryID)
	}

	return cloneChunk(chunk), nil
}

// DeleteChunk removes a chunk.
func (r *Repository) DeleteChunk(libraryID, chunkID string) error {
	rec, err := r.recordFor(libraryID)
	if err != nil {
		return err
	}
	rec.lock.Lock()
	defer rec.lock.Unlock()

	chunk, ok := rec.chunks[chunkID]
	if !ok {
		return errs.New(op, errs.NotFound, "chunk %q not found", chunkID)
	}
	delete(rec.chunks, chunkID)
	delete(rec.chunksByDocID[chunk.DocumentID], chunkID)

	r.notify(libraryID)
	return nil
}

func cloneChunk(c *model.Chunk) *model.Chunk {
	out := *c
	out.Embedding = append([]float32(nil), c.Embedding...)
	out.Metadata = c.Metadata.Clone()
	return &out
}

// ---- Access for SearchService / IndexRegistry ----
//
// These accept an already-held per-library read lock: the spec's data flow
// has SearchService acquire the library's read lock once, then fetch the
// compiled index (building on demand) and resolve chunks without ever
// releasing and reacquiring it. Taking the lock again here — even for a
// read — would be a second, independent acquisition race against a writer
// that started waiting between the two, so these methods assume the lock
// and do not take it themselves.

// RLock acquires libraryID's lock for reading and returns the release
// function. Callers use this to bracket a read-then-build-then-resolve
// sequence across Repository and registry.Registry.
func (r *Repository) RLock(libraryID string) (func(), error) {
	rec, err := r.recordFor(libraryID)
	if err != nil {
		return nil, err
	}
	rec.lock.RLock()
	return rec.lock.RUnlock, nil
}

// VectorSnapshot returns every chunk's (embedding, id) pair for libraryID,
// for use by registry.Registry while it already holds libraryID's read
// lock (see RLock).
func (r *Repository) VectorSnapshot(libraryID string) ([][]float32, []string, error) {
	rec, err := r.recordFor(libraryID)
	if err != nil {
		return nil, nil, err
	}
	chunks := r.listChunksLocked(rec, "")
	vectors := make([][]float32, 0, len(chunks))
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		vectors = append(vectors, c.Embedding)
		ids = append(ids, c.ID)
	}
	return vectors, ids, nil
}

// ResolveChunk returns chunkID's current record for libraryID, for use by
// SearchService while it already holds libraryID's read lock (see RLock).
// Returns ok=false if the chunk no longer exists (the defensive skip spec
// §4.5 step 3 calls for).
func (r *Repository) ResolveChunk(libraryID, chunkID string) (*model.Chunk, bool) {
	rec, err := r.recordFor(libraryID)
	if err != nil {
		return nil, false
	}
	chunk, ok := rec.chunks[chunkID]
	if !ok {
		return nil, false
	}
	return cloneChunk(chunk), true
}

// Dimension returns libraryID's established embedding dimension, or 0 if no
// chunk has been created yet.
func (r *Repository) Dimension(libraryID string) (int, error) {
	rec, err := r.recordFor(libraryID)
	if err != nil {
		return 0, err
	}
	return rec.dimension, nil
}

// ---- Bulk dump / restore, for snapshot.Service ----

// DocumentSnapshot is one document and every chunk it owns.
type DocumentSnapshot struct {
	Document model.Document
	Chunks   []model.Chunk
}

// LibrarySnapshot is one library's full contents, in the nesting the
// snapshot file format uses.
type LibrarySnapshot struct {
	Library   model.Library
	Documents []DocumentSnapshot
}

// Snapshot returns every library's full contents under a single
// point-in-time view: the global read lock is held for the whole call, so
// no library can be created or deleted while the dump runs, and each
// library's own contents are read under its own read lock.
func (r *Repository) Snapshot() []LibrarySnapshot {
	r.global.RLock()
	defer r.global.RUnlock()

	out := make([]LibrarySnapshot, 0, len(r.libraries))
	for _, rec := range r.libraries {
		rec.lock.RLock()
		libSnap := LibrarySnapshot{Library: rec.lib}
		libSnap.Library.Metadata = libSnap.Library.Metadata.Clone()
		for _, doc := range rec.documents {
			d := *doc
			d.Metadata = d.Metadata.Clone()
			chunks := r.listChunksLocked(rec, doc.ID)
			chunkVals := make([]model.Chunk, len(chunks))
			for i, c := range chunks {
				chunkVals[i] = *c
			}
			libSnap.Documents = append(libSnap.Documents, DocumentSnapshot{Document: d, Chunks: chunkVals})
		}
		rec.lock.RUnlock()
		sort.Slice(libSnap.Documents, func(i, j int) bool {
			return libSnap.Documents[i].Document.ID < libSnap.Documents[j].Document.ID
		})
		out = append(out, libSnap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Library.ID < out[j].Library.ID })
	return out
}

// Restore replaces the entire repository state with libs. The global write
// lock is held for the whole call and the replacement maps are built before
// they are swapped in, so a failed Restore changes nothing and a library
// lookup that starts after it returns sees only the new state. An operation
// that resolved its library record before the swap finishes against that
// old record, which is no longer reachable afterwards.
func (r *Repository) Restore(libs []LibrarySnapshot) error {
	r.global.Lock()
	defer r.global.Unlock()

	libraries := make(map[string]*libraryRecord, len(libs))
	names := make(map[string]string, len(libs))

	for _, libSnap := range libs {
		if _, exists := names[libSnap.Library.Name]; exists {
			return errs.New(op, errs.SnapshotCorrupt, "duplicate library name %q in snapshot", libSnap.Library.Name)
		}
		rec := newLibraryRecord(libSnap.Library)
		dimension := 0
		for _, docSnap := range libSnap.Documents {
			doc := docSnap.Document
			rec.documents[doc.ID] = &doc
			chunkIDs := make(map[string]struct{}, len(docSnap.Chunks))
			for i := range docSnap.Chunks {
				c := docSnap.Chunks[i]
				if len(c.Embedding) == 0 {
					continue
				}
				if dimension == 0 {
					dimension = len(c.Embedding)
				} else if dimension != len(c.Embedding) {
					return errs.New(op, errs.SnapshotCorrupt,
						"library %q has inconsistent embedding dimensions", libSnap.Library.Name)
				}
				rec.chunks[c.ID] = &c
				chunkIDs[c.ID] = struct{}{}
			}
			rec.chunksByDocID[doc.ID] = chunkIDs
		}
		rec.dimension = dimension
		libraries[libSnap.Library.ID] = rec
		names[libSnap.Library.Name] = libSnap.Library.ID
	}

	r.libraries = libraries
	r.names = names
	return nil
}
