package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doganarif/vectordb/errs"
	"github.com/doganarif/vectordb/model"
)

func TestCreateLibraryRejectsDuplicateName(t *testing.T) {
	r := New()
	_, err := r.CreateLibrary("docs", "", nil)
	require.NoError(t, err)

	_, err = r.CreateLibrary("docs", "", nil)
	assert.Equal(t, errs.AlreadyExists, errs.KindOf(err))
}

func TestCreateLibraryRejectsEmptyName(t *testing.T) {
	r := New()
	_, err := r.CreateLibrary("", "", nil)
	assert.Equal(t, errs.InvalidArgument, errs.KindOf(err))
}

func TestFirstChunkFixesDimension(t *testing.T) {
	r := New()
	lib, err := r.CreateLibrary("docs", "", nil)
	require.NoError(t, err)
	doc, err := r.CreateDocument(lib.ID, "doc1", "", nil)
	require.NoError(t, err)

	_, err = r.CreateChunk(lib.ID, doc.ID, "hello", []float32{1, 2, 3}, nil)
	require.NoError(t, err)

	_, err = r.CreateChunk(lib.ID, doc.ID, "mismatched", []float32{1, 2}, nil)
	assert.Equal(t, errs.DimensionMismatch, errs.KindOf(err))
}

func TestDeleteLibraryCascades(t *testing.T) {
	r := New()
	lib, err := r.CreateLibrary("docs", "", nil)
	require.NoError(t, err)
	doc, err := r.CreateDocument(lib.ID, "doc1", "", nil)
	require.NoError(t, err)
	chunk, err := r.CreateChunk(lib.ID, doc.ID, "hello", []float32{1}, nil)
	require.NoError(t, err)

	require.NoError(t, r.DeleteLibrary(lib.ID))

	_, err = r.GetLibrary(lib.ID)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
	_, err = r.GetDocument(lib.ID, doc.ID)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
	_, err = r.GetChunk(lib.ID, chunk.ID)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestDeleteDocumentCascadesToChunksAndInvalidates(t *testing.T) {
	r := New()
	lib, err := r.CreateLibrary("docs", "", nil)
	require.NoError(t, err)
	doc, err := r.CreateDocument(lib.ID, "doc1", "", nil)
	require.NoError(t, err)
	chunk, err := r.CreateChunk(lib.ID, doc.ID, "hello", []float32{1}, nil)
	require.NoError(t, err)

	var invalidated []string
	r.OnInvalidate(func(libraryID string) { invalidated = append(invalidated, libraryID) })

	require.NoError(t, r.DeleteDocument(lib.ID, doc.ID))

	_, err = r.GetChunk(lib.ID, chunk.ID)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
	assert.Contains(t, invalidated, lib.ID)
}

func TestUpdateChunkMetadataOnlyDoesNotInvalidate(t *testing.T) {
	r := New()
	lib, err := r.CreateLibrary("docs", "", nil)
	require.NoError(t, err)
	doc, err := r.CreateDocument(lib.ID, "doc1", "", nil)
	require.NoError(t, err)
	chunk, err := r.CreateChunk(lib.ID, doc.ID, "hello", []float32{1, 2}, nil)
	require.NoError(t, err)

	invalidations := 0
	r.OnInvalidate(func(libraryID string) { invalidations++ })

	_, err = r.UpdateChunk(lib.ID, chunk.ID, ChunkPatch{Metadata: model.Metadata{"tag": "x"}})
	require.NoError(t, err)
	assert.Equal(t, 0, invalidations, "a metadata-only update must not invalidate the compiled index")

	_, err = r.UpdateChunk(lib.ID, chunk.ID, ChunkPatch{Embedding: []float32{3, 4}})
	require.NoError(t, err)
	assert.Equal(t, 1, invalidations, "an embedding update must invalidate the compiled index")
}

func TestVectorSnapshotSkipsChunksWithoutEmbeddings(t *testing.T) {
	r := New()
	lib, err := r.CreateLibrary("docs", "", nil)
	require.NoError(t, err)
	doc, err := r.CreateDocument(lib.ID, "doc1", "", nil)
	require.NoError(t, err)
	_, err = r.CreateChunk(lib.ID, doc.ID, "hello", []float32{1, 2}, nil)
	require.NoError(t, err)
	// CreateChunk rejects empty embeddings, so place one directly in the record.
	r.libraries[lib.ID].chunks["bare"] = &model.Chunk{ID: "bare", DocumentID: doc.ID, LibraryID: lib.ID}

	vectors, ids, err := r.VectorSnapshot(lib.ID)
	require.NoError(t, err)
	assert.Len(t, vectors, 1)
	assert.Len(t, ids, 1)
}

func TestSnapshotAndRestoreRoundTrip(t *testing.T) {
	r := New()
	lib, err := r.CreateLibrary("docs", "desc", model.Metadata{"k": "v"})
	require.NoError(t, err)
	doc, err := r.CreateDocument(lib.ID, "doc1", "", nil)
	require.NoError(t, err)
	_, err = r.CreateChunk(lib.ID, doc.ID, "hello", []float32{1, 2, 3}, model.Metadata{"tag": "a"})
	require.NoError(t, err)

	dump := r.Snapshot()
	require.Len(t, dump, 1)

	r2 := New()
	require.NoError(t, r2.Restore(dump))

	got, err := r2.GetLibrary(lib.ID)
	require.NoError(t, err)
	assert.Equal(t, lib.Name, got.Name)

	chunks, err := r2.ListChunks(lib.ID, "")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello", chunks[0].Text)
}

func TestRestoreRejectsInconsistentDimensions(t *testing.T) {
	r := New()
	bad := []LibrarySnapshot{
		{
			Library: model.Library{ID: "L1", Name: "bad"},
			Documents: []DocumentSnapshot{
				{
					Document: model.Document{ID: "D1", LibraryID: "L1"},
					Chunks: []model.Chunk{
						{ID: "C1", DocumentID: "D1", LibraryID: "L1", Embedding: []float32{1, 2}},
						{ID: "C2", DocumentID: "D1", LibraryID: "L1", Embedding: []float32{1, 2, 3}},
					},
				},
			},
		},
	}
	err := r.Restore(bad)
	assert.Equal(t, errs.SnapshotCorrupt, errs.KindOf(err))
}
