package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doganarif/vectordb/errs"
	"github.com/doganarif/vectordb/model"
	"github.com/doganarif/vectordb/registry"
	"github.com/doganarif/vectordb/repository"
)

func newTestService(t *testing.T) (*Service, *repository.Repository, *registry.Registry) {
	t.Helper()
	repo := repository.New()
	reg := registry.New(repo)
	repo.OnInvalidate(reg.Invalidate)
	svc, err := New(t.TempDir(), repo, reg)
	require.NoError(t, err)
	return svc, repo, reg
}

func seedLibrary(t *testing.T, repo *repository.Repository, reg *registry.Registry) string {
	t.Helper()
	lib, err := repo.CreateLibrary("docs", "desc", model.Metadata{"k": "v"})
	require.NoError(t, err)
	doc, err := repo.CreateDocument(lib.ID, "doc1", "", nil)
	require.NoError(t, err)
	_, err = repo.CreateChunk(lib.ID, doc.ID, "hello world", []float32{1, 0, 0}, model.Metadata{"tag": "a"})
	require.NoError(t, err)
	reg.Configure(lib.ID, model.IndexConfig{Algorithm: model.Linear, Metric: model.Cosine})
	return lib.ID
}

func TestCreateThenRestoreRoundTrip(t *testing.T) {
	svc, repo, reg := newTestService(t)
	libID := seedLibrary(t, repo, reg)

	header, err := svc.Create("nightly")
	require.NoError(t, err)
	assert.Equal(t, "nightly", header.Name)
	assert.Greater(t, header.SizeBytes, int64(0))

	// Mutate state after the snapshot so restore has something to undo.
	_, err = repo.CreateLibrary("extra", "", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Restore(header.ID))

	libs, err := repo.ListLibraries()
	require.NoError(t, err)
	require.Len(t, libs, 1)
	assert.Equal(t, libID, libs[0].ID)

	desc := reg.Describe(libID)
	assert.True(t, desc.Built, "restore should eagerly rebuild a library's configured index")
	assert.Equal(t, model.Linear, desc.Algorithm)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	svc, repo, reg := newTestService(t)
	seedLibrary(t, repo, reg)

	_, err := svc.Create("nightly")
	require.NoError(t, err)
	_, err = svc.Create("nightly")
	assert.Equal(t, errs.AlreadyExists, errs.KindOf(err))
}

func TestListOrdersByCreationTime(t *testing.T) {
	svc, repo, reg := newTestService(t)
	seedLibrary(t, repo, reg)

	_, err := svc.Create("first")
	require.NoError(t, err)
	_, err = svc.Create("second")
	require.NoError(t, err)

	headers, err := svc.List()
	require.NoError(t, err)
	require.Len(t, headers, 2)
	assert.Equal(t, "first", headers[0].Name)
	assert.Equal(t, "second", headers[1].Name)
}

func TestRestoreUnknownIDFails(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.Restore("does-not-exist")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestRestoreLeavesStateIntactOnMalformedFile(t *testing.T) {
	svc, repo, reg := newTestService(t)
	libID := seedLibrary(t, repo, reg)

	// Corrupt snapshot content written directly to the data directory.
	badPath := svc.path("broken")
	require.NoError(t, writeAtomic(badPath, []byte("{not json")))

	err := svc.Restore("broken")
	assert.Equal(t, errs.SnapshotCorrupt, errs.KindOf(err))

	// Original state must still be present.
	_, err = repo.GetLibrary(libID)
	assert.NoError(t, err)
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc, repo, reg := newTestService(t)
	seedLibrary(t, repo, reg)

	header, err := svc.Create("once")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(header.ID))
	require.NoError(t, svc.Delete(header.ID)) // missing is not an error
}
