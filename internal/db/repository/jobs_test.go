package repository

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement-worker/internal/db"
	"statement-worker/internal/domain"
)

func TestJobRepo_CreateAndGet(t *testing.T) {
	t.Parallel()

	writeDB, readDB := db.OpenTestLedger(t)
	repo := NewJobRepo(writeDB, readDB)

	created, err := repo.CreateJob(context.Background(), &domain.Job{
		SQLText:     "SELECT 1",
		SubmittedBy: "alice",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.Handle)
	assert.Equal(t, domain.JobStatusQueued, created.Status)
	assert.Equal(t, "SELECT 1", created.SQLText)
	assert.Nil(t, created.Error)
	assert.Nil(t, created.StartedAt)
}

func TestJobRepo_GetUnknownHandle(t *testing.T) {
	t.Parallel()

	writeDB, readDB := db.OpenTestLedger(t)
	repo := NewJobRepo(writeDB, readDB)

	_, err := repo.GetJob(context.Background(), "no-such-handle")
	require.Error(t, err)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestJobRepo_UpdateMergesOnlySuppliedFields(t *testing.T) {
	t.Parallel()

	writeDB, readDB := db.OpenTestLedger(t)
	repo := NewJobRepo(writeDB, readDB)

	created, err := repo.CreateJob(context.Background(), &domain.Job{
		SQLText:     "SELECT 42",
		SubmittedBy: "bob",
	})
	require.NoError(t, err)

	started := time.Now().UTC().Truncate(time.Second)
	executing := domain.JobStatusExecuting
	err = repo.UpdateJob(context.Background(), created.Handle, domain.JobUpdate{
		Status:    &executing,
		StartedAt: &started,
	})
	require.NoError(t, err)

	loaded, err := repo.GetJob(context.Background(), created.Handle)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusExecuting, loaded.Status)
	require.NotNil(t, loaded.StartedAt)
	// Fields not in the update are untouched.
	assert.Equal(t, "SELECT 42", loaded.SQLText)
	assert.Equal(t, "bob", loaded.SubmittedBy)
	assert.Nil(t, loaded.Error)

	totalRows := int64(25_000)
	sizeEstimate := int64(1 << 20)
	manifestPath := "results/" + created.Handle + "/manifest.json"
	completed := domain.JobStatusCompleted
	err = repo.UpdateJob(context.Background(), created.Handle, domain.JobUpdate{
		Status:             &completed,
		TotalRows:          &totalRows,
		TotalSizeEstimate:  &sizeEstimate,
		ResultManifestPath: &manifestPath,
		Columns:            []domain.Column{{Name: "id", Type: "int64"}},
		Telemetry:          map[string]any{"rows_read": float64(25_000)},
	})
	require.NoError(t, err)

	loaded, err = repo.GetJob(context.Background(), created.Handle)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, loaded.Status)
	assert.Equal(t, int64(25_000), loaded.TotalRows)
	assert.Equal(t, manifestPath, loaded.ResultManifestPath)
	require.Len(t, loaded.Columns, 1)
	assert.Equal(t, "id", loaded.Columns[0].Name)
	assert.Equal(t, float64(25_000), loaded.Telemetry["rows_read"])
	// StartedAt from the earlier update is preserved.
	require.NotNil(t, loaded.StartedAt)
}

func TestJobRepo_UpdateFailed(t *testing.T) {
	t.Parallel()

	writeDB, readDB := db.OpenTestLedger(t)
	repo := NewJobRepo(writeDB, readDB)

	created, err := repo.CreateJob(context.Background(), &domain.Job{SQLText: "SELECT 1"})
	require.NoError(t, err)

	err = repo.UpdateJob(context.Background(), created.Handle,
		domain.FailureUpdate("engine exploded", time.Now().UTC()))
	require.NoError(t, err)

	loaded, err := repo.GetJob(context.Background(), created.Handle)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, loaded.Status)
	require.NotNil(t, loaded.Error)
	assert.Equal(t, "engine exploded", *loaded.Error)
	require.NotNil(t, loaded.FinishedAt)
}

func TestJobRepo_UpdateUnknownHandle(t *testing.T) {
	t.Parallel()

	writeDB, readDB := db.OpenTestLedger(t)
	repo := NewJobRepo(writeDB, readDB)

	err := repo.UpdateJob(context.Background(), "missing", domain.StatusUpdate(domain.JobStatusExecuting))
	require.Error(t, err)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestJobRepo_ReadsGoThroughReadPool(t *testing.T) {
	t.Parallel()

	writeDB, readDB := db.OpenTestLedger(t)
	repo := NewJobRepo(writeDB, readDB)

	created, err := repo.CreateJob(context.Background(), &domain.Job{SQLText: "SELECT 1"})
	require.NoError(t, err)

	// A repo whose read pool points at a different ledger file must not see
	// the job: GetJob and ListJobs never touch the write pool.
	_, otherRead := db.OpenTestLedger(t)
	crossed := NewJobRepo(writeDB, otherRead)

	_, err = crossed.GetJob(context.Background(), created.Handle)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)

	jobs, err := crossed.ListJobs(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	// The properly paired repo still sees it.
	loaded, err := repo.GetJob(context.Background(), created.Handle)
	require.NoError(t, err)
	assert.Equal(t, created.Handle, loaded.Handle)
}

func TestJobRepo_ListJobs(t *testing.T) {
	t.Parallel()

	writeDB, readDB := db.OpenTestLedger(t)
	repo := NewJobRepo(writeDB, readDB)

	for i := 0; i < 3; i++ {
		_, err := repo.CreateJob(context.Background(), &domain.Job{SQLText: "SELECT 1"})
		require.NoError(t, err)
	}

	jobs, err := repo.ListJobs(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	jobs, err = repo.ListJobs(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
}
