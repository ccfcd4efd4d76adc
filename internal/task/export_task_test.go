package task

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/export"
	"github.com/phrazzld/exercise-api/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedGeneration(t *testing.T, f *fixture, count int) *domain.GenerationJob {
	t.Helper()
	job := testutils.MustCreateGenerationJob(t, f.owner, f.clock.Now(), testutils.WithCount(count))
	return testutils.MustInsertCompletedGeneration(context.Background(), t, f.generations, job, f.clock.Now())
}

func TestExportTask_Success(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	job := completedGeneration(t, f, 3)
	d := f.pendingDownload(t, job.ID, domain.ExportFormatText)

	require.NoError(t, f.exportTask(t, d.ID).Execute(ctx))

	stored, err := f.downloads.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, stored.Status)
	assert.Equal(t, BlobKey(d, "mock"), stored.BlobRef)
	assert.Equal(t, int64(len(job.Title)), stored.FileSizeBytes)
	assert.True(t, strings.HasSuffix(stored.FileName, ".mock"))
	assert.Equal(t, "application/octet-stream", stored.ContentType)
	assert.Equal(t, d.ExpiresAt, stored.ExpiresAt, "expiry is fixed at creation")

	rc, err := f.blobs.Open(ctx, stored.BlobRef)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	_ = rc.Close()
	assert.Equal(t, job.Title, string(data))

	require.Len(t, f.renderer.Documents, 1)
	assert.Len(t, f.renderer.Documents[0].Exercises, 3)
	assert.True(t, f.renderer.Documents[0].Options.IncludeAnswers)
}

func TestExportTask_TextRendererEndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	job := completedGeneration(t, f, 2)
	d := f.pendingDownload(t, job.ID, domain.ExportFormatText)

	task, err := NewExportTask(d.ID, f.downloads, f.generations, export.NewDefaultRegistry(""), f.blobs, f.clock, time.Second, testutils.DiscardLogger())
	require.NoError(t, err)
	require.NoError(t, task.Execute(ctx))

	stored, err := f.downloads.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", stored.ContentType)
	assert.Equal(t, "三年级数学练习_20250310_090000.txt", stored.FileName)

	rc, err := f.blobs.Open(ctx, stored.BlobRef)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Contains(t, string(data), "1. 2 + 2 = ?")
	assert.Contains(t, string(data), "参考答案")
}

func TestExportTask_Failures(t *testing.T) {
	t.Parallel()

	t.Run("generation not completed", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		f := newFixture(t)
		job := f.pendingGeneration(t, 2)
		d := f.pendingDownload(t, job.ID, domain.ExportFormatText)

		err := f.exportTask(t, d.ID).Execute(ctx)
		assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
		assertDownloadFailed(t, f, d.ID, "generation is not completed")
		assert.Zero(t, f.renderer.Calls())
		assert.Zero(t, f.blobs.Len())
	})

	t.Run("download expired while pending", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		f := newFixture(t)
		job := completedGeneration(t, f, 2)
		d := f.pendingDownload(t, job.ID, domain.ExportFormatText)
		f.clock.Advance(time.Hour)

		err := f.exportTask(t, d.ID).Execute(ctx)
		assert.ErrorIs(t, err, domain.ErrExpired)
		assertDownloadFailed(t, f, d.ID, "download expired before export started")
		assert.Zero(t, f.renderer.Calls())
		assert.Zero(t, f.blobs.Len())
	})

	t.Run("generation vanished", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		f := newFixture(t)
		d := f.pendingDownload(t, uuid.New(), domain.ExportFormatText)

		err := f.exportTask(t, d.ID).Execute(ctx)
		assert.ErrorIs(t, err, domain.ErrDependencyMissing)
		assertDownloadFailed(t, f, d.ID, "generation no longer exists")
	})

	t.Run("render failure writes nothing", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		f := newFixture(t)
		f.renderer.RenderFn = func(context.Context, export.Document, io.Writer) error {
			return export.ErrFontRequired
		}
		job := completedGeneration(t, f, 2)
		d := f.pendingDownload(t, job.ID, domain.ExportFormatText)

		err := f.exportTask(t, d.ID).Execute(ctx)
		assert.ErrorIs(t, err, domain.ErrCapabilityFailure)
		assertDownloadFailed(t, f, d.ID, "pdf export of this content requires a configured UTF-8 font")
		assert.Empty(t, f.blobs.PutKeys)
	})

	t.Run("blob failure removes partial file", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		f := newFixture(t)
		f.blobs.PutFn = func(context.Context, string, io.Reader, string) (int64, error) {
			return 0, errors.New("bucket unavailable")
		}
		job := completedGeneration(t, f, 2)
		d := f.pendingDownload(t, job.ID, domain.ExportFormatText)

		err := f.exportTask(t, d.ID).Execute(ctx)
		assert.ErrorIs(t, err, domain.ErrStorageFailure)
		assertDownloadFailed(t, f, d.ID, "failed to store export file")
		assert.Equal(t, []string{BlobKey(d, "mock")}, f.blobs.Deleted())
	})

	t.Run("record failure after write deletes blob", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		f := newFixture(t)
		job := completedGeneration(t, f, 2)
		d := f.pendingDownload(t, job.ID, domain.ExportFormatText)

		f.blobs.PutFn = func(ctx context.Context, key string, r io.Reader, contentType string) (int64, error) {
			n, err := f.blobs.MemoryStore.Put(ctx, key, r, contentType)
			require.NoError(t, f.downloads.Fail(ctx, d.ID, "failed by monitor", f.clock.Now()))
			return n, err
		}

		err := f.exportTask(t, d.ID).Execute(ctx)
		assert.ErrorIs(t, err, domain.ErrStorageFailure)
		assertDownloadFailed(t, f, d.ID, "failed by monitor")
		assert.Zero(t, f.blobs.Len(), "no orphaned blob remains")
	})
}

func TestExportTask_ConcurrentClaimRendersOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	job := completedGeneration(t, f, 2)
	d := f.pendingDownload(t, job.ID, domain.ExportFormatText)

	tasks := make([]Task, 6)
	for i := range tasks {
		tasks[i] = f.exportTask(t, d.ID)
	}

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()
			assert.NoError(t, task.Execute(ctx))
		}(task)
	}
	wg.Wait()

	assert.Equal(t, 1, f.renderer.Calls())
	assert.Equal(t, 1, f.blobs.Len())
}

func assertDownloadFailed(t *testing.T, f *fixture, id uuid.UUID, reason string) {
	t.Helper()
	stored, err := f.downloads.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, stored.Status)
	assert.Equal(t, reason, stored.ErrorMessage)
	assert.Empty(t, stored.BlobRef)
}
