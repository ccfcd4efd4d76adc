package task

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/clock"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/export"
	"github.com/phrazzld/exercise-api/internal/metrics"
	"github.com/phrazzld/exercise-api/internal/platform/blob"
	"github.com/phrazzld/exercise-api/internal/store"
)

// ExportTask renders a completed generation into a stored download file.
type ExportTask struct {
	downloadID  uuid.UUID
	downloads   store.DownloadStore
	generations store.GenerationStore
	renderers   *export.Registry
	blobs       blob.Store
	clock       clock.Clock
	timeout     time.Duration
	logger      *slog.Logger
}

// NewExportTask creates a task for the download with downloadID.
func NewExportTask(
	downloadID uuid.UUID,
	downloads store.DownloadStore,
	generations store.GenerationStore,
	renderers *export.Registry,
	blobs blob.Store,
	clk clock.Clock,
	timeout time.Duration,
	logger *slog.Logger,
) (*ExportTask, error) {
	if downloadID == uuid.Nil {
		return nil, ErrEmptyJobID
	}
	if downloads == nil || generations == nil || renderers == nil || blobs == nil || clk == nil || logger == nil {
		return nil, ErrMissingDependency
	}
	return &ExportTask{
		downloadID:  downloadID,
		downloads:   downloads,
		generations: generations,
		renderers:   renderers,
		blobs:       blobs,
		clock:       clk,
		timeout:     timeout,
		logger:      logger.With("task_type", TaskTypeExport, "download_id", downloadID),
	}, nil
}

// ID returns the download ID.
func (t *ExportTask) ID() uuid.UUID { return t.downloadID }

// Type returns TaskTypeExport.
func (t *ExportTask) Type() string { return TaskTypeExport }

// BlobKey is the storage key of a download's file.
func BlobKey(d *domain.Download, ext string) string {
	return fmt.Sprintf("downloads/%s/%s.%s", d.OwnerID, d.ID, ext)
}

// Execute claims the download, renders the generation and stores the file.
// Nothing is left in blob storage when the download ends failed.
func (t *ExportTask) Execute(ctx context.Context) error {
	claimed, err := t.downloads.Claim(ctx, t.downloadID, t.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to claim download: %w", err)
	}
	if !claimed {
		t.logger.Debug("download already claimed or finished, skipping")
		return nil
	}

	d, err := t.downloads.GetByID(ctx, t.downloadID)
	if err != nil {
		return t.fail(ctx, "download record unavailable", fmt.Errorf("%w: %v", domain.ErrStorageFailure, err))
	}
	if d.IsExpired(t.clock.Now()) {
		return t.fail(ctx, "download expired before export started", fmt.Errorf("%w: download expired at %s", domain.ErrExpired, d.ExpiresAt))
	}

	job, err := t.generations.GetByID(ctx, d.GenerationID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return t.fail(ctx, "generation no longer exists", fmt.Errorf("%w: generation %s", domain.ErrDependencyMissing, d.GenerationID))
	case err != nil:
		return t.fail(ctx, "generation record unavailable", fmt.Errorf("%w: %v", domain.ErrStorageFailure, err))
	case job.Status != domain.JobStatusCompleted:
		return t.fail(ctx, "generation is not completed", fmt.Errorf("%w: generation is %s", domain.ErrPreconditionFailed, job.Status))
	}

	exercises, err := t.generations.GetExercises(ctx, job.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return t.fail(ctx, "generation no longer exists", fmt.Errorf("%w: %v", domain.ErrDependencyMissing, err))
		}
		return t.fail(ctx, "failed to load exercises", fmt.Errorf("%w: %v", domain.ErrStorageFailure, err))
	}

	renderer, err := t.renderers.Get(d.Format)
	if err != nil {
		return t.fail(ctx, "unsupported export format", fmt.Errorf("%w: %v", domain.ErrCapabilityFailure, err))
	}

	workCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		workCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	doc := export.NewDocument(job, exercises, d.ExportOptions, t.clock.Now())
	var buf bytes.Buffer
	if err := renderer.Render(workCtx, doc, &buf); err != nil {
		return t.fail(ctx, renderFailureReason(err), fmt.Errorf("%w: %w", domain.ErrCapabilityFailure, err))
	}

	key := BlobKey(d, renderer.Extension())
	size, err := t.blobs.Put(workCtx, key, &buf, renderer.ContentType())
	if err != nil {
		t.discardBlob(ctx, key)
		return t.fail(ctx, "failed to store export file", fmt.Errorf("%w: %v", domain.ErrStorageFailure, err))
	}

	file := domain.FileInfo{
		FileName:    export.FileName(doc, renderer),
		SizeBytes:   size,
		BlobRef:     key,
		ContentType: renderer.ContentType(),
	}
	if err := t.downloads.Complete(ctx, d.ID, file, t.clock.Now()); err != nil {
		t.discardBlob(ctx, key)
		return t.fail(ctx, "failed to record export file", fmt.Errorf("%w: %v", domain.ErrStorageFailure, err))
	}

	metrics.IncJobFinished(metrics.KindExport, string(domain.JobStatusCompleted))
	metrics.ObserveExportSize(string(d.Format), size)
	t.logger.Info("export completed", "format", d.Format, "size_bytes", size, "blob_ref", key)
	return nil
}

// discardBlob removes a blob written for a download that is about to fail.
func (t *ExportTask) discardBlob(ctx context.Context, key string) {
	err := t.blobs.Delete(context.WithoutCancel(ctx), key)
	if err != nil && !errors.Is(err, blob.ErrNotFound) {
		t.logger.Error("failed to remove export file of failed download", "error", err, "blob_ref", key)
	}
}

func (t *ExportTask) fail(ctx context.Context, reason string, cause error) error {
	if err := t.downloads.Fail(context.WithoutCancel(ctx), t.downloadID, reason, t.clock.Now()); err != nil {
		t.logger.Error("failed to mark download failed", "error", err, "reason", reason)
	} else {
		metrics.IncJobFinished(metrics.KindExport, string(domain.JobStatusFailed))
	}
	t.logger.Warn("export failed", "reason", reason, "error", cause)
	return cause
}

func renderFailureReason(err error) string {
	switch {
	case errors.Is(err, export.ErrFontRequired):
		return "pdf export of this content requires a configured UTF-8 font"
	case errors.Is(err, context.DeadlineExceeded):
		return "rendering timed out"
	case errors.Is(err, context.Canceled):
		return "export was cancelled"
	default:
		return "failed to render export file"
	}
}
