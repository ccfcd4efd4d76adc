package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/clock"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/events"
	"github.com/phrazzld/exercise-api/internal/metrics"
	"github.com/phrazzld/exercise-api/internal/platform/blob"
	"github.com/phrazzld/exercise-api/internal/platform/logger"
	"github.com/phrazzld/exercise-api/internal/store"
	"github.com/phrazzld/exercise-api/internal/task"
)

// ExportService provides download operations. Like GenerationService, every
// operation is scoped to ownerID.
type ExportService interface {
	// SubmitExport stores a pending download of a completed generation and
	// schedules rendering. Returns ErrGenerationNotReady before scheduling
	// anything if the generation is not completed.
	SubmitExport(ctx context.Context, ownerID, generationID uuid.UUID, opts domain.ExportOptions) (*domain.Download, error)

	// GetDownload returns the download record, expired or not.
	GetDownload(ctx context.Context, ownerID, id uuid.UUID) (*domain.Download, error)

	// OpenDownload returns a completed, unexpired download and a reader for
	// its file. The caller must close the reader.
	OpenDownload(ctx context.Context, ownerID, id uuid.UUID) (*domain.Download, io.ReadCloser, error)
}

type exportServiceImpl struct {
	generations  store.GenerationStore
	downloads    store.DownloadStore
	blobs        blob.Store
	eventEmitter events.EventEmitter
	clock        clock.Clock
	ttl          time.Duration
	logger       *slog.Logger
}

var _ ExportService = (*exportServiceImpl)(nil)

// NewExportService creates a new ExportService whose downloads live for ttl.
func NewExportService(
	generations store.GenerationStore,
	downloads store.DownloadStore,
	blobs blob.Store,
	eventEmitter events.EventEmitter,
	clk clock.Clock,
	ttl time.Duration,
	logger *slog.Logger,
) (ExportService, error) {
	if generations == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "generation store cannot be nil"}
	}
	if downloads == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "download store cannot be nil"}
	}
	if blobs == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "blob store cannot be nil"}
	}
	if eventEmitter == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "eventEmitter cannot be nil"}
	}
	if clk == nil {
		clk = clock.System{}
	}
	if ttl <= 0 {
		ttl = domain.DefaultDownloadTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &exportServiceImpl{
		generations:  generations,
		downloads:    downloads,
		blobs:        blobs,
		eventEmitter: eventEmitter,
		clock:        clk,
		ttl:          ttl,
		logger:       logger.With("component", "export_service"),
	}, nil
}

// SubmitExport creates a pending download and emits an event for rendering.
func (s *exportServiceImpl) SubmitExport(
	ctx context.Context,
	ownerID, generationID uuid.UUID,
	opts domain.ExportOptions,
) (*domain.Download, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	job, err := s.generations.GetByID(ctx, generationID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error("failed to load generation for export", "error", err, "generation_id", generationID)
		}
		return nil, NewServiceError("submit_export", "failed to load generation", err)
	}
	if !job.OwnedBy(ownerID) {
		return nil, ErrGenerationNotFound
	}
	if job.Status != domain.JobStatusCompleted {
		log.Debug("rejected export of unfinished generation",
			"generation_id", generationID,
			"status", job.Status)
		return nil, ErrGenerationNotReady
	}

	d, err := domain.NewDownload(ownerID, generationID, opts, s.clock.Now(), s.ttl)
	if err != nil {
		return nil, err
	}
	if err := s.downloads.Create(ctx, d); err != nil {
		log.Error("failed to save download",
			"error", err,
			"download_id", d.ID,
			"generation_id", generationID)
		return nil, NewServiceError("submit_export", "failed to save download", err)
	}
	metrics.IncJobSubmitted(metrics.KindExport)

	log.Info("download created with pending status",
		"download_id", d.ID,
		"generation_id", generationID,
		"format", d.Format,
		"expires_at", d.ExpiresAt)

	schedule(ctx, log, s.eventEmitter, task.TaskTypeExport, d.ID)
	return d, nil
}

// GetDownload retrieves a download owned by ownerID.
func (s *exportServiceImpl) GetDownload(ctx context.Context, ownerID, id uuid.UUID) (*domain.Download, error) {
	d, err := s.downloads.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to retrieve download",
				"error", err,
				"download_id", id)
		}
		return nil, NewServiceError("get_download", "failed to retrieve download", err)
	}
	if !d.OwnedBy(ownerID) {
		return nil, ErrDownloadNotFound
	}
	return d, nil
}

// OpenDownload returns the record and file of a ready download.
func (s *exportServiceImpl) OpenDownload(
	ctx context.Context,
	ownerID, id uuid.UUID,
) (*domain.Download, io.ReadCloser, error) {
	d, err := s.GetDownload(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	if d.IsExpired(s.clock.Now()) {
		return nil, nil, ErrDownloadExpired
	}
	switch d.Status {
	case domain.JobStatusCompleted:
	case domain.JobStatusFailed:
		return nil, nil, ErrDownloadFailed
	default:
		return nil, nil, ErrDownloadNotReady
	}

	rc, err := s.blobs.Open(ctx, d.BlobRef)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			// Swept between the record read and the open.
			return nil, nil, ErrDownloadNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to open export file",
			"error", err,
			"download_id", id)
		return nil, nil, NewServiceError("open_download", "failed to open export file",
			errors.Join(domain.ErrStorageFailure, err))
	}
	return d, rc, nil
}
