// Package cleanup removes expired downloads together with their files.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/exercise-api/internal/clock"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/metrics"
	"github.com/phrazzld/exercise-api/internal/platform/blob"
	"github.com/phrazzld/exercise-api/internal/platform/logger"
	"github.com/phrazzld/exercise-api/internal/store"
)

// Result summarises one sweep.
type Result struct {
	FilesDeleted   int `json:"files_deleted"`
	RecordsDeleted int `json:"records_deleted"`
	Failures       int `json:"failures"`
}

// Sweeper deletes every download whose expiry has passed, whatever its status.
// Sweeps are serialised; running one twice in a row is harmless.
type Sweeper struct {
	downloads store.DownloadStore
	blobs     blob.Store
	clock     clock.Clock
	logger    *slog.Logger

	mu sync.Mutex
}

// NewSweeper creates a Sweeper.
func NewSweeper(downloads store.DownloadStore, blobs blob.Store, clk clock.Clock, logger *slog.Logger) *Sweeper {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		downloads: downloads,
		blobs:     blobs,
		clock:     clk,
		logger:    logger.With("component", "cleanup_sweeper"),
	}
}

// Sweep deletes the file and then the record of each expired download.
// Per-download failures are logged and counted but do not stop the sweep;
// only a failure to list expired downloads is returned.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.clock.Now()

	expired, err := s.downloads.ListExpired(ctx, now)
	if err != nil {
		log.Error("failed to list expired downloads", "error", err)
		return Result{}, fmt.Errorf("%w: list expired downloads: %w", domain.ErrStorageFailure, err)
	}

	var res Result
	for _, d := range expired {
		if err := ctx.Err(); err != nil {
			log.Warn("sweep interrupted", "error", err, "remaining", len(expired)-res.RecordsDeleted-res.Failures)
			break
		}
		s.sweepOne(ctx, log, d, &res)
	}

	metrics.ObserveSweep(res.FilesDeleted, res.RecordsDeleted, res.Failures)
	if len(expired) > 0 {
		log.Info("cleanup sweep finished",
			"expired", len(expired),
			"files_deleted", res.FilesDeleted,
			"records_deleted", res.RecordsDeleted,
			"failures", res.Failures)
	}
	return res, nil
}

func (s *Sweeper) sweepOne(ctx context.Context, log *slog.Logger, d *domain.Download, res *Result) {
	for attempt := 0; ; attempt++ {
		if !s.deleteFile(ctx, log, d, res) {
			return
		}

		deleted, err := s.downloads.DeleteIfBlob(ctx, d.ID, d.BlobRef)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return
		case err != nil:
			log.Error("failed to delete expired download record",
				"error", err,
				"download_id", d.ID)
			res.Failures++
			return
		case deleted:
			res.RecordsDeleted++
			return
		}

		// An export completed after the listing; its file must go first.
		if attempt > 0 {
			log.Error("expired download keeps changing during sweep", "download_id", d.ID)
			res.Failures++
			return
		}
		fresh, err := s.downloads.GetByID(ctx, d.ID)
		if errors.Is(err, store.ErrNotFound) {
			return
		}
		if err != nil {
			log.Error("failed to reload expired download", "error", err, "download_id", d.ID)
			res.Failures++
			return
		}
		log.Debug("expired download gained a file during sweep",
			"download_id", d.ID,
			"blob_ref", fresh.BlobRef)
		d = fresh
	}
}

// deleteFile removes the blob of d, if any. It reports false when the blob
// could not be deleted and the record must be kept.
func (s *Sweeper) deleteFile(ctx context.Context, log *slog.Logger, d *domain.Download, res *Result) bool {
	if d.BlobRef == "" {
		return true
	}
	err := s.blobs.Delete(ctx, d.BlobRef)
	switch {
	case err == nil:
		res.FilesDeleted++
	case errors.Is(err, blob.ErrNotFound):
		// already gone
	default:
		// The record is kept so the next sweep retries the file.
		log.Error("failed to delete expired export file",
			"error", err,
			"download_id", d.ID,
			"blob_ref", d.BlobRef)
		res.Failures++
		return false
	}
	return true
}
