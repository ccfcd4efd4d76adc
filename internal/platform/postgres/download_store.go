package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/platform/logger"
	"github.com/phrazzld/exercise-api/internal/store"
)

const downloadColumns = `
	id, generation_id, owner_id, format, include_answers, include_analysis,
	paper_size, header_text, status, error_message, file_name, file_size_bytes,
	blob_ref, content_type, created_at, updated_at, completed_at, expires_at`

// PostgresDownloadStore implements the store.DownloadStore interface
// using a PostgreSQL database as the storage backend.
type PostgresDownloadStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDownloadStore creates a new PostgreSQL implementation of the DownloadStore interface.
func NewPostgresDownloadStore(db store.DBTX, logger *slog.Logger) *PostgresDownloadStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDownloadStore{
		db:     db,
		logger: logger.With(slog.String("component", "download_store")),
	}
}

// Ensure PostgresDownloadStore implements store.DownloadStore interface
var _ store.DownloadStore = (*PostgresDownloadStore)(nil)

// Create implements store.DownloadStore.Create
func (s *PostgresDownloadStore) Create(ctx context.Context, d *domain.Download) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO downloads (`+downloadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`,
		d.ID, d.GenerationID, d.OwnerID, d.Format, d.IncludeAnswers, d.IncludeAnalysis,
		d.PaperSize, d.HeaderText, d.Status, d.ErrorMessage, d.FileName, d.FileSizeBytes,
		d.BlobRef, d.ContentType, d.CreatedAt, d.UpdatedAt, d.CompletedAt, d.ExpiresAt,
	)
	if err != nil {
		log.Error("failed to create download",
			slog.String("error", err.Error()),
			slog.String("download_id", d.ID.String()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.DownloadStore.GetByID
func (s *PostgresDownloadStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Download, error) {
	d, err := scanDownload(s.db.QueryRowContext(ctx,
		`SELECT `+downloadColumns+` FROM downloads WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrDownloadNotFound
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get download by ID",
			slog.String("error", err.Error()),
			slog.String("download_id", id.String()))
		return nil, MapError(err)
	}
	return d, nil
}

// Claim implements store.DownloadStore.Claim
func (s *PostgresDownloadStore) Claim(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE downloads SET status = 'processing', updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`, id, at.UTC())
	if err != nil {
		return false, MapError(err)
	}
	if err := CheckRowsAffected(result, nil); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return false, err
		}
		if _, err := s.currentStatus(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// Complete implements store.DownloadStore.Complete
func (s *PostgresDownloadStore) Complete(ctx context.Context, id uuid.UUID, file domain.FileInfo, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE downloads
		SET status = 'completed', error_message = '', file_name = $2, file_size_bytes = $3,
		    blob_ref = $4, content_type = $5, completed_at = $6, updated_at = $6
		WHERE id = $1 AND status = 'processing'
	`, id, file.FileName, file.SizeBytes, file.BlobRef, file.ContentType, at.UTC())
	if err != nil {
		return MapError(err)
	}
	return s.transitionResult(ctx, result, id, "complete")
}

// Fail implements store.DownloadStore.Fail
func (s *PostgresDownloadStore) Fail(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE downloads SET status = 'failed', error_message = $2, updated_at = $3
		WHERE id = $1 AND status IN ('pending', 'processing')
	`, id, reason, at.UTC())
	if err != nil {
		return MapError(err)
	}
	return s.transitionResult(ctx, result, id, "fail")
}

// ListExpired implements store.DownloadStore.ListExpired
func (s *PostgresDownloadStore) ListExpired(ctx context.Context, now time.Time) ([]*domain.Download, error) {
	return s.queryDownloads(ctx, `SELECT `+downloadColumns+` FROM downloads
		WHERE expires_at <= $1 ORDER BY expires_at ASC`, now.UTC())
}

// DeleteIfBlob implements store.DownloadStore.DeleteIfBlob
func (s *PostgresDownloadStore) DeleteIfBlob(ctx context.Context, id uuid.UUID, blobRef string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM downloads WHERE id = $1 AND blob_ref = $2`, id, blobRef)
	if err != nil {
		return false, MapError(err)
	}
	if err := CheckRowsAffected(result, nil); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return false, err
		}
		if _, err := s.currentStatus(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// FindByStatus implements store.DownloadStore.FindByStatus
func (s *PostgresDownloadStore) FindByStatus(ctx context.Context, status domain.JobStatus, olderThan time.Time) ([]*domain.Download, error) {
	if olderThan.IsZero() {
		return s.queryDownloads(ctx, `SELECT `+downloadColumns+` FROM downloads
			WHERE status = $1 ORDER BY created_at ASC`, status)
	}
	return s.queryDownloads(ctx, `SELECT `+downloadColumns+` FROM downloads
		WHERE status = $1 AND updated_at < $2 ORDER BY created_at ASC`, status, olderThan.UTC())
}

// CountByOwner implements store.DownloadStore.CountByOwner
func (s *PostgresDownloadStore) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM downloads WHERE owner_id = $1`, ownerID).Scan(&n)
	if err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

func (s *PostgresDownloadStore) queryDownloads(ctx context.Context, query string, args ...any) ([]*domain.Download, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	downloads := []*domain.Download{}
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan download row: %w", err)
		}
		downloads = append(downloads, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating download rows: %w", err)
	}
	return downloads, nil
}

func (s *PostgresDownloadStore) currentStatus(ctx context.Context, id uuid.UUID) (domain.JobStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM downloads WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrDownloadNotFound
	}
	if err != nil {
		return "", MapError(err)
	}
	return domain.JobStatus(status), nil
}

func (s *PostgresDownloadStore) transitionResult(ctx context.Context, result sql.Result, id uuid.UUID, op string) error {
	err := CheckRowsAffected(result, nil)
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return err
	}
	status, err := s.currentStatus(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s on %s download", store.ErrInvalidTransition, op, status)
}

func scanDownload(row rowScanner) (*domain.Download, error) {
	var d domain.Download
	var format, paper, status string
	var completedAt sql.NullTime

	if err := row.Scan(
		&d.ID, &d.GenerationID, &d.OwnerID, &format, &d.IncludeAnswers, &d.IncludeAnalysis,
		&paper, &d.HeaderText, &status, &d.ErrorMessage, &d.FileName, &d.FileSizeBytes,
		&d.BlobRef, &d.ContentType, &d.CreatedAt, &d.UpdatedAt, &completedAt, &d.ExpiresAt,
	); err != nil {
		return nil, err
	}

	d.Format = domain.ExportFormat(format)
	d.PaperSize = domain.PaperSize(paper)
	d.Status = domain.JobStatus(status)
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		d.CompletedAt = &t
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	d.ExpiresAt = d.ExpiresAt.UTC()
	return &d, nil
}
