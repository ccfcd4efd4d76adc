package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/platform/logger"
	"github.com/phrazzld/exercise-api/internal/store"
)

const generationColumns = `
	g.id, g.owner_id, g.subject, g.grade, g.title, g.requested_count,
	g.difficulty_level, g.question_types, g.source_text, g.status,
	g.progress_percent, g.error_message, g.is_favorite,
	(SELECT COUNT(*) FROM exercises e WHERE e.generation_id = g.id),
	g.created_at, g.updated_at, g.started_at, g.completed_at,
	g.generation_duration_seconds`

// PostgresGenerationStore implements the store.GenerationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresGenerationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGenerationStore creates a new PostgreSQL implementation of the GenerationStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresGenerationStore(db store.DBTX, logger *slog.Logger) *PostgresGenerationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresGenerationStore{
		db:     db,
		logger: logger.With(slog.String("component", "generation_store")),
	}
}

// Ensure PostgresGenerationStore implements store.GenerationStore interface
var _ store.GenerationStore = (*PostgresGenerationStore)(nil)

// Create implements store.GenerationStore.Create
func (s *PostgresGenerationStore) Create(ctx context.Context, job *domain.GenerationJob) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := job.Validate(); err != nil {
		log.Warn("generation validation failed during create",
			slog.String("error", err.Error()),
			slog.String("generation_id", job.ID.String()))
		return err
	}

	questionTypes, err := json.Marshal(job.QuestionTypes)
	if err != nil {
		return fmt.Errorf("failed to encode question types: %w", err)
	}

	query := `
		INSERT INTO generations (
			id, owner_id, subject, grade, title, requested_count, difficulty_level,
			question_types, source_text, status, progress_percent, error_message,
			is_favorite, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = s.db.ExecContext(ctx, query,
		job.ID, job.OwnerID, job.Subject, job.Grade, job.Title, job.RequestedCount,
		job.DifficultyLevel, questionTypes, job.SourceText, job.Status,
		job.ProgressPercent, job.ErrorMessage, job.IsFavorite, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create generation",
			slog.String("error", err.Error()),
			slog.String("generation_id", job.ID.String()))
		return MapError(err)
	}

	log.Debug("generation created",
		slog.String("generation_id", job.ID.String()),
		slog.String("owner_id", job.OwnerID.String()))
	return nil
}

// GetByID implements store.GenerationStore.GetByID
func (s *PostgresGenerationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationJob, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + generationColumns + ` FROM generations g WHERE g.id = $1`
	job, err := scanGeneration(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrGenerationNotFound
		}
		log.Error("failed to get generation by ID",
			slog.String("error", err.Error()),
			slog.String("generation_id", id.String()))
		return nil, MapError(err)
	}
	return job, nil
}

// List implements store.GenerationStore.List
func (s *PostgresGenerationStore) List(ctx context.Context, filter store.GenerationFilter) (*store.GenerationPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := filter.Normalize(); err != nil {
		return nil, err
	}

	where, args := buildGenerationWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM generations g WHERE ` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Error("failed to count generations", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	query := fmt.Sprintf(`SELECT %s FROM generations g WHERE %s
		ORDER BY g.created_at DESC, g.id DESC
		LIMIT $%d OFFSET $%d`, generationColumns, where, len(args)+1, len(args)+2)
	jobs, err := s.queryGenerations(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		log.Error("failed to list generations", slog.String("error", err.Error()))
		return nil, err
	}

	return &store.GenerationPage{
		Jobs:    jobs,
		Total:   total,
		HasMore: filter.Offset+len(jobs) < total,
	}, nil
}

// buildGenerationWhere turns a normalized filter into a WHERE clause and its arguments.
func buildGenerationWhere(f store.GenerationFilter) (string, []any) {
	conds := []string{"g.owner_id = $1"}
	args := []any{f.OwnerID}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Subject != "" {
		add("g.subject = $%d", f.Subject)
	}
	if f.Grade != "" {
		add("g.grade = $%d", f.Grade)
	}
	if f.Status != "" {
		add("g.status = $%d", f.Status)
	}
	if f.DifficultyLevel != "" {
		add("g.difficulty_level = $%d", f.DifficultyLevel)
	}
	if f.IsFavorite != nil {
		add("g.is_favorite = $%d", *f.IsFavorite)
	}
	if f.CreatedFrom != nil {
		add("g.created_at >= $%d", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		add("g.created_at < $%d", *f.CreatedTo)
	}
	return strings.Join(conds, " AND "), args
}

// ListByOwner implements store.GenerationStore.ListByOwner
func (s *PostgresGenerationStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.GenerationJob, error) {
	query := `SELECT ` + generationColumns + ` FROM generations g
		WHERE g.owner_id = $1
		ORDER BY g.created_at DESC, g.id DESC`
	return s.queryGenerations(ctx, query, ownerID)
}

// Claim implements store.GenerationStore.Claim
func (s *PostgresGenerationStore) Claim(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE generations
		SET status = 'processing', started_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`, id, at.UTC())
	if err != nil {
		log.Error("failed to claim generation",
			slog.String("error", err.Error()),
			slog.String("generation_id", id.String()))
		return false, MapError(err)
	}

	if err := CheckRowsAffected(result, nil); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return false, err
		}
		if _, err := s.currentStatus(ctx, s.db, id); err != nil {
			return false, err
		}
		log.Debug("generation already claimed", slog.String("generation_id", id.String()))
		return false, nil
	}
	return true, nil
}

// UpdateProgress implements store.GenerationStore.UpdateProgress
func (s *PostgresGenerationStore) UpdateProgress(ctx context.Context, id uuid.UUID, percent float64, at time.Time) error {
	if percent < 0 || percent > 100 {
		return domain.NewValidationError("progress_percent", "must be between 0 and 100", nil)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE generations
		SET progress_percent = GREATEST(progress_percent, $2),
		    updated_at = CASE WHEN $2 > progress_percent THEN $3 ELSE updated_at END
		WHERE id = $1 AND status = 'processing'
	`, id, percent, at.UTC())
	if err != nil {
		return MapError(err)
	}
	return s.transitionResult(ctx, s.db, result, id, "progress update")
}

// Complete implements store.GenerationStore.Complete
func (s *PostgresGenerationStore) Complete(ctx context.Context, id uuid.UUID, exercises []*domain.Exercise, at time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)
	completed := at.UTC()

	err := inTx(ctx, s.db, func(ctx context.Context, q store.DBTX) error {
		result, err := q.ExecContext(ctx, `
			UPDATE generations
			SET status = 'completed',
			    progress_percent = 100,
			    error_message = '',
			    completed_at = $2,
			    updated_at = $2,
			    generation_duration_seconds = EXTRACT(EPOCH FROM ($2 - started_at))
			WHERE id = $1 AND status = 'processing'
		`, id, completed)
		if err != nil {
			return MapError(err)
		}
		if err := s.transitionResult(ctx, q, result, id, "complete"); err != nil {
			return err
		}

		for _, e := range exercises {
			if e.GenerationID != id {
				return fmt.Errorf("%w: exercise %s belongs to generation %s", store.ErrInvalidEntity, e.ID, e.GenerationID)
			}
			if err := insertExercise(ctx, q, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to complete generation",
			slog.String("error", err.Error()),
			slog.String("generation_id", id.String()))
		return err
	}

	log.Debug("generation completed",
		slog.String("generation_id", id.String()),
		slog.Int("exercise_count", len(exercises)))
	return nil
}

func insertExercise(ctx context.Context, q store.DBTX, e *domain.Exercise) error {
	points, err := json.Marshal(e.KnowledgePoints)
	if err != nil {
		return fmt.Errorf("failed to encode knowledge points: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO exercises (
			id, generation_id, number, question_type, question_text, correct_answer,
			analysis, difficulty, knowledge_points, quality_score, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, e.ID, e.GenerationID, e.Number, e.QuestionType, e.QuestionText, e.CorrectAnswer,
		e.Analysis, e.Difficulty, points, e.QualityScore, e.CreatedAt)
	return MapError(err)
}

// Fail implements store.GenerationStore.Fail
func (s *PostgresGenerationStore) Fail(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE generations
		SET status = 'failed', error_message = $2, updated_at = $3
		WHERE id = $1 AND status IN ('pending', 'processing')
	`, id, reason, at.UTC())
	if err != nil {
		return MapError(err)
	}
	return s.transitionResult(ctx, s.db, result, id, "fail")
}

// SetFavorite implements store.GenerationStore.SetFavorite
func (s *PostgresGenerationStore) SetFavorite(ctx context.Context, id uuid.UUID, favorite bool, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE generations SET is_favorite = $2, updated_at = $3 WHERE id = $1
	`, id, favorite, at.UTC())
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrGenerationNotFound)
}

// Delete implements store.GenerationStore.Delete
// Exercises are removed by the ON DELETE CASCADE constraint.
func (s *PostgresGenerationStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM generations WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete generation",
			slog.String("error", err.Error()),
			slog.String("generation_id", id.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrGenerationNotFound)
}

// GetExercises implements store.GenerationStore.GetExercises
func (s *PostgresGenerationStore) GetExercises(ctx context.Context, generationID uuid.UUID) ([]*domain.Exercise, error) {
	if _, err := s.currentStatus(ctx, s.db, generationID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, generation_id, number, question_type, question_text, correct_answer,
		       analysis, difficulty, knowledge_points, quality_score, created_at
		FROM exercises
		WHERE generation_id = $1
		ORDER BY number ASC
	`, generationID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	exercises := []*domain.Exercise{}
	for rows.Next() {
		var e domain.Exercise
		var points []byte
		if err := rows.Scan(&e.ID, &e.GenerationID, &e.Number, &e.QuestionType, &e.QuestionText,
			&e.CorrectAnswer, &e.Analysis, &e.Difficulty, &points, &e.QualityScore, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exercise row: %w", err)
		}
		if err := json.Unmarshal(points, &e.KnowledgePoints); err != nil {
			return nil, fmt.Errorf("failed to decode knowledge points: %w", err)
		}
		exercises = append(exercises, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exercise rows: %w", err)
	}
	return exercises, nil
}

// FindByStatus implements store.GenerationStore.FindByStatus
func (s *PostgresGenerationStore) FindByStatus(ctx context.Context, status domain.JobStatus, olderThan time.Time) ([]*domain.GenerationJob, error) {
	if olderThan.IsZero() {
		query := `SELECT ` + generationColumns + ` FROM generations g
			WHERE g.status = $1 ORDER BY g.created_at ASC`
		return s.queryGenerations(ctx, query, status)
	}
	query := `SELECT ` + generationColumns + ` FROM generations g
		WHERE g.status = $1 AND g.updated_at < $2 ORDER BY g.created_at ASC`
	return s.queryGenerations(ctx, query, status, olderThan.UTC())
}

func (s *PostgresGenerationStore) queryGenerations(ctx context.Context, query string, args ...any) ([]*domain.GenerationJob, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	jobs := []*domain.GenerationJob{}
	for rows.Next() {
		job, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generation rows: %w", err)
	}
	return jobs, nil
}

// currentStatus returns the stored status of id or ErrGenerationNotFound.
func (s *PostgresGenerationStore) currentStatus(ctx context.Context, q store.DBTX, id uuid.UUID) (domain.JobStatus, error) {
	var status string
	err := q.QueryRowContext(ctx, `SELECT status FROM generations WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrGenerationNotFound
	}
	if err != nil {
		return "", MapError(err)
	}
	return domain.JobStatus(status), nil
}

// transitionResult explains a conditional UPDATE that matched no row: either
// the job is missing or it is in a status that forbids the change.
func (s *PostgresGenerationStore) transitionResult(ctx context.Context, q store.DBTX, result sql.Result, id uuid.UUID, op string) error {
	err := CheckRowsAffected(result, nil)
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return err
	}
	status, err := s.currentStatus(ctx, q, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s on %s generation", store.ErrInvalidTransition, op, status)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row rowScanner) (*domain.GenerationJob, error) {
	var job domain.GenerationJob
	var difficulty, status string
	var questionTypes []byte
	var startedAt, completedAt sql.NullTime
	var duration sql.NullFloat64

	if err := row.Scan(
		&job.ID, &job.OwnerID, &job.Subject, &job.Grade, &job.Title, &job.RequestedCount,
		&difficulty, &questionTypes, &job.SourceText, &status,
		&job.ProgressPercent, &job.ErrorMessage, &job.IsFavorite, &job.ExerciseCount,
		&job.CreatedAt, &job.UpdatedAt, &startedAt, &completedAt, &duration,
	); err != nil {
		return nil, err
	}

	job.DifficultyLevel = domain.DifficultyLevel(difficulty)
	job.Status = domain.JobStatus(status)
	if err := json.Unmarshal(questionTypes, &job.QuestionTypes); err != nil {
		return nil, fmt.Errorf("failed to decode question types: %w", err)
	}
	if startedAt.Valid {
		t := startedAt.Time.UTC()
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		job.CompletedAt = &t
	}
	if duration.Valid {
		d := duration.Float64
		job.GenerationDurationSeconds = &d
	}
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	return &job, nil
}
