package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/store"
	"github.com/stretchr/testify/require"
)

// GenerationOption customizes the params of a test generation job.
type GenerationOption func(*domain.GenerationParams)

// WithSubject sets the subject.
func WithSubject(subject string) GenerationOption {
	return func(p *domain.GenerationParams) { p.Subject = subject }
}

// WithGrade sets the grade.
func WithGrade(grade string) GenerationOption {
	return func(p *domain.GenerationParams) { p.Grade = grade }
}

// WithCount sets the requested exercise count.
func WithCount(n int) GenerationOption {
	return func(p *domain.GenerationParams) { p.RequestedCount = n }
}

// WithDifficulty sets the difficulty level.
func WithDifficulty(d domain.DifficultyLevel) GenerationOption {
	return func(p *domain.GenerationParams) { p.DifficultyLevel = d }
}

// MustCreateGenerationJob builds a valid pending job for ownerID. It does not
// store the job.
func MustCreateGenerationJob(t *testing.T, ownerID uuid.UUID, now time.Time, opts ...GenerationOption) *domain.GenerationJob {
	t.Helper()

	params := domain.GenerationParams{
		Subject:         "数学",
		Grade:           "三年级",
		RequestedCount:  5,
		DifficultyLevel: domain.DifficultySame,
		QuestionTypes:   []string{"calculation"},
	}
	for _, opt := range opts {
		opt(&params)
	}
	job, err := domain.NewGenerationJob(ownerID, params, now)
	require.NoError(t, err, "Failed to create test generation job")
	return job
}

// MustInsertCompletedGeneration stores job and drives it to completed with
// job.RequestedCount sample exercises. It returns the stored job.
func MustInsertCompletedGeneration(
	ctx context.Context,
	t *testing.T,
	s store.GenerationStore,
	job *domain.GenerationJob,
	at time.Time,
) *domain.GenerationJob {
	t.Helper()

	require.NoError(t, s.Create(ctx, job))
	claimed, err := s.Claim(ctx, job.ID, at)
	require.NoError(t, err)
	require.True(t, claimed)

	drafts := make([]domain.ExerciseDraft, 0, job.RequestedCount)
	for i := 0; i < job.RequestedCount; i++ {
		drafts = append(drafts, domain.ExerciseDraft{
			QuestionType:  "calculation",
			QuestionText:  "2 + 2 = ?",
			CorrectAnswer: "4",
			Difficulty:    "same",
			QualityScore:  0.8,
		})
	}
	require.NoError(t, s.Complete(ctx, job.ID, domain.NewExercises(job.ID, drafts, at), at))

	stored, err := s.GetByID(ctx, job.ID)
	require.NoError(t, err)
	return stored
}

// MustInsertFailedGeneration stores job and marks it failed.
func MustInsertFailedGeneration(
	ctx context.Context,
	t *testing.T,
	s store.GenerationStore,
	job *domain.GenerationJob,
	at time.Time,
) *domain.GenerationJob {
	t.Helper()

	require.NoError(t, s.Create(ctx, job))
	require.NoError(t, s.Fail(ctx, job.ID, "test failure", at))

	stored, err := s.GetByID(ctx, job.ID)
	require.NoError(t, err)
	return stored
}
