//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/platform/postgres"
	"github.com/phrazzld/exercise-api/internal/store"
	"github.com/phrazzld/exercise-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJob(t *testing.T, owner uuid.UUID, created time.Time) *domain.GenerationJob {
	t.Helper()
	job, err := domain.NewGenerationJob(owner, domain.GenerationParams{
		Subject:         "数学",
		Grade:           "五年级",
		RequestedCount:  2,
		DifficultyLevel: domain.DifficultyHarder,
		QuestionTypes:   []string{"calculation", "choice"},
	}, created)
	require.NoError(t, err)
	return job
}

func TestPostgresGenerationStore_Lifecycle(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx, cancel := context.WithTimeout(context.Background(), testdb.TestTimeout)
		defer cancel()

		s := postgres.NewPostgresGenerationStore(tx, nil)
		now := time.Now().UTC().Truncate(time.Microsecond)
		job := newTestJob(t, uuid.New(), now)

		require.NoError(t, s.Create(ctx, job))

		claimed, err := s.Claim(ctx, job.ID, now.Add(time.Second))
		require.NoError(t, err)
		assert.True(t, claimed)

		claimed, err = s.Claim(ctx, job.ID, now.Add(time.Second))
		require.NoError(t, err)
		assert.False(t, claimed)

		require.NoError(t, s.UpdateProgress(ctx, job.ID, 50, now.Add(2*time.Second)))
		require.NoError(t, s.UpdateProgress(ctx, job.ID, 10, now.Add(3*time.Second)))

		got, err := s.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, float64(50), got.ProgressPercent)
		assert.Equal(t, []string{"calculation", "choice"}, got.QuestionTypes)

		exercises := domain.NewExercises(job.ID, []domain.ExerciseDraft{
			{QuestionType: "calculation", QuestionText: "12 × 3 = ?", CorrectAnswer: "36", KnowledgePoints: []string{"乘法"}, QualityScore: 0.8},
			{QuestionType: "choice", QuestionText: "A/B?", CorrectAnswer: "A", QualityScore: 0.7},
		}, now)
		require.NoError(t, s.Complete(ctx, job.ID, exercises, now.Add(5*time.Second)))

		got, err = s.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCompleted, got.Status)
		assert.Equal(t, 2, got.ExerciseCount)
		require.NotNil(t, got.GenerationDurationSeconds)
		assert.InDelta(t, 4.0, *got.GenerationDurationSeconds, 0.01)

		stored, err := s.GetExercises(ctx, job.ID)
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.Equal(t, []string{"乘法"}, stored[0].KnowledgePoints)

		assert.ErrorIs(t, s.Fail(ctx, job.ID, "late", now), store.ErrInvalidTransition)

		require.NoError(t, s.Delete(ctx, job.ID))
		_, err = s.GetByID(ctx, job.ID)
		assert.ErrorIs(t, err, store.ErrGenerationNotFound)
	})
}

func TestPostgresGenerationStore_List(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		s := postgres.NewPostgresGenerationStore(tx, nil)
		owner := uuid.New()
		base := time.Now().UTC().Truncate(time.Microsecond)

		for i := range 3 {
			require.NoError(t, s.Create(ctx, newTestJob(t, owner, base.Add(time.Duration(i)*time.Minute))))
		}

		page, err := s.List(ctx, store.GenerationFilter{OwnerID: owner, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
		assert.True(t, page.HasMore)
		require.Len(t, page.Jobs, 2)
		assert.True(t, page.Jobs[0].CreatedAt.After(page.Jobs[1].CreatedAt))

		page, err = s.List(ctx, store.GenerationFilter{OwnerID: owner, Status: domain.JobStatusFailed})
		require.NoError(t, err)
		assert.Zero(t, page.Total)
	})
}

func TestPostgresDownloadStore_Lifecycle(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		s := postgres.NewPostgresDownloadStore(tx, nil)
		now := time.Now().UTC().Truncate(time.Microsecond)

		d, err := domain.NewDownload(uuid.New(), uuid.New(), domain.ExportOptions{
			Format: domain.ExportFormatPDF, IncludeAnswers: true,
		}, now, time.Hour)
		require.NoError(t, err)
		require.NoError(t, s.Create(ctx, d))

		ok, err := s.Claim(ctx, d.ID, now)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, s.Complete(ctx, d.ID, domain.FileInfo{
			FileName: "x.pdf", SizeBytes: 42, BlobRef: "exports/x.pdf", ContentType: "application/pdf",
		}, now))

		expired, err := s.ListExpired(ctx, now.Add(time.Hour))
		require.NoError(t, err)
		found := false
		for _, e := range expired {
			found = found || e.ID == d.ID
		}
		assert.True(t, found, "expires_at == now is expired")

		got, err := s.GetByID(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, "exports/x.pdf", got.BlobRef)
		assert.Equal(t, domain.PaperA4, got.PaperSize)

		deleted, err := s.DeleteIfBlob(ctx, d.ID, "")
		require.NoError(t, err)
		assert.False(t, deleted, "record written after the read is kept")

		deleted, err = s.DeleteIfBlob(ctx, d.ID, "exports/x.pdf")
		require.NoError(t, err)
		assert.True(t, deleted)
		_, err = s.DeleteIfBlob(ctx, d.ID, "exports/x.pdf")
		assert.ErrorIs(t, err, store.ErrDownloadNotFound)
	})
}
