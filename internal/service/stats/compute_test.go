package stats

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func job(status domain.JobStatus, created time.Time, mods ...func(*domain.GenerationJob)) *domain.GenerationJob {
	j := &domain.GenerationJob{
		ID:              uuid.New(),
		Subject:         "数学",
		Grade:           "三年级",
		RequestedCount:  5,
		DifficultyLevel: domain.DifficultySame,
		Status:          status,
		CreatedAt:       created,
	}
	if status == domain.JobStatusCompleted {
		j.ExerciseCount = j.RequestedCount
	}
	for _, m := range mods {
		m(j)
	}
	return j
}

func withDuration(sec float64) func(*domain.GenerationJob) {
	return func(j *domain.GenerationJob) { j.GenerationDurationSeconds = &sec }
}

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()

	s := Summarize(nil)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.SuccessRate)
	assert.Zero(t, s.AverageGenerationSeconds)
	assert.NotNil(t, s.BySubject)
}

func TestSummarize_SuccessRate(t *testing.T) {
	t.Parallel()

	var jobs []*domain.GenerationJob
	for i := 0; i < 9; i++ {
		jobs = append(jobs, job(domain.JobStatusCompleted, testNow, withDuration(float64(i+1))))
	}
	jobs = append(jobs,
		job(domain.JobStatusFailed, testNow),
		job(domain.JobStatusPending, testNow),
		job(domain.JobStatusProcessing, testNow, func(j *domain.GenerationJob) {
			j.Subject = "语文"
			j.DifficultyLevel = domain.DifficultyHarder
			j.IsFavorite = true
		}),
	)

	s := Summarize(jobs)
	assert.Equal(t, 12, s.Total)
	assert.Equal(t, 9, s.Completed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Pending)
	assert.Equal(t, 1, s.Processing)
	assert.Equal(t, 1, s.Favorites)
	assert.Equal(t, 45, s.TotalExercises)
	assert.InDelta(t, 90.0, s.SuccessRate, 1e-9)
	assert.InDelta(t, 5.0, s.AverageGenerationSeconds, 1e-9, "failed and running jobs are excluded")
	assert.Equal(t, map[string]int{"数学": 11, "语文": 1}, s.BySubject)
	assert.Equal(t, 1, s.ByDifficulty[domain.DifficultyHarder])
}

func TestSummarize_OnlyUnfinishedJobs(t *testing.T) {
	t.Parallel()

	s := Summarize([]*domain.GenerationJob{job(domain.JobStatusPending, testNow)})
	assert.Zero(t, s.SuccessRate)
}

func TestBucketByDay(t *testing.T) {
	t.Parallel()

	shanghai := time.FixedZone("CST", 8*3600)
	jobs := []*domain.GenerationJob{
		// 2025-03-09 20:00 UTC is already 2025-03-10 in UTC+8.
		job(domain.JobStatusCompleted, time.Date(2025, 3, 9, 20, 0, 0, 0, time.UTC)),
		job(domain.JobStatusFailed, time.Date(2025, 3, 8, 1, 0, 0, 0, time.UTC)),
		// outside the window
		job(domain.JobStatusCompleted, time.Date(2025, 3, 1, 1, 0, 0, 0, time.UTC)),
	}

	buckets := BucketByDay(jobs, testNow, 3, shanghai)
	require.Len(t, buckets, 3)
	assert.Equal(t, "2025-03-08", buckets[0].Date)
	assert.Equal(t, "2025-03-10", buckets[2].Date)

	assert.Equal(t, DailyActivity{Date: "2025-03-08", Generations: 1, Failed: 1}, buckets[0])
	assert.Equal(t, DailyActivity{Date: "2025-03-09"}, buckets[1], "empty days are zero-filled")
	assert.Equal(t, DailyActivity{Date: "2025-03-10", Generations: 1, Completed: 1, Exercises: 5}, buckets[2])

	utc := BucketByDay(jobs, testNow, 3, nil)
	assert.Equal(t, 1, utc[1].Generations, "the same job lands on 2025-03-09 in UTC")

	assert.Len(t, BucketByDay(nil, testNow, 0, nil), DefaultDays)
}

func TestRecommend(t *testing.T) {
	t.Parallel()

	fallback := Recommendation{Subject: "数学", Grade: "一年级"}
	empty := Recommend(nil, fallback)
	assert.Equal(t, "数学", empty.Subject)
	assert.Equal(t, domain.DifficultySame, empty.DifficultyLevel)
	assert.Equal(t, 10, empty.ExerciseCount)
	assert.NotEmpty(t, empty.Reason)

	jobs := []*domain.GenerationJob{
		job(domain.JobStatusCompleted, testNow.Add(-3*time.Hour), func(j *domain.GenerationJob) {
			j.Subject, j.Grade, j.RequestedCount = "语文", "二年级", 10
			j.DifficultyLevel = domain.DifficultyEasier
		}),
		job(domain.JobStatusFailed, testNow.Add(-time.Hour), func(j *domain.GenerationJob) {
			j.Subject, j.Grade, j.RequestedCount = "语文", "二年级", 20
			j.DifficultyLevel = domain.DifficultyHarder
		}),
		job(domain.JobStatusCompleted, testNow.Add(-2*time.Hour), func(j *domain.GenerationJob) {
			j.Subject = "数学"
		}),
	}

	rec := Recommend(jobs, fallback)
	assert.Equal(t, "语文", rec.Subject)
	assert.Equal(t, "二年级", rec.Grade)
	assert.Equal(t, 15, rec.ExerciseCount)
	assert.Equal(t, domain.DifficultySame, rec.DifficultyLevel, "steps up from the last completed easier set")
	assert.Contains(t, rec.Reason, "语文")
}

func TestNextDifficulty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, domain.DifficultySame, nextDifficulty(domain.DifficultyEasier))
	assert.Equal(t, domain.DifficultyHarder, nextDifficulty(domain.DifficultySame))
	assert.Equal(t, domain.DifficultyHarder, nextDifficulty(domain.DifficultyHarder))
	assert.Equal(t, domain.DifficultyMixed, nextDifficulty(domain.DifficultyMixed))
}
