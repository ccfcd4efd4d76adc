package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/phrazzld/exercise-api/internal/domain"
)

// recentWindow is how many of the newest jobs Recommend looks at.
const recentWindow = 10

// Summarize derives a Summary from a snapshot of one user's jobs.
func Summarize(jobs []*domain.GenerationJob) Summary {
	s := Summary{
		BySubject:    make(map[string]int),
		ByDifficulty: make(map[domain.DifficultyLevel]int),
	}

	var durationSum float64
	var durationCount int
	for _, j := range jobs {
		s.Total++
		s.BySubject[j.Subject]++
		s.ByDifficulty[j.DifficultyLevel]++
		if j.IsFavorite {
			s.Favorites++
		}

		switch j.Status {
		case domain.JobStatusPending:
			s.Pending++
		case domain.JobStatusProcessing:
			s.Processing++
		case domain.JobStatusCompleted:
			s.Completed++
			s.TotalExercises += j.ExerciseCount
			if j.GenerationDurationSeconds != nil {
				durationSum += *j.GenerationDurationSeconds
				durationCount++
			}
		case domain.JobStatusFailed:
			s.Failed++
		}
	}

	if finished := s.Completed + s.Failed; finished > 0 {
		s.SuccessRate = round2(float64(s.Completed) * 100 / float64(finished))
	}
	if durationCount > 0 {
		s.AverageGenerationSeconds = round2(durationSum / float64(durationCount))
	}
	return s
}

// BucketByDay counts jobs per calendar day in loc over the days ending with
// the day containing now. Days without jobs are present with zero counts.
// Results are oldest first.
func BucketByDay(jobs []*domain.GenerationJob, now time.Time, days int, loc *time.Location) []DailyActivity {
	if loc == nil {
		loc = time.UTC
	}
	if days < 1 {
		days = DefaultDays
	}

	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	first := today.AddDate(0, 0, -(days - 1))

	buckets := make([]DailyActivity, days)
	index := make(map[string]int, days)
	for i := range buckets {
		date := first.AddDate(0, 0, i).Format(time.DateOnly)
		buckets[i].Date = date
		index[date] = i
	}

	for _, j := range jobs {
		i, ok := index[j.CreatedAt.In(loc).Format(time.DateOnly)]
		if !ok {
			continue
		}
		b := &buckets[i]
		b.Generations++
		switch j.Status {
		case domain.JobStatusCompleted:
			b.Completed++
			b.Exercises += j.ExerciseCount
		case domain.JobStatusFailed:
			b.Failed++
		}
	}
	return buckets
}

// Recommend suggests the next generation from the newest jobs. The subject is
// the most used one (ties go to the most recent), the grade is the most used
// one for that subject, and the difficulty steps up one level (capped at harder) from the last
// completed job of that subject. fallback is returned when there is no history.
func Recommend(jobs []*domain.GenerationJob, fallback Recommendation) Recommendation {
	recent := newestFirst(jobs)
	if len(recent) > recentWindow {
		recent = recent[:recentWindow]
	}
	if len(recent) == 0 {
		if fallback.DifficultyLevel == "" {
			fallback.DifficultyLevel = domain.DifficultySame
		}
		if fallback.ExerciseCount == 0 {
			fallback.ExerciseCount = 10
		}
		if fallback.Reason == "" {
			fallback.Reason = "no generation history yet"
		}
		return fallback
	}

	subject := mostFrequent(recent, func(j *domain.GenerationJob) string { return j.Subject })
	var ofSubject []*domain.GenerationJob
	countSum := 0
	for _, j := range recent {
		if j.Subject == subject {
			ofSubject = append(ofSubject, j)
			countSum += j.RequestedCount
		}
	}
	grade := mostFrequent(ofSubject, func(j *domain.GenerationJob) string { return j.Grade })

	rec := Recommendation{
		Subject:         subject,
		Grade:           grade,
		DifficultyLevel: domain.DifficultySame,
		ExerciseCount:   int(math.Round(float64(countSum) / float64(len(ofSubject)))),
	}

	for _, j := range ofSubject {
		if j.Status != domain.JobStatusCompleted {
			continue
		}
		rec.DifficultyLevel = nextDifficulty(j.DifficultyLevel)
		rec.Reason = fmt.Sprintf("%s is your most practised subject; last completed set was %s",
			subject, j.DifficultyLevel.Label())
		return rec
	}
	rec.Reason = fmt.Sprintf("%s is your most practised subject", subject)
	return rec
}

func nextDifficulty(d domain.DifficultyLevel) domain.DifficultyLevel {
	switch d {
	case domain.DifficultyEasier:
		return domain.DifficultySame
	case domain.DifficultySame, domain.DifficultyHarder:
		return domain.DifficultyHarder
	default:
		return domain.DifficultyMixed
	}
}

// mostFrequent returns the key with the highest count. jobs must be newest
// first; ties go to the key seen first.
func mostFrequent(jobs []*domain.GenerationJob, key func(*domain.GenerationJob) string) string {
	counts := make(map[string]int)
	var order []string
	for _, j := range jobs {
		k := key(j)
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}
	best := ""
	for _, k := range order {
		if best == "" || counts[k] > counts[best] {
			best = k
		}
	}
	return best
}

func newestFirst(jobs []*domain.GenerationJob) []*domain.GenerationJob {
	out := append([]*domain.GenerationJob(nil), jobs...)
	sort.SliceStable(out, func(i, k int) bool {
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
