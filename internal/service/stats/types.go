package stats

import "github.com/phrazzld/exercise-api/internal/domain"

// Day window accepted by the daily activity query.
const (
	DefaultDays = 7
	MaxDays     = 90
)

// Summary is the overall picture of one user's generation history.
type Summary struct {
	Total          int `json:"total_generations"`
	Pending        int `json:"pending"`
	Processing     int `json:"processing"`
	Completed      int `json:"completed"`
	Failed         int `json:"failed"`
	Favorites      int `json:"favorites"`
	TotalExercises int `json:"total_exercises"`
	Downloads      int `json:"downloads"`

	// SuccessRate is completed/(completed+failed) as a percentage, 0 when
	// no job has finished.
	SuccessRate float64 `json:"success_rate"`

	// AverageGenerationSeconds covers completed jobs only.
	AverageGenerationSeconds float64 `json:"average_generation_seconds"`

	BySubject    map[string]int                 `json:"by_subject"`
	ByDifficulty map[domain.DifficultyLevel]int `json:"by_difficulty"`
}

// DailyActivity counts the jobs created on one calendar day.
type DailyActivity struct {
	Date        string `json:"date"`
	Generations int    `json:"generations"`
	Completed   int    `json:"completed"`
	Failed      int    `json:"failed"`
	Exercises   int    `json:"exercises"`
}

// Recommendation suggests parameters for the next generation.
type Recommendation struct {
	Subject         string                 `json:"subject"`
	Grade           string                 `json:"grade"`
	DifficultyLevel domain.DifficultyLevel `json:"difficulty_level"`
	ExerciseCount   int                    `json:"exercise_count"`
	Reason          string                 `json:"reason"`
}
