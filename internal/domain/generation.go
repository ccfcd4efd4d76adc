package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Limits enforced on generation requests.
const (
	MinExerciseCount   = 1
	MaxExerciseCount   = 50
	MaxTitleLength     = 200
	MaxSourceTextRunes = 2000
)

// GenerationParams carries the client-controlled fields of a generation request.
type GenerationParams struct {
	Subject         string
	Grade           string
	Title           string
	RequestedCount  int
	DifficultyLevel DifficultyLevel
	QuestionTypes   []string
	SourceText      string
}

// GenerationJob is a tracked request to produce a batch of exercises for one
// subject and grade. It is created pending, claimed by exactly one worker,
// and ends completed (with all exercises) or failed (with none).
type GenerationJob struct {
	ID              uuid.UUID       `json:"id"`
	OwnerID         uuid.UUID       `json:"owner_id"`
	Subject         string          `json:"subject"`
	Grade           string          `json:"grade"`
	Title           string          `json:"title"`
	RequestedCount  int             `json:"requested_count"`
	DifficultyLevel DifficultyLevel `json:"difficulty_level"`
	QuestionTypes   []string        `json:"question_types"`
	SourceText      string          `json:"source_text,omitempty"`

	Status          JobStatus `json:"status"`
	ProgressPercent float64   `json:"progress_percent"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	IsFavorite      bool      `json:"is_favorite"`

	// ExerciseCount is derived on reads from the stored exercises.
	ExerciseCount int `json:"exercise_count"`

	CreatedAt                 time.Time  `json:"created_at"`
	UpdatedAt                 time.Time  `json:"updated_at"`
	StartedAt                 *time.Time `json:"started_at,omitempty"`
	CompletedAt               *time.Time `json:"completed_at,omitempty"`
	GenerationDurationSeconds *float64   `json:"generation_duration_seconds,omitempty"`
}

// NewGenerationJob validates params and returns a pending job owned by ownerID.
func NewGenerationJob(ownerID uuid.UUID, params GenerationParams, now time.Time) (*GenerationJob, error) {
	job := &GenerationJob{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Subject:         strings.TrimSpace(params.Subject),
		Grade:           strings.TrimSpace(params.Grade),
		Title:           strings.TrimSpace(params.Title),
		RequestedCount:  params.RequestedCount,
		DifficultyLevel: params.DifficultyLevel,
		QuestionTypes:   dedupe(params.QuestionTypes),
		SourceText:      strings.TrimSpace(params.SourceText),
		Status:          JobStatusPending,
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}
	if job.Title == "" {
		job.Title = DefaultTitle(job.Subject, job.Grade)
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

// DefaultTitle builds the title used when the client did not provide one.
func DefaultTitle(subject, grade string) string {
	return grade + subject + "练习"
}

// Validate checks the structural rules of a job. Catalog membership of
// subject, grade and question types is checked by the service layer.
func (j *GenerationJob) Validate() error {
	if j.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if j.OwnerID == uuid.Nil {
		return NewValidationError("owner_id", "cannot be empty", ErrInvalidID)
	}
	if j.Subject == "" {
		return NewValidationError("subject", "is required", nil)
	}
	if j.Grade == "" {
		return NewValidationError("grade", "is required", nil)
	}
	if utf8.RuneCountInString(j.Title) > MaxTitleLength {
		return NewValidationError("title", "is too long", nil)
	}
	if j.RequestedCount < MinExerciseCount || j.RequestedCount > MaxExerciseCount {
		return NewValidationError("exercise_count", "must be between 1 and 50", nil)
	}
	if !j.DifficultyLevel.Valid() {
		return NewValidationError("difficulty_level", "must be one of easier, same, harder, mixed", nil)
	}
	if len(j.QuestionTypes) == 0 {
		return NewValidationError("question_types", "must not be empty", nil)
	}
	if utf8.RuneCountInString(j.SourceText) > MaxSourceTextRunes {
		return NewValidationError("source_text", "is too long", nil)
	}
	if !j.Status.Valid() {
		return NewValidationError("status", "is invalid", nil)
	}
	if j.ProgressPercent < 0 || j.ProgressPercent > 100 {
		return NewValidationError("progress_percent", "must be between 0 and 100", nil)
	}
	return nil
}

// OwnedBy reports whether userID owns the job.
func (j *GenerationJob) OwnedBy(userID uuid.UUID) bool {
	return j.OwnerID == userID
}

// Clone returns a deep copy so that stores never hand out shared state.
func (j *GenerationJob) Clone() *GenerationJob {
	c := *j
	c.QuestionTypes = append([]string(nil), j.QuestionTypes...)
	c.StartedAt = cloneTime(j.StartedAt)
	c.CompletedAt = cloneTime(j.CompletedAt)
	if j.GenerationDurationSeconds != nil {
		d := *j.GenerationDurationSeconds
		c.GenerationDurationSeconds = &d
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// dedupe trims entries and drops blanks and repeats while keeping order.
func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
