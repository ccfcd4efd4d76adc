package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidExercise is returned when generator output is unusable.
var ErrInvalidExercise = errors.New("invalid exercise")

// ExerciseDraft is one exercise as produced by a generator, before it has
// been numbered and attached to a generation.
type ExerciseDraft struct {
	QuestionType    string   `json:"question_type"`
	QuestionText    string   `json:"question"`
	CorrectAnswer   string   `json:"answer"`
	Analysis        string   `json:"analysis,omitempty"`
	Difficulty      string   `json:"difficulty"`
	KnowledgePoints []string `json:"knowledge_points"`
	QualityScore    float64  `json:"quality_score"`
}

// Validate rejects drafts that cannot be presented to a student.
func (d ExerciseDraft) Validate() error {
	if strings.TrimSpace(d.QuestionText) == "" {
		return fmt.Errorf("%w: question text is empty", ErrInvalidExercise)
	}
	if strings.TrimSpace(d.CorrectAnswer) == "" {
		return fmt.Errorf("%w: answer is empty", ErrInvalidExercise)
	}
	if d.QualityScore < 0 || d.QualityScore > 1 {
		return fmt.Errorf("%w: quality score %.2f out of range", ErrInvalidExercise, d.QualityScore)
	}
	return nil
}

// Exercise is an immutable question belonging to a completed generation.
type Exercise struct {
	ID              uuid.UUID `json:"id"`
	GenerationID    uuid.UUID `json:"generation_id"`
	Number          int       `json:"number"`
	QuestionType    string    `json:"question_type"`
	QuestionText    string    `json:"question_text"`
	CorrectAnswer   string    `json:"correct_answer"`
	Analysis        string    `json:"analysis,omitempty"`
	Difficulty      string    `json:"difficulty"`
	KnowledgePoints []string  `json:"knowledge_points"`
	QualityScore    float64   `json:"quality_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewExercises numbers drafts 1..N in order and attaches them to generationID.
func NewExercises(generationID uuid.UUID, drafts []ExerciseDraft, now time.Time) []*Exercise {
	out := make([]*Exercise, 0, len(drafts))
	for i, d := range drafts {
		out = append(out, &Exercise{
			ID:              uuid.New(),
			GenerationID:    generationID,
			Number:          i + 1,
			QuestionType:    strings.TrimSpace(d.QuestionType),
			QuestionText:    strings.TrimSpace(d.QuestionText),
			CorrectAnswer:   strings.TrimSpace(d.CorrectAnswer),
			Analysis:        strings.TrimSpace(d.Analysis),
			Difficulty:      strings.TrimSpace(d.Difficulty),
			KnowledgePoints: dedupe(d.KnowledgePoints),
			QualityScore:    d.QualityScore,
			CreatedAt:       now.UTC(),
		})
	}
	return out
}

// Clone returns a deep copy of e.
func (e *Exercise) Clone() *Exercise {
	c := *e
	c.KnowledgePoints = append([]string(nil), e.KnowledgePoints...)
	return &c
}
