package generation

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/domain"
)

// Request carries everything a generator needs to produce one batch.
type Request struct {
	GenerationID    uuid.UUID
	Subject         string
	Grade           string
	Title           string
	Count           int
	DifficultyLevel domain.DifficultyLevel
	QuestionTypes   []string
	SourceText      string
}

// RequestFromJob builds a Request from a stored job.
func RequestFromJob(job *domain.GenerationJob) Request {
	return Request{
		GenerationID:    job.ID,
		Subject:         job.Subject,
		Grade:           job.Grade,
		Title:           job.Title,
		Count:           job.RequestedCount,
		DifficultyLevel: job.DifficultyLevel,
		QuestionTypes:   append([]string(nil), job.QuestionTypes...),
		SourceText:      job.SourceText,
	}
}

// EmitFunc receives drafts one at a time in generation order.
// Returning ErrStop ends the stream; any other error aborts generation.
type EmitFunc func(draft domain.ExerciseDraft) error

// Generator defines the interface for producing exercises.
// This interface serves as a boundary between the application core and
// external AI/LLM services.
type Generator interface {
	// Generate streams drafts for req to emit. It may emit more or fewer than
	// req.Count drafts; the caller decides what to keep.
	Generate(ctx context.Context, req Request, emit EmitFunc) error
}

// Collect runs g and returns at most req.Count drafts.
func Collect(ctx context.Context, g Generator, req Request) ([]domain.ExerciseDraft, error) {
	drafts := make([]domain.ExerciseDraft, 0, req.Count)
	err := g.Generate(ctx, req, func(d domain.ExerciseDraft) error {
		drafts = append(drafts, d)
		if len(drafts) >= req.Count {
			return ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drafts, nil
}
