package gemini

import "github.com/phrazzld/exercise-api/internal/domain"

// promptData represents the data passed to the prompt template
type promptData struct {
	Subject       string
	Grade         string
	Title         string
	Count         int
	Difficulty    string
	QuestionTypes []string
	SourceText    string
}

// ResponseSchema represents the JSON document the model is asked to return
type ResponseSchema struct {
	Exercises []domain.ExerciseDraft `json:"exercises"`
}
