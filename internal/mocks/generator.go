package mocks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/generation"
)

// MockGenerator implements generation.Generator for testing
type MockGenerator struct {
	// GenerateFn allows test cases to replace the Generate behavior
	GenerateFn func(ctx context.Context, req generation.Request, emit generation.EmitFunc) error

	// Default behavior: emit Drafts in order, then return Err
	Drafts []domain.ExerciseDraft
	Err    error

	// Call tracking for verification
	GenerateCalls struct {
		mu       sync.Mutex
		Count    int
		Requests []generation.Request
	}
}

var _ generation.Generator = (*MockGenerator)(nil)

// Generate implements the generation.Generator interface
func (m *MockGenerator) Generate(ctx context.Context, req generation.Request, emit generation.EmitFunc) error {
	m.GenerateCalls.mu.Lock()
	m.GenerateCalls.Count++
	m.GenerateCalls.Requests = append(m.GenerateCalls.Requests, req)
	m.GenerateCalls.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, req, emit)
	}

	for _, d := range m.Drafts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(d); err != nil {
			if errors.Is(err, generation.ErrStop) {
				return nil
			}
			return err
		}
	}
	return m.Err
}

// CallCount returns how many times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.GenerateCalls.mu.Lock()
	defer m.GenerateCalls.mu.Unlock()
	return m.GenerateCalls.Count
}

// NewMockGeneratorWithDrafts creates a MockGenerator that emits drafts
func NewMockGeneratorWithDrafts(drafts ...domain.ExerciseDraft) *MockGenerator {
	return &MockGenerator{Drafts: drafts}
}

// NewMockGeneratorWithError creates a MockGenerator that fails with err
func NewMockGeneratorWithError(err error) *MockGenerator {
	return &MockGenerator{Err: err}
}

// SampleDrafts returns n valid drafts.
func SampleDrafts(n int) []domain.ExerciseDraft {
	drafts := make([]domain.ExerciseDraft, 0, n)
	for i := 1; i <= n; i++ {
		drafts = append(drafts, domain.ExerciseDraft{
			QuestionType:    "calculation",
			QuestionText:    fmt.Sprintf("1 + %d = ?", i),
			CorrectAnswer:   strconv.Itoa(i + 1),
			Difficulty:      "same",
			KnowledgePoints: []string{"addition"},
			QualityScore:    0.9,
		})
	}
	return drafts
}

// MockGeneratorBlocking creates a MockGenerator that blocks until its context ends
func MockGeneratorBlocking() *MockGenerator {
	return &MockGenerator{
		GenerateFn: func(ctx context.Context, _ generation.Request, _ generation.EmitFunc) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
}
