package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/phrazzld/exercise-api/internal/config"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestNewCatalogCleansEntries(t *testing.T) {
	t.Parallel()

	c := NewCatalog(config.CatalogConfig{
		Subjects:      []string{" 数学 ", "数学", "", "语文"},
		Grades:        []string{"三年级"},
		QuestionTypes: []string{"choice"},
	})

	assert.Equal(t, []string{"数学", "语文"}, c.Subjects())

	subjects := c.Subjects()
	subjects[0] = "changed"
	assert.Equal(t, "数学", c.Subjects()[0], "accessors return copies")
}

func TestServiceErrorMapping(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NewServiceError("op", "msg", nil))
	assert.Equal(t, ErrGenerationNotFound,
		NewServiceError("op", "msg", fmt.Errorf("lookup: %w", store.ErrGenerationNotFound)))
	assert.Equal(t, ErrDownloadNotFound, NewServiceError("op", "msg", store.ErrDownloadNotFound))

	ve := domain.NewValidationError("subject", "is required", nil)
	assert.Same(t, ve, NewServiceError("op", "msg", ve))

	cause := errors.New("boom")
	err := NewServiceError("get_generation", "failed", cause)
	var se *ServiceError
	assert.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "get_generation")

	assert.Contains(t, (&ServiceError{Operation: "x", Message: "y"}).Error(), "x failed: y")
}
