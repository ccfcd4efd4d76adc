package service

import (
	"slices"
	"strings"

	"github.com/phrazzld/exercise-api/internal/config"
	"github.com/phrazzld/exercise-api/internal/domain"
)

// Catalog is the allow-list of subjects, grades and question types a
// generation request may use.
type Catalog struct {
	subjects      []string
	grades        []string
	questionTypes []string
}

// NewCatalog builds a Catalog from configuration. Blank and repeated entries are dropped.
func NewCatalog(cfg config.CatalogConfig) *Catalog {
	return &Catalog{
		subjects:      cleanList(cfg.Subjects),
		grades:        cleanList(cfg.Grades),
		questionTypes: cleanList(cfg.QuestionTypes),
	}
}

// Subjects returns the accepted subjects in configuration order.
func (c *Catalog) Subjects() []string { return slices.Clone(c.subjects) }

// Grades returns the accepted grades in configuration order.
func (c *Catalog) Grades() []string { return slices.Clone(c.grades) }

// QuestionTypes returns the accepted question types in configuration order.
func (c *Catalog) QuestionTypes() []string { return slices.Clone(c.questionTypes) }

// Validate checks catalog membership of a job's subject, grade and question types.
func (c *Catalog) Validate(job *domain.GenerationJob) error {
	if !slices.Contains(c.subjects, job.Subject) {
		return domain.NewValidationError("subject", "is not supported", nil)
	}
	if !slices.Contains(c.grades, job.Grade) {
		return domain.NewValidationError("grade", "is not supported", nil)
	}
	for _, qt := range job.QuestionTypes {
		if !slices.Contains(c.questionTypes, qt) {
			return domain.NewValidationError("question_types", "contains unsupported type "+qt, nil)
		}
	}
	return nil
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
