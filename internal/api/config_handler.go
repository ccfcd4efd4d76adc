package api

import (
	"net/http"
	"strings"

	"github.com/phrazzld/exercise-api/internal/api/shared"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/service"
)

// ConfigHandler exposes the catalog of accepted request values.
type ConfigHandler struct {
	catalog *service.Catalog
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(catalog *service.Catalog) *ConfigHandler {
	return &ConfigHandler{catalog: catalog}
}

// Subjects handles GET /config/subjects.
func (h *ConfigHandler) Subjects(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, plainOptions(h.catalog.Subjects()))
}

// Grades handles GET /config/grades.
func (h *ConfigHandler) Grades(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, plainOptions(h.catalog.Grades()))
}

// QuestionTypes handles GET /config/question-types.
func (h *ConfigHandler) QuestionTypes(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, plainOptions(h.catalog.QuestionTypes()))
}

// DifficultyLevels handles GET /config/difficulty-levels.
func (h *ConfigHandler) DifficultyLevels(w http.ResponseWriter, r *http.Request) {
	items := make([]OptionResponse, 0, len(domain.DifficultyLevels))
	for _, d := range domain.DifficultyLevels {
		items = append(items, OptionResponse{Value: string(d), Label: d.Label()})
	}
	shared.RespondWithJSON(w, r, http.StatusOK, OptionsResponse{Items: items})
}

// ExportFormats handles GET /config/export-formats.
func (h *ConfigHandler) ExportFormats(w http.ResponseWriter, r *http.Request) {
	items := make([]OptionResponse, 0, len(domain.ExportFormats))
	for _, f := range domain.ExportFormats {
		items = append(items, OptionResponse{Value: string(f), Label: strings.ToUpper(string(f))})
	}
	shared.RespondWithJSON(w, r, http.StatusOK, OptionsResponse{Items: items})
}

func plainOptions(values []string) OptionsResponse {
	items := make([]OptionResponse, 0, len(values))
	for _, v := range values {
		items = append(items, OptionResponse{Value: v, Label: v})
	}
	return OptionsResponse{Items: items}
}
