package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/exercise-api/internal/api/shared"
	"github.com/phrazzld/exercise-api/internal/clock"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/platform/logger"
	"github.com/phrazzld/exercise-api/internal/service"
	"github.com/phrazzld/exercise-api/internal/store"
)

// GenerationHandler handles generation and export submission requests.
type GenerationHandler struct {
	generations service.GenerationService
	exports     service.ExportService
	urls        URLBuilder
	clock       clock.Clock
	location    *time.Location
	logger      *slog.Logger
}

// NewGenerationHandler creates a new GenerationHandler. Bare dates in list
// filters are days in loc; a nil loc means UTC.
func NewGenerationHandler(
	generations service.GenerationService,
	exports service.ExportService,
	urls URLBuilder,
	clk clock.Clock,
	loc *time.Location,
	logger *slog.Logger,
) *GenerationHandler {
	if clk == nil {
		clk = clock.System{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationHandler{
		generations: generations,
		exports:     exports,
		urls:        urls,
		clock:       clk,
		location:    loc,
		logger:      logger.With("component", "generation_handler"),
	}
}

// Generate handles POST /generate.
// The job is processed asynchronously; clients poll progress_url.
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req GenerateRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	job, err := h.generations.SubmitGeneration(r.Context(), userID, req.Params())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit generation")
		return
	}

	log.Info("generation submitted",
		slog.String("generation_id", job.ID.String()),
		slog.String("subject", job.Subject),
		slog.String("grade", job.Grade),
		slog.Int("requested_count", job.RequestedCount))

	shared.RespondWithJSON(w, r, http.StatusOK, GenerateResponse{
		GenerationID: job.ID,
		Status:       job.Status,
		ProgressURL:  h.urls.Generation(job.ID),
	})
}

// GetGeneration handles GET /generation/{id}.
func (h *GenerationHandler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	job, err := h.generations.GetGeneration(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get generation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toGenerationResponse(job))
}

// GetExercises handles GET /generation/{id}/exercises.
func (h *GenerationHandler) GetExercises(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	exercises, err := h.generations.GetExercises(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get exercises")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ExercisesResponse{
		GenerationID: id,
		Items:        toExerciseResponses(exercises),
		Total:        len(exercises),
	})
}

// ListGenerations handles GET /generations.
func (h *GenerationHandler) ListGenerations(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	filter, err := h.parseGenerationFilter(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	page, err := h.generations.ListGenerations(r.Context(), userID, filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list generations")
		return
	}

	items := make([]GenerationResponse, 0, len(page.Jobs))
	for _, job := range page.Jobs {
		items = append(items, toGenerationResponse(job))
	}
	limit := filter.Limit
	if limit == 0 {
		limit = store.DefaultPageLimit
	}
	shared.RespondWithJSON(w, r, http.StatusOK, GenerationListResponse{
		Items:   items,
		Total:   page.Total,
		Limit:   limit,
		Offset:  filter.Offset,
		HasMore: page.HasMore,
	})
}

// SetFavorite handles PUT /generation/{id}/favorite.
func (h *GenerationHandler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	var req FavoriteRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	job, err := h.generations.SetFavorite(r.Context(), userID, id, *req.IsFavorite)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update generation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toGenerationResponse(job))
}

// DeleteGeneration handles DELETE /generation/{id}.
func (h *GenerationHandler) DeleteGeneration(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.generations.DeleteGeneration(r.Context(), userID, id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete generation")
		return
	}

	log.Info("generation deleted", slog.String("generation_id", id.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, DetailResponse{Detail: "Generation deleted"})
}

// Export handles POST /generation/{id}/export.
// The download is rendered asynchronously; download_url serves it once completed.
func (h *GenerationHandler) Export(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req ExportRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	download, err := h.exports.SubmitExport(r.Context(), userID, id, req.Options())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to export generation")
		return
	}

	log.Info("export submitted",
		slog.String("download_id", download.ID.String()),
		slog.String("generation_id", id.String()),
		slog.String("format", string(download.Format)))

	shared.RespondWithJSON(w, r, http.StatusOK,
		toDownloadResponse(download, h.urls.Download(download.ID), h.clock.Now()))
}

func (h *GenerationHandler) parseGenerationFilter(r *http.Request) (store.GenerationFilter, error) {
	q := r.URL.Query()
	filter := store.GenerationFilter{
		Subject:         q.Get("subject"),
		Grade:           q.Get("grade"),
		Status:          domain.JobStatus(q.Get("status")),
		DifficultyLevel: domain.DifficultyLevel(q.Get("difficulty_level")),
	}

	var err error
	if filter.Limit, err = queryInt(q, "limit"); err != nil {
		return filter, err
	}
	if q.Get("limit") != "" && filter.Limit == 0 {
		return filter, domain.NewValidationError("limit", "must be between 1 and 100", nil)
	}
	if filter.Offset, err = queryInt(q, "offset"); err != nil {
		return filter, err
	}
	if filter.IsFavorite, err = queryBool(q, "is_favorite"); err != nil {
		return filter, err
	}
	if filter.CreatedFrom, err = queryTime(q, "date_from", h.location, false); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = queryTime(q, "date_to", h.location, true); err != nil {
		return filter, err
	}
	return filter, nil
}
