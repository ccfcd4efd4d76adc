package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/api/shared"
	"github.com/phrazzld/exercise-api/internal/platform/logger"
	"github.com/phrazzld/exercise-api/internal/service/stats"
)

// StatsProvider answers per-user statistics queries. *stats.Aggregator implements it.
type StatsProvider interface {
	Summary(ctx context.Context, ownerID uuid.UUID) (*stats.Summary, error)
	Daily(ctx context.Context, ownerID uuid.UUID, days int) ([]stats.DailyActivity, error)
	Recommend(ctx context.Context, ownerID uuid.UUID) (*stats.Recommendation, error)
}

var _ StatsProvider = (*stats.Aggregator)(nil)

// DailyStatsResponse wraps the per-day activity buckets.
type DailyStatsResponse struct {
	Days  int                   `json:"days"`
	Items []stats.DailyActivity `json:"items"`
}

// StatsHandler handles statistics and recommendation requests.
type StatsHandler struct {
	stats  StatsProvider
	logger *slog.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(provider StatsProvider, logger *slog.Logger) *StatsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsHandler{stats: provider, logger: logger.With("component", "stats_handler")}
}

// Summary handles GET /statistics.
func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	summary, err := h.stats.Summary(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, summary)
}

// Daily handles GET /statistics/daily?days=N.
func (h *StatsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	days, err := queryInt(r.URL.Query(), "days")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	items, err := h.stats.Daily(r.Context(), userID, days)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute statistics")
		return
	}
	if days == 0 {
		days = stats.DefaultDays
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DailyStatsResponse{Days: days, Items: items})
}

// Recommend handles GET /recommendation.
func (h *StatsHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	rec, err := h.stats.Recommend(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute recommendation")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, rec)
}
