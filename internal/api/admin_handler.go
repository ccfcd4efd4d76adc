package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/exercise-api/internal/api/shared"
	"github.com/phrazzld/exercise-api/internal/platform/logger"
	"github.com/phrazzld/exercise-api/internal/service/cleanup"
)

// Sweeper removes expired downloads. *cleanup.Sweeper implements it.
type Sweeper interface {
	Sweep(ctx context.Context) (cleanup.Result, error)
}

var _ Sweeper = (*cleanup.Sweeper)(nil)

// AdminHandler handles operator requests. Routes must sit behind
// middleware.AdminMiddleware.
type AdminHandler struct {
	sweeper Sweeper
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(sweeper Sweeper, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{sweeper: sweeper, logger: logger.With("component", "admin_handler")}
}

// Cleanup handles DELETE /admin/cleanup by running one sweep synchronously.
func (h *AdminHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	result, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Cleanup failed")
		return
	}

	log.Info("manual cleanup finished",
		slog.Int("files_deleted", result.FilesDeleted),
		slog.Int("records_deleted", result.RecordsDeleted),
		slog.Int("failures", result.Failures))
	shared.RespondWithJSON(w, r, http.StatusOK, CleanupResponse(result))
}
