package api

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/phrazzld/exercise-api/internal/api/shared"
	"github.com/phrazzld/exercise-api/internal/clock"
	"github.com/phrazzld/exercise-api/internal/platform/logger"
	"github.com/phrazzld/exercise-api/internal/service"
)

// DownloadHandler serves exported files and their metadata.
type DownloadHandler struct {
	exports service.ExportService
	urls    URLBuilder
	clock   clock.Clock
	logger  *slog.Logger
}

// NewDownloadHandler creates a new DownloadHandler.
func NewDownloadHandler(exports service.ExportService, urls URLBuilder, clk clock.Clock, logger *slog.Logger) *DownloadHandler {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DownloadHandler{
		exports: exports,
		urls:    urls,
		clock:   clk,
		logger:  logger.With("component", "download_handler"),
	}
}

// Download handles GET /download/{id} by streaming the stored file.
func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	download, body, err := h.exports.OpenDownload(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to open download")
		return
	}
	defer func() {
		if cerr := body.Close(); cerr != nil {
			log.Warn("failed to close download reader", "error", cerr)
		}
	}()

	contentType := download.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", contentDisposition(download.FileName))
	if download.FileSizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(download.FileSizeBytes, 10))
	}
	w.WriteHeader(http.StatusOK)

	written, err := io.Copy(w, body)
	if err != nil {
		// Headers are already sent; the client sees a truncated body.
		log.Error("failed to stream download",
			"error", err,
			"download_id", id,
			"bytes_written", written)
		return
	}
	log.Debug("download served", "download_id", id, "bytes_written", written)
}

// Info handles GET /download/{id}/info.
func (h *DownloadHandler) Info(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	download, err := h.exports.GetDownload(r.Context(), userID, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get download")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK,
		toDownloadResponse(download, h.urls.Download(download.ID), h.clock.Now()))
}

// contentDisposition builds an attachment header. Non-ASCII names are
// encoded with RFC 2231 by mime.FormatMediaType.
func contentDisposition(fileName string) string {
	if fileName == "" {
		fileName = "download"
	}
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": fileName}); v != "" {
		return v
	}
	return "attachment"
}
