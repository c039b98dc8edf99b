package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vidfetch/vidfetch/internal/domain"
	"github.com/vidfetch/vidfetch/internal/repository"
)

// Downloader runs one download request to completion.
type Downloader interface {
	Download(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadResult, error)
}

// HistoryStore reads download history records.
type HistoryStore interface {
	Get(ctx context.Context, id domain.DownloadID) (*repository.Record, error)
	List(ctx context.Context, limit int) ([]*repository.Record, error)
}

// DownloadHandler handles download-related HTTP requests.
type DownloadHandler struct {
	svc     Downloader
	history HistoryStore
	logger  *slog.Logger
}

// NewDownloadHandler creates a new download handler.
func NewDownloadHandler(svc Downloader, history HistoryStore, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{
		svc:     svc,
		history: history,
		logger:  logger,
	}
}

// SubmitRequest is the JSON request body for a download submission.
type SubmitRequest struct {
	URL     string `json:"url"`
	Quality string `json:"quality,omitempty"`
}

// SubmitResponse is the JSON response for a completed download.
type SubmitResponse struct {
	DownloadID  string  `json:"download_id"`
	Filename    string  `json:"filename"`
	SizeBytes   int64   `json:"size_bytes"`
	DownloadURL string  `json:"download_url"`
	Duration    float64 `json:"duration_seconds,omitempty"`
	Resolution  string  `json:"resolution,omitempty"`
}

// FailureResponse is the JSON response for a classified download failure.
type FailureResponse struct {
	DownloadID string `json:"download_id"`
	Category   string `json:"category"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
}

// RecordResponse represents one history entry in list responses.
type RecordResponse struct {
	DownloadID  string     `json:"download_id"`
	URL         string     `json:"url"`
	Quality     string     `json:"quality"`
	Status      string     `json:"status"`
	Category    string     `json:"category,omitempty"`
	Filename    string     `json:"filename,omitempty"`
	DownloadURL string     `json:"download_url,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ListResponse contains the recent download history.
type ListResponse struct {
	Downloads []RecordResponse `json:"downloads"`
	Total     int              `json:"total"`
}

// Submit handles POST /api/v1/downloads. The request blocks until the
// download finishes; the response is either the finished file's metadata or a
// classified failure.
func (h *DownloadHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quality, err := domain.ParseQuality(req.Quality)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown quality %q", req.Quality))
		return
	}

	res, err := h.svc.Download(r.Context(), domain.DownloadRequest{
		URL:     req.URL,
		Quality: quality,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmptyURL) {
			h.writeError(w, http.StatusBadRequest, "url is required")
			return
		}
		if errors.Is(err, domain.ErrUnknownQuality) {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown quality %q", req.Quality))
			return
		}
		h.logger.Error("submit failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to process download")
		return
	}

	if !res.OK() {
		h.writeJSON(w, http.StatusUnprocessableEntity, FailureResponse{
			DownloadID: res.ID.String(),
			Category:   string(res.Category),
			Message:    res.Category.UserMessage(),
			Detail:     res.RawMessage,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, SubmitResponse{
		DownloadID:  res.ID.String(),
		Filename:    res.FileName,
		SizeBytes:   res.FileSize,
		DownloadURL: fileURL(res.ID),
		Duration:    res.Duration,
		Resolution:  res.Resolution,
	})
}

// List handles GET /api/v1/downloads.
func (h *DownloadHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	records, err := h.history.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list downloads")
		return
	}

	response := ListResponse{
		Downloads: make([]RecordResponse, 0, len(records)),
		Total:     len(records),
	}
	for _, rec := range records {
		rr := RecordResponse{
			DownloadID:  rec.ID.String(),
			URL:         rec.URL,
			Quality:     string(rec.Quality),
			Status:      string(rec.Status),
			Category:    string(rec.Category),
			Filename:    rec.Filename,
			Error:       rec.Error,
			CreatedAt:   rec.CreatedAt,
			CompletedAt: rec.CompletedAt,
		}
		if rec.Status == domain.StatusCompleted {
			rr.DownloadURL = fileURL(rec.ID)
		}
		response.Downloads = append(response.Downloads, rr)
	}

	h.writeJSON(w, http.StatusOK, response)
}

// ServeFile handles GET /api/v1/downloads/{downloadID}/file. The file is
// offered as a browser attachment under its sanitized name.
func (h *DownloadHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	downloadID := chi.URLParam(r, "downloadID")
	if downloadID == "" {
		h.writeError(w, http.StatusBadRequest, "missing download ID")
		return
	}

	rec, err := h.history.Get(r.Context(), domain.DownloadID(downloadID))
	if err != nil {
		if errors.Is(err, domain.ErrDownloadNotFound) {
			h.writeError(w, http.StatusNotFound, "download not found")
			return
		}
		h.logger.Error("get download failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get download")
		return
	}

	if rec.Status != domain.StatusCompleted || rec.FilePath == "" {
		h.writeError(w, http.StatusNotFound, "file not available")
		return
	}
	if _, err := os.Stat(rec.FilePath); err != nil {
		h.logger.Error("stored file missing", "download_id", downloadID, "path", rec.FilePath)
		h.writeError(w, http.StatusNotFound, "file not available")
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	// FormatMediaType percent-encodes non-ASCII names (filename*=utf-8''...),
	// which the sanitizer deliberately lets through.
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": rec.Filename}))
	http.ServeFile(w, r, rec.FilePath)
}

func fileURL(id domain.DownloadID) string {
	return "/api/v1/downloads/" + id.String() + "/file"
}

func (h *DownloadHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *DownloadHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
