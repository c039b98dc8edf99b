// Package service orchestrates the download workflow: engine invocation,
// failure classification, filename sanitization and history bookkeeping.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/vidfetch/vidfetch/internal/classify"
	"github.com/vidfetch/vidfetch/internal/config"
	"github.com/vidfetch/vidfetch/internal/domain"
	"github.com/vidfetch/vidfetch/internal/engine"
	"github.com/vidfetch/vidfetch/internal/repository"
	"github.com/vidfetch/vidfetch/pkg/ffmpeg"
	"github.com/vidfetch/vidfetch/pkg/fsname"
)

// VideoEngine is the boundary to the external download engine.
type VideoEngine interface {
	// Download fetches url into workDir as a single MP4 file.
	Download(ctx context.Context, url, formatSelector, workDir string) (*engine.Result, error)

	// TranscoderAvailable reports whether ffmpeg can be resolved.
	TranscoderAvailable() bool
}

// MediaProber reads metadata from a downloaded file. Probing is best-effort.
type MediaProber interface {
	Probe(ctx context.Context, path string) (*ffmpeg.MediaInfo, error)
}

// DownloadService turns DownloadRequests into DownloadResults. Every
// collaborator failure is caught at this boundary and classified; the only
// errors returned to the caller are request-validation errors.
type DownloadService struct {
	engine     VideoEngine
	classifier *classify.Classifier
	history    *repository.HistoryRepository
	prober     MediaProber
	storage    config.StorageConfig
	timeout    time.Duration
	logger     *slog.Logger
}

// NewDownloadService creates a download service. The prober may be nil.
func NewDownloadService(
	eng VideoEngine,
	classifier *classify.Classifier,
	history *repository.HistoryRepository,
	prober MediaProber,
	storage config.StorageConfig,
	timeout time.Duration,
	logger *slog.Logger,
) *DownloadService {
	return &DownloadService{
		engine:     eng,
		classifier: classifier,
		history:    history,
		prober:     prober,
		storage:    storage,
		timeout:    timeout,
		logger:     logger,
	}
}

// Download processes one request synchronously and blocks until the engine
// finishes. It always yields exactly one well-formed DownloadResult; an error
// is returned only for an invalid request.
func (s *DownloadService) Download(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := domain.DownloadID("dl_" + uuid.New().String())
	logger := s.logger.With("download_id", id, "url", req.URL, "quality", req.Quality)

	if err := s.history.Begin(ctx, id, req); err != nil {
		// History is an audit trail; losing a row must not block the download.
		logger.Warn("record download start failed", "error", err)
	}

	res := s.run(ctx, id, req, logger)

	if err := s.history.Complete(ctx, res); err != nil {
		logger.Warn("record download outcome failed", "error", err)
	}

	return res, nil
}

func (s *DownloadService) run(ctx context.Context, id domain.DownloadID, req domain.DownloadRequest, logger *slog.Logger) *domain.DownloadResult {
	// Without ffmpeg the engine cannot guarantee a single-file MP4, even when
	// it could fetch the raw streams. Refuse before spending bandwidth.
	if !s.engine.TranscoderAvailable() {
		logger.Warn("transcoder unavailable")
		return domain.NewFailure(id, domain.CategoryTranscoderUnavailable,
			"ffmpeg not found in PATH or at the configured location")
	}

	workDir, release, err := s.acquireWorkspace(id)
	if err != nil {
		logger.Error("workspace setup failed", "error", err)
		return domain.NewFailure(id, domain.CategoryUnknown,
			fmt.Sprintf("create workspace: %v", err))
	}
	defer release()

	runCtx := ctx
	var cancel context.CancelFunc
	if s.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger.Info("invoking engine")
	out, err := s.engine.Download(runCtx, req.URL, req.Quality.FormatSelector(), workDir)
	if err != nil {
		return s.classifyFailure(id, runCtx, err, logger)
	}

	fileName := fsname.Sanitize(out.Title, ".mp4")
	destPath := filepath.Join(s.storage.BasePath, id.String(), fileName)

	if err := moveFile(out.FilePath, destPath); err != nil {
		logger.Error("store file failed", "error", err)
		return domain.NewFailure(id, domain.CategoryUnknown,
			fmt.Sprintf("store downloaded file: %v", err))
	}

	info, err := os.Stat(destPath)
	if err != nil {
		logger.Error("stat stored file failed", "error", err)
		return domain.NewFailure(id, domain.CategoryUnknown,
			fmt.Sprintf("stat downloaded file: %v", err))
	}

	res := domain.NewSuccess(id, destPath, fileName, info.Size())
	s.probeMedia(ctx, res, logger)

	logger.Info("download completed",
		"filename", fileName,
		"size", info.Size(),
	)
	return res
}

// classifyFailure converts an engine error into a classified failure result.
func (s *DownloadService) classifyFailure(id domain.DownloadID, runCtx context.Context, err error, logger *slog.Logger) *domain.DownloadResult {
	// A blown deadline is indistinguishable from a stalled network to the
	// user, so it surfaces as a network failure.
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		logger.Warn("download timed out", "timeout", s.timeout)
		return domain.NewFailure(id, domain.CategoryNetworkFailure,
			fmt.Sprintf("download timed out after %s", s.timeout))
	}

	msg := err.Error()
	status := -1
	var ie *engine.InvokeError
	if errors.As(err, &ie) {
		msg = ie.Output
		status = ie.ExitStatus
	}

	category := s.classifier.Classify(msg, status)
	logger.Warn("download failed",
		"category", category,
		"exit_status", status,
		"error", msg,
	)
	return domain.NewFailure(id, category, msg)
}

// probeMedia fills duration/resolution on a success result, best-effort.
func (s *DownloadService) probeMedia(ctx context.Context, res *domain.DownloadResult, logger *slog.Logger) {
	if s.prober == nil {
		return
	}
	info, err := s.prober.Probe(ctx, res.FilePath)
	if err != nil {
		logger.Debug("media probe failed", "error", err)
		return
	}
	res.Duration = info.Duration
	res.Resolution = info.Resolution()
}

// acquireWorkspace creates a per-request scratch directory under the temp
// area. The release func removes it; concurrent requests never share a path.
func (s *DownloadService) acquireWorkspace(id domain.DownloadID) (string, func(), error) {
	dir := filepath.Join(s.storage.TempPath, id.String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", nil, err
	}
	release := func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("workspace cleanup failed", "dir", dir, "error", err)
		}
	}
	return dir, release, nil
}

// moveFile renames src to dst, falling back to copy+remove across devices.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Remove(src)
}
