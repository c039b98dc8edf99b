// Package engine wraps the external yt-dlp binary. All site-specific
// extraction and MP4 remuxing happens inside the engine (which shells out to
// ffmpeg); this package only builds arguments, runs the process and locates
// its output.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/vidfetch/vidfetch/internal/config"
)

// ErrNoOutput is returned when the engine exits cleanly but no playable file
// can be found in the work directory.
var ErrNoOutput = errors.New("engine produced no output file")

// partialExtensions are in-progress artifacts the engine leaves behind;
// they are never the final output.
var partialExtensions = []string{".part", ".ytdl", ".tmp"}

// Result describes a completed engine run.
type Result struct {
	FilePath string
	Title    string
}

// InvokeError carries the engine's diagnostic output and exit status so the
// failure can be classified upstream.
type InvokeError struct {
	Output     string
	ExitStatus int
	Err        error
}

func (e *InvokeError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("yt-dlp exited with status %d: %s", e.ExitStatus, e.Output)
	}
	return fmt.Sprintf("yt-dlp failed: %v", e.Err)
}

func (e *InvokeError) Unwrap() error {
	return e.Err
}

// YtDlp invokes the yt-dlp binary.
type YtDlp struct {
	binPath    string
	ffmpegPath string
	logger     *slog.Logger
}

// NewYtDlp creates an engine wrapper from configuration.
func NewYtDlp(cfg config.EngineConfig, logger *slog.Logger) *YtDlp {
	binPath := cfg.YtDlpPath
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &YtDlp{
		binPath:    binPath,
		ffmpegPath: cfg.FfmpegPath,
		logger:     logger,
	}
}

// Available reports whether the yt-dlp binary can be resolved.
func (y *YtDlp) Available() bool {
	_, err := exec.LookPath(y.binPath)
	return err == nil
}

// TranscoderAvailable reports whether ffmpeg can be resolved, either at the
// configured location or on PATH. Without it the engine cannot guarantee a
// single-file MP4.
func (y *YtDlp) TranscoderAvailable() bool {
	if y.ffmpegPath != "" {
		if info, err := os.Stat(y.ffmpegPath); err == nil && !info.IsDir() {
			return true
		}
		// A configured directory holds the binaries.
		if _, err := exec.LookPath(filepath.Join(y.ffmpegPath, "ffmpeg")); err == nil {
			return true
		}
		return false
	}
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// Version returns the engine's version string.
func (y *YtDlp) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, y.binPath, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("yt-dlp version: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Download fetches the URL into workDir as a single MP4, constrained by the
// format selector. The returned Result points at a file inside workDir; the
// caller owns moving it somewhere durable before releasing the directory.
func (y *YtDlp) Download(ctx context.Context, url, formatSelector, workDir string) (*Result, error) {
	args := buildArgs(url, formatSelector, workDir, y.ffmpegPath)

	cmd := exec.CommandContext(ctx, y.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if y.logger != nil {
		y.logger.Debug("yt-dlp finished",
			"url", url,
			"duration", time.Since(start),
			"error", err != nil,
		)
	}

	if err != nil {
		return nil, &InvokeError{
			Output:     diagnostic(stderr.String(), err),
			ExitStatus: exitStatus(err),
			Err:        err,
		}
	}

	title, filePath := parsePrints(stdout.String())
	if !usableFile(filePath) {
		// The filepath print is best-effort; fall back to scanning.
		found, ferr := findOutputFile(workDir)
		if ferr != nil {
			return nil, ferr
		}
		filePath = found
	}

	return &Result{FilePath: filePath, Title: title}, nil
}

// buildArgs assembles the yt-dlp invocation. The engine always remuxes to a
// single MP4 and names the file by video id; the human-facing name is applied
// later, after sanitization.
func buildArgs(url, formatSelector, workDir, ffmpegPath string) []string {
	args := []string{
		"-f", formatSelector,
		"--merge-output-format", "mp4",
		"-o", filepath.Join(workDir, "%(id)s.%(ext)s"),
		"--no-playlist",
		"--restrict-filenames",
		"--no-progress",
		"--retries", "5",
		"--fragment-retries", "10",
		"--no-simulate",
		"--print", "title",
		"--print", "after_move:filepath",
	}
	if ffmpegPath != "" {
		args = append(args, "--ffmpeg-location", ffmpegPath)
	}
	return append(args, "--", url)
}

// parsePrints reads the two --print lines: title first, final filepath second.
func parsePrints(stdout string) (title, filePath string) {
	var lines []string
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > 0 {
		title = lines[0]
	}
	if len(lines) > 1 {
		filePath = lines[len(lines)-1]
	}
	return title, filePath
}

func usableFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

// findOutputFile returns the newest completed file in dir, preferring .mp4.
func findOutputFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read work dir: %w", err)
	}

	var newest string
	var newestTime time.Time
	var newestIsMP4 bool

	for _, entry := range entries {
		if entry.IsDir() || isPartial(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() == 0 {
			continue
		}

		isMP4 := strings.EqualFold(filepath.Ext(entry.Name()), ".mp4")
		switch {
		case newest == "",
			isMP4 && !newestIsMP4,
			isMP4 == newestIsMP4 && info.ModTime().After(newestTime):
			newest = filepath.Join(dir, entry.Name())
			newestTime = info.ModTime()
			newestIsMP4 = isMP4
		}
	}

	if newest == "" {
		return "", ErrNoOutput
	}
	return newest, nil
}

func isPartial(name string) bool {
	for _, ext := range partialExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// diagnostic picks the most useful error text for classification.
func diagnostic(stderr string, err error) string {
	if s := strings.TrimSpace(stderr); s != "" {
		return s
	}
	return err.Error()
}

func exitStatus(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}
