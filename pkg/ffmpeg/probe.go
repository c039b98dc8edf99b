// Package ffmpeg inspects media files using ffprobe.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// MediaInfo contains metadata about a media file.
type MediaInfo struct {
	Duration float64 // seconds
	Width    int
	Height   int
	HasAudio bool
	FileSize int64
}

// Prober reads media metadata via ffprobe.
type Prober struct {
	ffprobePath string
}

// NewProber creates a prober. With an empty path, ffprobe is resolved from
// PATH; a missing binary is reported on first use, not here, because probing
// is best-effort alongside a download.
func NewProber(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath}
}

// Probe extracts metadata from a media file.
func (p *Prober) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat media: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	type ffprobeFormat struct {
		Duration string `json:"duration"`
	}
	type ffprobeStream struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	}
	type ffprobeOutput struct {
		Format  ffprobeFormat   `json:"format"`
		Streams []ffprobeStream `json:"streams"`
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &MediaInfo{FileSize: stat.Size()}
	if parsed.Format.Duration != "" {
		if dur, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
			info.Duration = dur
		}
	}
	for _, s := range parsed.Streams {
		switch s.CodecType {
		case "audio":
			info.HasAudio = true
		case "video":
			if info.Width == 0 && s.Width > 0 {
				info.Width = s.Width
			}
			if info.Height == 0 && s.Height > 0 {
				info.Height = s.Height
			}
		}
	}

	return info, nil
}

// Resolution renders the probed dimensions as "WxH", or "" when unknown.
func (m *MediaInfo) Resolution() string {
	if m.Width <= 0 || m.Height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// Version returns the version line of the given ffmpeg binary, resolving
// from PATH when the path is empty.
func Version(ffmpegPath string) (string, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	output, err := exec.Command(ffmpegPath, "-version").Output()
	if err != nil {
		return "", err
	}
	return firstLine(output), nil
}

func firstLine(output []byte) string {
	line, _, _ := strings.Cut(string(output), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "unknown"
	}
	return line
}
