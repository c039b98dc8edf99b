package engine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vidfetch/vidfetch/internal/config"
)

func TestBuildArgs(t *testing.T) {
	args := buildArgs("https://example.com/watch?v=x", "best", "/tmp/work", "")

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-f best",
		"--merge-output-format mp4",
		"--no-playlist",
		"--restrict-filenames",
		"--print title",
		"--print after_move:filepath",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q in %q", want, joined)
		}
	}

	if strings.Contains(joined, "--ffmpeg-location") {
		t.Error("--ffmpeg-location must not appear without a configured path")
	}

	// The URL comes last, after the -- separator, so a URL starting with a
	// dash cannot be read as an option.
	if args[len(args)-1] != "https://example.com/watch?v=x" {
		t.Errorf("last arg = %q, want URL", args[len(args)-1])
	}
	if args[len(args)-2] != "--" {
		t.Errorf("second-to-last arg = %q, want --", args[len(args)-2])
	}
}

func TestBuildArgs_FfmpegLocation(t *testing.T) {
	args := buildArgs("https://example.com/v", "best", "/tmp/work", "/opt/ffmpeg")

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--ffmpeg-location /opt/ffmpeg") {
		t.Errorf("args missing ffmpeg location: %q", joined)
	}
}

func TestParsePrints(t *testing.T) {
	tests := []struct {
		name     string
		stdout   string
		title    string
		filePath string
	}{
		{
			name:     "title and filepath",
			stdout:   "My Video Title\n/tmp/work/abc.mp4\n",
			title:    "My Video Title",
			filePath: "/tmp/work/abc.mp4",
		},
		{
			name:     "noise between prints",
			stdout:   "My Video Title\nsome progress noise\n/tmp/work/abc.mp4\n",
			title:    "My Video Title",
			filePath: "/tmp/work/abc.mp4",
		},
		{
			name:   "title only",
			stdout: "Just A Title\n",
			title:  "Just A Title",
		},
		{
			name:   "empty",
			stdout: "",
		},
		{
			name:     "surrounding whitespace",
			stdout:   "  Spaced Title  \n\n  /tmp/x.mp4  \n",
			title:    "Spaced Title",
			filePath: "/tmp/x.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, filePath := parsePrints(tt.stdout)
			if title != tt.title {
				t.Errorf("title = %q, want %q", title, tt.title)
			}
			if filePath != tt.filePath {
				t.Errorf("filePath = %q, want %q", filePath, tt.filePath)
			}
		})
	}
}

func TestFindOutputFile(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, mod time.Time) {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
	}

	now := time.Now()
	write("abc.webm", now.Add(time.Minute))
	write("abc.mp4", now)
	write("abc.mp4.part", now.Add(2*time.Minute))

	got, err := findOutputFile(dir)
	if err != nil {
		t.Fatalf("findOutputFile failed: %v", err)
	}
	if filepath.Base(got) != "abc.mp4" {
		t.Errorf("got %q, want abc.mp4 (mp4 preferred over newer webm, partials skipped)", got)
	}
}

func TestFindOutputFile_Empty(t *testing.T) {
	dir := t.TempDir()

	if _, err := findOutputFile(dir); !errors.Is(err, ErrNoOutput) {
		t.Errorf("error = %v, want ErrNoOutput", err)
	}

	// Partial artifacts alone do not count as output.
	if err := os.WriteFile(filepath.Join(dir, "x.mp4.part"), []byte("d"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := findOutputFile(dir); !errors.Is(err, ErrNoOutput) {
		t.Errorf("error = %v, want ErrNoOutput", err)
	}
}

func TestIsPartial(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"video.mp4", false},
		{"video.mp4.part", true},
		{"video.ytdl", true},
		{"video.tmp", true},
		{"video.webm", false},
	}

	for _, tt := range tests {
		if got := isPartial(tt.name); got != tt.want {
			t.Errorf("isPartial(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestInvokeError(t *testing.T) {
	base := errors.New("exit status 1")
	ie := &InvokeError{Output: "ERROR: Unsupported URL", ExitStatus: 1, Err: base}

	if !strings.Contains(ie.Error(), "Unsupported URL") {
		t.Errorf("Error() = %q, should include the diagnostic", ie.Error())
	}
	if !errors.Is(ie, base) {
		t.Error("InvokeError should unwrap to its cause")
	}

	bare := &InvokeError{ExitStatus: -1, Err: base}
	if !strings.Contains(bare.Error(), "exit status 1") {
		t.Errorf("Error() = %q, should fall back to the cause", bare.Error())
	}
}

func TestDiagnostic(t *testing.T) {
	err := errors.New("exit status 1")

	if got := diagnostic("  ERROR: boom  \n", err); got != "ERROR: boom" {
		t.Errorf("diagnostic = %q", got)
	}
	if got := diagnostic("   \n", err); got != "exit status 1" {
		t.Errorf("diagnostic = %q, want the error text", got)
	}
}

func TestExitStatus_NonExitError(t *testing.T) {
	if got := exitStatus(errors.New("context deadline exceeded")); got != -1 {
		t.Errorf("exitStatus = %d, want -1", got)
	}
}

func TestNewYtDlp_DefaultBinary(t *testing.T) {
	y := NewYtDlp(config.EngineConfig{}, nil)
	if y.binPath != "yt-dlp" {
		t.Errorf("binPath = %q, want yt-dlp", y.binPath)
	}

	y = NewYtDlp(config.EngineConfig{YtDlpPath: "/opt/bin/yt-dlp"}, nil)
	if y.binPath != "/opt/bin/yt-dlp" {
		t.Errorf("binPath = %q", y.binPath)
	}
}
