package domain

// DownloadID is a unique identifier for a download request.
type DownloadID string

// String returns the string representation of the DownloadID.
func (id DownloadID) String() string {
	return string(id)
}

// Quality is a user-selectable quality preference for a download.
type Quality string

const (
	QualityBest  Quality = "best"
	Quality1080p Quality = "1080p"
	Quality720p  Quality = "720p"
	Quality480p  Quality = "480p"
)

// Qualities lists all selectable qualities in presentation order.
func Qualities() []Quality {
	return []Quality{QualityBest, Quality1080p, Quality720p, Quality480p}
}

// ParseQuality maps a user-supplied quality string to a Quality.
// An empty string defaults to QualityBest.
func ParseQuality(s string) (Quality, error) {
	switch s {
	case "", "best":
		return QualityBest, nil
	case "1080p":
		return Quality1080p, nil
	case "720p":
		return Quality720p, nil
	case "480p":
		return Quality480p, nil
	}
	return "", ErrUnknownQuality
}

// FormatSelector returns the yt-dlp format selection expression for the
// quality. A specific resolution bounds the stream height, leaving the engine
// free to pick the best stream at or below it; best applies no constraint.
func (q Quality) FormatSelector() string {
	switch q {
	case Quality1080p:
		return "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/best[height<=1080][ext=mp4]/best"
	case Quality720p:
		return "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/best[height<=720][ext=mp4]/best"
	case Quality480p:
		return "bestvideo[height<=480][ext=mp4]+bestaudio[ext=m4a]/best[height<=480][ext=mp4]/best"
	default:
		return "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	}
}

// Label returns the human-readable name shown in the quality selector.
func (q Quality) Label() string {
	switch q {
	case Quality1080p:
		return "1080p HD"
	case Quality720p:
		return "720p"
	case Quality480p:
		return "480p"
	default:
		return "Best available"
	}
}

// DownloadRequest is a single user submission. It is immutable and
// request-scoped; it carries no state beyond the interaction that created it.
type DownloadRequest struct {
	URL     string
	Quality Quality
}

// Validate checks that the request is well-formed.
func (r DownloadRequest) Validate() error {
	if r.URL == "" {
		return ErrEmptyURL
	}
	if _, err := ParseQuality(string(r.Quality)); err != nil {
		return err
	}
	return nil
}

// DownloadStatus represents the processing state of a download.
type DownloadStatus string

const (
	StatusDownloading DownloadStatus = "downloading"
	StatusCompleted   DownloadStatus = "completed"
	StatusFailed      DownloadStatus = "failed"
)
