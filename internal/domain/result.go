package domain

// ErrorCategory is one of a fixed, closed set of user-facing failure
// categories. The engine's error vocabulary is free-form text owned by an
// external project, so classification prefers Unknown over a wrong specific
// category.
type ErrorCategory string

const (
	CategoryUnsupportedSite       ErrorCategory = "unsupported_site"
	CategoryDrmProtected          ErrorCategory = "drm_protected"
	CategoryGeoBlocked            ErrorCategory = "geo_blocked"
	CategoryLoginRequired         ErrorCategory = "login_required"
	CategoryTranscoderUnavailable ErrorCategory = "transcoder_unavailable"
	CategoryNetworkFailure        ErrorCategory = "network_failure"
	CategoryUnknown               ErrorCategory = "unknown"
)

// UserMessage returns the fixed human-readable message for the category.
func (c ErrorCategory) UserMessage() string {
	switch c {
	case CategoryUnsupportedSite:
		return "This site is not supported. The URL is not covered by any known extractor; try a different link."
	case CategoryDrmProtected:
		return "This content is DRM protected and cannot be downloaded."
	case CategoryGeoBlocked:
		return "This video is restricted in your region."
	case CategoryLoginRequired:
		return "This content requires a login. Only public videos can be downloaded."
	case CategoryTranscoderUnavailable:
		return "FFmpeg was not found. Install FFmpeg and make sure it is on the system PATH."
	case CategoryNetworkFailure:
		return "The download failed due to a network problem. Check your connection and try again."
	default:
		return "An unexpected error occurred during the download."
	}
}

// DownloadResult is the single outcome of a DownloadRequest: either a local
// file ready to serve, or a classified failure. Exactly one result exists per
// request and a failure never carries a file path.
type DownloadResult struct {
	ID DownloadID

	// Success fields. Duration and Resolution are best-effort probe results
	// and may be zero.
	FilePath   string
	FileName   string
	FileSize   int64
	Duration   float64
	Resolution string

	// Failure fields.
	Category   ErrorCategory
	RawMessage string
}

// NewSuccess builds a successful result.
func NewSuccess(id DownloadID, filePath, fileName string, size int64) *DownloadResult {
	return &DownloadResult{
		ID:       id,
		FilePath: filePath,
		FileName: fileName,
		FileSize: size,
	}
}

// NewFailure builds a failed result. No file path is retained.
func NewFailure(id DownloadID, category ErrorCategory, rawMessage string) *DownloadResult {
	if category == "" {
		category = CategoryUnknown
	}
	return &DownloadResult{
		ID:         id,
		Category:   category,
		RawMessage: rawMessage,
	}
}

// OK reports whether the result is a success.
func (r *DownloadResult) OK() bool {
	return r.Category == ""
}

// Status returns the terminal DownloadStatus for the result.
func (r *DownloadResult) Status() DownloadStatus {
	if r.OK() {
		return StatusCompleted
	}
	return StatusFailed
}
