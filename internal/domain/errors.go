package domain

import "errors"

// Domain errors.
var (
	// ErrEmptyURL is returned when a request has no URL.
	ErrEmptyURL = errors.New("url must not be empty")

	// ErrUnknownQuality is returned when the quality is not one of the fixed set.
	ErrUnknownQuality = errors.New("unknown quality")

	// ErrDownloadNotFound is returned when a download record cannot be found.
	ErrDownloadNotFound = errors.New("download not found")

	// ErrFileNotReady is returned when the file of a download is not available.
	ErrFileNotReady = errors.New("download file not ready")
)

// DownloadError wraps an error with download context.
type DownloadError struct {
	ID  DownloadID
	Op  string
	Err error
}

func (e *DownloadError) Error() string {
	if e.ID != "" {
		return e.Op + " [" + e.ID.String() + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// NewDownloadError creates a new DownloadError.
func NewDownloadError(id DownloadID, op string, err error) *DownloadError {
	return &DownloadError{ID: id, Op: op, Err: err}
}
