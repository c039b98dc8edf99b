// Package ui provides the embedded web UI for vidfetch.
package ui

import (
	_ "embed"
)

// IndexHTML is the single-page downloader UI. It submits a URL and quality
// to the API, waits for the blocking download to finish and then offers the
// resulting MP4 as a browser download.
//
//go:embed index.html
var IndexHTML []byte
