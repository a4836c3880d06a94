// Package model contains the request and response shapes exchanged with the
// InsightPipe backend.
package model

import "time"

// CreatedAtLayout is the timestamp format the backend uses in document listings.
const CreatedAtLayout = "2006-01-02 15:04:05"

// SaveRequest is the body of POST /docs/save.
type SaveRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Overwrite bool   `json:"overwrite"`
}

// SaveResult acknowledges a stored document.
type SaveResult struct {
	Message string `json:"message"`
	Path    string `json:"path"`
}

// DocumentSummary is one entry of GET /docs, newest first.
type DocumentSummary struct {
	Filename  string `json:"filename"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	Size      int64  `json:"size"`
}

// CreatedTime parses CreatedAt. The backend reports local time without a zone.
func (d DocumentSummary) CreatedTime() (time.Time, error) {
	return time.ParseInLocation(CreatedAtLayout, d.CreatedAt, time.Local)
}

// Document is the body of GET /docs/{filename}.
type Document struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// DeleteResult acknowledges a removed document.
type DeleteResult struct {
	Message string `json:"message"`
}

// ErrorPayload is the failure body the backend sends alongside error statuses.
type ErrorPayload struct {
	Detail string `json:"detail,omitempty"`
}

// Health is the body of GET /health.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
