package app

import "errors"

// Sentinel kinds for command errors.
var (
	ErrUsage           = errors.New("usage")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrEmptyContent    = errors.New("no content provided, document not saved")
	ErrInvalidShareURL = errors.New("invalid Gemini share link")
	ErrNoDevServer     = errors.New("development server not configured")
)
