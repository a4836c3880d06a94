package devserver

import "errors"

// Sentinel kinds for development server errors.
var (
	ErrPortInUse      = errors.New("port already in use")
	ErrListen         = errors.New("listen failed")
	ErrAlreadyStarted = errors.New("server already started")
	ErrNotStarted     = errors.New("server not started")
	ErrWatch          = errors.New("watch ui root")
)
