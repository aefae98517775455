package app

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptySession    = errors.New("session has no frames")
	ErrReportNotReady  = errors.New("report not ready")
	ErrBusy            = errors.New("analysis queue full")
)
