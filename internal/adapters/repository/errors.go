package repository

import "errors"

// Sentinel kinds for report store errors.
var (
	ErrNotFound  = errors.New("report not found")
	ErrNilReport = errors.New("nil report")
)
