package buffer

import "errors"

// Sentinel kinds for frame rejection. Both mark the frame as dropped; the
// hold-last-value policy covers the gap.
var (
	ErrOutOfOrder     = errors.New("frame out of order")
	ErrMalformedFrame = errors.New("malformed frame")
)
