package loadgen

import "errors"

// Error constants.
var (
	ErrRunFailed = errors.New("load run failed")
)
