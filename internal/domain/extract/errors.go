package extract

import "errors"

// ErrInsufficientData marks a category that did not collect enough valid
// samples. The aggregator excludes it and renormalizes the weights; it is
// never a session failure.
var ErrInsufficientData = errors.New("insufficient data")
