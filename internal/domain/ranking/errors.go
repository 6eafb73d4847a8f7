package ranking

import "errors"

// Sentinel errors for ranking configuration.
var (
	ErrInvalidConfig = errors.New("invalid ranking config")
)
