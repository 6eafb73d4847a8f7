package probe

import "errors"

var (
	ErrInvalidConfig = errors.New("invalid probe config")
	ErrUnhealthy     = errors.New("service unhealthy")
	ErrStatus        = errors.New("unexpected status")
	ErrInvariant     = errors.New("feed invariant violated")
)
