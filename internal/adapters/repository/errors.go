package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound            = errors.New("candidate not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidCounter      = errors.New("invalid counter")
	ErrUnsupportedDriver   = errors.New("unsupported database driver")
)
