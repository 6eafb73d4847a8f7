package config

import "errors"

// Sentinels returned by Load and Validate, wrapped with detail.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
