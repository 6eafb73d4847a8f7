package service

import (
	"errors"

	"github.com/okian/vitrine/internal/adapters/repository"
)

// Errors surfaced to the API layer.
var (
	ErrNotFound            = repository.ErrNotFound
	ErrInsufficientBalance = repository.ErrInsufficientBalance
	ErrUnauthorized        = errors.New("viewer identity required")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrCandidates          = errors.New("candidate pool unavailable")
)
