package apperror

import "errors"

var (
	ErrGameNotFound      = errors.New("game account not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrDevEnvDisabled    = errors.New("development environment is disabled")
	ErrUnknownPreset     = errors.New("unknown game state preset")
	ErrTransactionFailed = errors.New("transaction failed")
	ErrConfirmTimeout    = errors.New("transaction was not confirmed in time")
	ErrInvalidAccount    = errors.New("invalid game account data")
)
