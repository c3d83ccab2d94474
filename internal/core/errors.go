package core

import "errors"

// Service-level errors the handlers map onto HTTP statuses.
var (
	ErrEmailTaken         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCompletion         = errors.New("chat error")
	ErrDeleteFailed       = errors.New("delete failed")
)
