package backend

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
	ErrNoSuchTopic        = errors.New("no such topic")
	ErrInvalidSession     = errors.New("invalid session")
	ErrInvalidName        = errors.New("subscriber name is empty")
)
