package postman

import "errors"

var (
	// ErrPermissionDenied is returned when the user declined notifications.
	// It is terminal: only a manual change in the browser settings can undo it.
	ErrPermissionDenied = errors.New("notification permission denied")

	// ErrKeyUnavailable is returned when the server's public push key could not be fetched.
	ErrKeyUnavailable = errors.New("public key unavailable")

	// ErrKeyMissing is returned when a subscription is attempted before the context handle or key is known.
	ErrKeyMissing = errors.New("context handle or public key missing")

	// ErrProvider is returned when the push provider rejected a subscribe or unsubscribe.
	ErrProvider = errors.New("push provider error")

	// ErrRegistration is returned when the push-handling context could not be installed.
	ErrRegistration = errors.New("execution context registration failed")

	// ErrValidation is returned for bad caller input. It is never sent over the network.
	ErrValidation = errors.New("validation error")

	// ErrUnauthenticated is returned when no session could be established, even after a refresh.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrDispatchFailed is returned when a dispatch job failed after its bounded retry.
	ErrDispatchFailed = errors.New("dispatch failed")
)
