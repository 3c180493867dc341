package eventbus

import "errors"

var (
	// Publish and subscribe errors
	ErrEventNameEmpty  = errors.New("event name cannot be empty")
	ErrEventHandlerNil = errors.New("event handler cannot be nil")

	// Handler failures reported to the error handler
	ErrHandlerPanic = errors.New("event handler panicked")

	// Envelope errors
	ErrInvalidNotification = errors.New("invalid notification payload")
	ErrInvalidCloudEvent   = errors.New("invalid cloud event")
)
