package i18n

import "errors"

var (
	ErrAlreadyInitialized = errors.New("translation engine already initialized")
	ErrNotInitialized     = errors.New("translation engine not initialized")
	ErrUnsupportedFormat  = errors.New("unsupported bundle format")
	ErrInvalidBundle      = errors.New("invalid translation bundle")
	ErrInvalidLanguage    = errors.New("invalid language code")
	ErrEngineNil          = errors.New("translation engine is nil")
)
