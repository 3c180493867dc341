package micropods

import (
	"errors"
)

// Composition errors
var (
	// Remote resolution errors
	ErrMissingRemoteReference = errors.New("missing remote reference")
	ErrUnknownEnvironment     = errors.New("unknown environment")
	ErrInvalidRemoteAddress   = errors.New("invalid remote address")
	ErrPodNameMismatch        = errors.New("pod name does not match remote table entry")
	ErrManifestInvalid        = errors.New("invalid remote manifest")

	// Shared dependency errors
	ErrInvalidVersionRange  = errors.New("invalid version range")
	ErrSingletonConflict    = errors.New("incompatible singleton version")
	ErrSharedNotDeclared    = errors.New("package is not a declared shared dependency")
	ErrSharedInstanceNil    = errors.New("shared instance is nil")
	ErrSharedNotProvided    = errors.New("shared instance not provided")
	ErrSharedWrongType      = errors.New("shared instance cannot be assigned to target")
	ErrSharedTargetNotPtr   = errors.New("target must be a non-nil pointer")
	ErrRegistryNil          = errors.New("shared registry is nil")
	ErrSharedPackageMissing = errors.New("shared dependency package name is empty")

	// Pod configuration errors
	ErrInvalidPod    = errors.New("invalid pod configuration")
	ErrDuplicatePod  = errors.New("duplicate pod name")
	ErrDuplicatePort = errors.New("duplicate pod port")
	ErrPodNotFound   = errors.New("pod not found")

	// Config loading errors
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)
