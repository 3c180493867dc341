package feeders

import (
	"errors"
)

// Env feeder errors
var (
	ErrEnvInvalidStructure = errors.New("env: invalid structure")
	ErrEnvEmptyPrefix      = errors.New("env: prefix cannot be empty")
	ErrEnvFieldCannotBeSet = errors.New("env: field cannot be set")
)

// File feeder errors
var (
	ErrUnsupportedFormat = errors.New("unsupported config file format")
	ErrKeyNotFound       = errors.New("key not found")
)
