package shell

import "errors"

var (
	ErrManifestUnavailable = errors.New("remote manifest unavailable")
	ErrModuleNotExposed    = errors.New("module not exposed by pod")
	ErrHostIncomplete      = errors.New("host context is incomplete")
	ErrNoHost              = errors.New("no host in context")
	ErrShellAlreadyStarted = errors.New("shell already started")
	ErrNoShellPod          = errors.New("shell pod not found in configuration")
	ErrNotMounted          = errors.New("view not mounted")
)
