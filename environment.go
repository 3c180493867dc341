package micropods

import (
	"fmt"
	"strings"
)

// Environment is a deployment target. Each environment carries its own set of
// remote manifest addresses.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Environments returns the known environments in a stable order.
func Environments() []Environment {
	return []Environment{Development, Production}
}

// ParseEnvironment maps a name (or the short aliases "dev" and "prod") to an
// Environment.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "development", "dev":
		return Development, nil
	case "production", "prod":
		return Production, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, s)
	}
}

// Valid reports whether e is one of the known environments.
func (e Environment) Valid() bool {
	return e == Development || e == Production
}

func (e Environment) String() string {
	return string(e)
}
