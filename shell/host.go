package shell

import (
	"context"
	"fmt"

	"github.com/GoCodeAlone/micropods"
	"github.com/GoCodeAlone/micropods/eventbus"
	"github.com/GoCodeAlone/micropods/i18n"
)

// Host is the context the shell hands to every pod at mount time: the one
// event bus, the one translation engine and the one shared scope of the
// running application.
type Host struct {
	Bus          *eventbus.Bus
	Translations *i18n.Engine
	Shared       *micropods.SharedScope
	Logger       micropods.Logger
}

// Validate checks that every member is set.
func (h *Host) Validate() error {
	if h == nil {
		return fmt.Errorf("%w: nil", ErrHostIncomplete)
	}
	switch {
	case h.Bus == nil:
		return fmt.Errorf("%w: missing event bus", ErrHostIncomplete)
	case h.Translations == nil:
		return fmt.Errorf("%w: missing translation engine", ErrHostIncomplete)
	case h.Shared == nil:
		return fmt.Errorf("%w: missing shared scope", ErrHostIncomplete)
	}
	return nil
}

type hostKey struct{}

// WithHost attaches host to ctx.
func WithHost(ctx context.Context, host *Host) context.Context {
	return context.WithValue(ctx, hostKey{}, host)
}

// HostFrom returns the host attached to ctx.
func HostFrom(ctx context.Context) (*Host, error) {
	host, ok := ctx.Value(hostKey{}).(*Host)
	if !ok || host == nil {
		return nil, ErrNoHost
	}
	return host, nil
}
