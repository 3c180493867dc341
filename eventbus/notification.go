package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// NotificationEvent is the event name pods publish user-facing notifications on.
const NotificationEvent = "shell/notification"

// NotificationType tags the severity of a notification.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Notification is the payload convention for NotificationEvent.
type Notification struct {
	Type    NotificationType `json:"type"`
	Content string           `json:"content"`

	// Version and Timestamp (milliseconds since the epoch) are optional.
	Version   int   `json:"version,omitempty"`
	Timestamp int64 `json:"timestamp,omitempty"`
}

// NewNotification builds a version 1 notification stamped with the current time.
func NewNotification(t NotificationType, content string) Notification {
	return Notification{
		Type:      t,
		Content:   content,
		Version:   1,
		Timestamp: time.Now().UnixMilli(),
	}
}

// DecodeNotification reads a notification out of an event payload. Payloads
// may be a Notification, a pointer to one, a generic map decoded from JSON, or
// raw JSON bytes.
func DecodeNotification(payload any) (Notification, error) {
	switch p := payload.(type) {
	case Notification:
		return p, p.validate()
	case *Notification:
		if p == nil {
			return Notification{}, fmt.Errorf("%w: nil", ErrInvalidNotification)
		}
		return *p, p.validate()
	case nil:
		return Notification{}, fmt.Errorf("%w: nil", ErrInvalidNotification)
	}

	var raw []byte
	switch p := payload.(type) {
	case []byte:
		raw = p
	case json.RawMessage:
		raw = p
	case string:
		raw = []byte(p)
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return Notification{}, fmt.Errorf("%w: %w", ErrInvalidNotification, err)
		}
		raw = b
	}

	var n Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return Notification{}, fmt.Errorf("%w: %w", ErrInvalidNotification, err)
	}
	return n, n.validate()
}

func (n Notification) validate() error {
	if n.Type == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidNotification)
	}
	return nil
}

// Notify publishes n on NotificationEvent.
func (b *Bus) Notify(ctx context.Context, n Notification) error {
	return b.Publish(ctx, NotificationEvent, n)
}
