package shell

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/GoCodeAlone/micropods"
	"github.com/GoCodeAlone/micropods/eventbus"
)

// ToastPosition is where the layout places toasts.
const ToastPosition = "bottom-center"

// Toast is one visible notification.
type Toast struct {
	ID        string                    `json:"id"`
	Type      eventbus.NotificationType `json:"type"`
	Content   string                    `json:"content"`
	Position  string                    `json:"position"`
	CreatedAt time.Time                 `json:"createdAt"`
	ExpiresAt time.Time                 `json:"expiresAt"`
}

// ToasterOptions configure a Toaster.
type ToasterOptions struct {
	// TTL is how long a toast stays visible. Defaults to 4s.
	TTL time.Duration

	// Schedule is the cron spec of the expiry sweep. Defaults to "@every 1s".
	Schedule string

	Logger micropods.Logger
	Now    func() time.Time
}

// Toaster turns success notifications published on the bus into toasts.
// Notifications of any other type are ignored.
type Toaster struct {
	ttl      time.Duration
	schedule string
	logger   micropods.Logger
	now      func() time.Time

	mu     sync.Mutex
	toasts []Toast
	sub    eventbus.Subscription
	cron   *cron.Cron
}

// NewToaster subscribes a toaster to bus.
func NewToaster(bus *eventbus.Bus, opts ToasterOptions) (*Toaster, error) {
	if opts.TTL <= 0 {
		opts.TTL = 4 * time.Second
	}
	if opts.Schedule == "" {
		opts.Schedule = "@every 1s"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if _, err := cron.ParseStandard(opts.Schedule); err != nil {
		return nil, fmt.Errorf("invalid toast sweep schedule %q: %w", opts.Schedule, err)
	}
	t := &Toaster{
		ttl:      opts.TTL,
		schedule: opts.Schedule,
		logger:   micropods.LoggerOrNop(opts.Logger),
		now:      opts.Now,
	}
	sub, err := bus.Subscribe(eventbus.NotificationEvent, t.handle)
	if err != nil {
		return nil, err
	}
	t.sub = sub
	return t, nil
}

func (t *Toaster) handle(_ context.Context, event eventbus.Event) error {
	n, err := eventbus.DecodeNotification(event.Payload)
	if err != nil {
		return err
	}
	if n.Type != eventbus.NotificationSuccess {
		t.logger.Debug("Ignoring notification", "type", n.Type)
		return nil
	}
	now := t.now()
	toast := Toast{
		ID:        uuid.New().String(),
		Type:      n.Type,
		Content:   n.Content,
		Position:  ToastPosition,
		CreatedAt: now,
		ExpiresAt: now.Add(t.ttl),
	}
	t.mu.Lock()
	t.toasts = append(t.toasts, toast)
	t.mu.Unlock()
	t.logger.Debug("Toast shown", "id", toast.ID)
	return nil
}

// Start runs the expiry sweep in the background.
func (t *Toaster) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(t.schedule, func() { t.Prune() }); err != nil {
		return fmt.Errorf("failed to schedule toast sweep: %w", err)
	}
	c.Start()
	t.cron = c
	return nil
}

// Prune drops expired toasts and returns how many were removed.
func (t *Toaster) Prune() int {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	before := len(t.toasts)
	t.toasts = slices.DeleteFunc(t.toasts, func(toast Toast) bool {
		return !now.Before(toast.ExpiresAt)
	})
	return before - len(t.toasts)
}

// Toasts returns the toasts that have not expired, oldest first.
func (t *Toaster) Toasts() []Toast {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Toast, 0, len(t.toasts))
	for _, toast := range t.toasts {
		if now.Before(toast.ExpiresAt) {
			out = append(out, toast)
		}
	}
	return out
}

// Close unsubscribes and stops the sweep.
func (t *Toaster) Close() {
	t.sub.Cancel()
	t.mu.Lock()
	c := t.cron
	t.cron = nil
	t.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
