// Package alert builds SOS alerts for the emergency contacts and hands them
// to a Notifier.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/haven/internal/ident"
	"github.com/starford/haven/internal/metrics"
	"github.com/starford/haven/internal/models"
)

var (
	ErrNoContacts = errors.New("no emergency contacts configured")
	ErrCooldown   = errors.New("alert already sent recently")
)

// Notification is the message addressed to one contact.
type Notification struct {
	ContactID string `json:"contactId"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Message   string `json:"message"`
}

// Alert is one SOS trigger and everything it sent.
type Alert struct {
	ID            string         `json:"id"`
	CreatedAt     time.Time      `json:"createdAt"`
	Location      string         `json:"location,omitempty"`
	Notifications []Notification `json:"notifications"`
}

// Notifier delivers the notifications of an alert.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// LogNotifier writes each notification to the log instead of sending it.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, a Alert) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, msg := range a.Notifications {
		logger.Info("alert notification",
			slog.String("alert_id", a.ID),
			slog.String("contact_id", msg.ContactID),
			slog.String("phone", msg.Phone),
			slog.String("message", msg.Message))
	}
	return nil
}

// ContactSource returns the contacts an alert goes to.
type ContactSource func() []models.Contact

// Config tunes a Dispatcher.
type Config struct {
	Sender   string        // name used in the message text
	Cooldown time.Duration // minimum gap between two alerts; zero disables
}

// Dispatcher turns an SOS trigger into notifications for every contact.
type Dispatcher struct {
	contacts ContactSource
	notifier Notifier
	cfg      Config
	ids      ident.Generator
	logger   *slog.Logger
	metrics  *metrics.Collector
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewDispatcher creates a Dispatcher. logger and m may be nil.
func NewDispatcher(contacts ContactSource, notifier Notifier, cfg Config, logger *slog.Logger, m *metrics.Collector) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	if cfg.Sender == "" {
		cfg.Sender = "Your contact"
	}
	return &Dispatcher{
		contacts: contacts,
		notifier: notifier,
		cfg:      cfg,
		ids:      ident.UUID{},
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Trigger sends an alert to every current contact. location is an optional
// free-text note appended to the message.
func (d *Dispatcher) Trigger(ctx context.Context, location string) (Alert, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if d.cfg.Cooldown > 0 && !d.last.IsZero() && now.Sub(d.last) < d.cfg.Cooldown {
		return Alert{}, ErrCooldown
	}

	contacts := d.contacts()
	if len(contacts) == 0 {
		return Alert{}, ErrNoContacts
	}

	location = strings.TrimSpace(location)
	text := Message(d.cfg.Sender, location)
	a := Alert{
		ID:            d.ids.NewID(),
		CreatedAt:     now.UTC(),
		Location:      location,
		Notifications: make([]Notification, 0, len(contacts)),
	}
	for _, c := range contacts {
		a.Notifications = append(a.Notifications, Notification{
			ContactID: c.ID,
			Name:      c.Name,
			Phone:     c.Phone,
			Message:   text,
		})
	}

	if err := d.notifier.Notify(ctx, a); err != nil {
		return Alert{}, fmt.Errorf("alert: notify: %w", err)
	}
	d.last = now
	d.metrics.AlertSent()
	d.logger.Warn("SOS alert sent",
		slog.String("alert_id", a.ID),
		slog.Int("contacts", len(a.Notifications)))
	return a, nil
}

// Message renders the alert text sent to each contact.
func Message(sender, location string) string {
	msg := fmt.Sprintf("SOS: %s needs help and triggered an emergency alert.", sender)
	if location != "" {
		msg += " Last known location: " + location + "."
	}
	return msg
}
