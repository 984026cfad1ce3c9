// Package safety ties the contact and keyword stores, the safe-place
// directory and the SOS dispatcher together for the HTTP and MCP transports.
package safety

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/haven/internal/alert"
	"github.com/starford/haven/internal/apperr"
	"github.com/starford/haven/internal/directory"
	"github.com/starford/haven/internal/entity"
	"github.com/starford/haven/internal/ident"
	"github.com/starford/haven/internal/keywords"
	"github.com/starford/haven/internal/metrics"
	"github.com/starford/haven/internal/models"
	"github.com/starford/haven/internal/snapshot"
	"github.com/starford/haven/internal/sse"
)

type (
	ContactStore = entity.Store[models.Contact, models.ContactDraft]
	KeywordStore = entity.Store[models.KeywordRule, models.KeywordDraft]
)

// Events receives change notifications, typically an *sse.Broker.
type Events interface {
	PublishChange(collection, kind, id string)
	Publish(event sse.Event)
}

// Options configures a Service. Everything except the adapter is optional.
type Options struct {
	IDs      ident.Generator
	Logger   *slog.Logger
	Metrics  *metrics.Collector
	Events   Events
	Notifier alert.Notifier
	Alerts   alert.Config
	Places   []models.SafePlace // defaults to directory.Default()
}

// Service is the application facade used by every transport.
type Service struct {
	contacts *ContactStore
	keywords *KeywordStore
	places   []models.SafePlace
	alerts   *alert.Dispatcher
	events   Events
	logger   *slog.Logger
}

// New builds the stores on top of adapter. Call Initialize before use.
func New(adapter *snapshot.Adapter, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Places == nil {
		opts.Places = directory.Default()
	}
	s := &Service{
		places: opts.Places,
		events: opts.Events,
		logger: opts.Logger,
	}

	storeOpts := entity.Options{
		Adapter:  adapter,
		IDs:      opts.IDs,
		Logger:   opts.Logger,
		Metrics:  opts.Metrics,
		OnChange: s.onChange,
	}
	s.contacts = entity.NewStore[models.Contact, models.ContactDraft](models.ContactsKey, models.DefaultContacts(), storeOpts)
	s.keywords = entity.NewStore[models.KeywordRule, models.KeywordDraft](models.KeywordsKey, models.DefaultKeywords(), storeOpts)
	s.alerts = alert.NewDispatcher(s.Contacts, opts.Notifier, opts.Alerts, opts.Logger, opts.Metrics)
	return s
}

// Initialize loads both collections from storage.
func (s *Service) Initialize(ctx context.Context) {
	c := s.contacts.Initialize(ctx)
	k := s.keywords.Initialize(ctx)
	s.logger.Info("collections loaded",
		slog.Int("contacts", len(c)),
		slog.Int("keywords", len(k)))
}

// Reload re-reads the collection stored under key. Unknown keys are ignored.
func (s *Service) Reload(ctx context.Context, key string) bool {
	switch key {
	case models.ContactsKey:
		s.contacts.Reload(ctx)
	case models.KeywordsKey:
		s.keywords.Reload(ctx)
	default:
		return false
	}
	return true
}

// Contacts returns the current emergency contacts.
func (s *Service) Contacts() []models.Contact {
	return s.contacts.Current()
}

// AddContact validates d and appends it. Errors wrap apperr.ErrInvalid.
func (s *Service) AddContact(ctx context.Context, d models.ContactDraft) (models.Contact, error) {
	if err := d.Validate(); err != nil {
		return models.Contact{}, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	c, ok := s.contacts.Create(ctx, d)
	if !ok {
		return models.Contact{}, apperr.ErrInvalid
	}
	return c, nil
}

// RemoveContact deletes the contact with id and reports whether it existed.
func (s *Service) RemoveContact(ctx context.Context, id string) bool {
	return s.contacts.Delete(ctx, id)
}

// Keywords returns the current keyword rules.
func (s *Service) Keywords() []models.KeywordRule {
	return s.keywords.Current()
}

// AddKeyword validates d and appends it. Errors wrap apperr.ErrInvalid.
func (s *Service) AddKeyword(ctx context.Context, d models.KeywordDraft) (models.KeywordRule, error) {
	if err := d.Validate(); err != nil {
		return models.KeywordRule{}, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	k, ok := s.keywords.Create(ctx, d)
	if !ok {
		return models.KeywordRule{}, apperr.ErrInvalid
	}
	return k, nil
}

// RemoveKeyword deletes the rule with id and reports whether it existed.
func (s *Service) RemoveKeyword(ctx context.Context, id string) bool {
	return s.keywords.Delete(ctx, id)
}

// MatchKeywords returns the rules triggered by message.
func (s *Service) MatchKeywords(message string) []models.KeywordRule {
	return keywords.Match(s.keywords.Current(), message)
}

// Places filters the directory. An unknown category wraps apperr.ErrInvalid.
func (s *Service) Places(query, category string) ([]models.SafePlace, error) {
	pt, err := models.ParsePlaceType(category)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	return directory.Filter(s.places, query, pt), nil
}

// Place returns one directory entry or apperr.ErrNotFound.
func (s *Service) Place(id string) (models.SafePlace, error) {
	p, ok := directory.Lookup(s.places, id)
	if !ok {
		return models.SafePlace{}, apperr.ErrNotFound
	}
	return p, nil
}

// Directory returns a copy of the full directory.
func (s *Service) Directory() []models.SafePlace {
	return directory.Filter(s.places, "", "")
}

// Categories lists the directory categories.
func (s *Service) Categories() []directory.Category {
	return directory.Categories()
}

// TriggerAlert notifies every current contact.
func (s *Service) TriggerAlert(ctx context.Context, location string) (alert.Alert, error) {
	a, err := s.alerts.Trigger(ctx, location)
	if err != nil {
		return alert.Alert{}, err
	}
	if s.events != nil {
		s.events.Publish(sse.Event{Type: sse.TypeAlertSent, Data: map[string]any{
			"id":       a.ID,
			"contacts": len(a.Notifications),
		}})
	}
	return a, nil
}

// eventNames maps storage keys to the collection names used in change events.
var eventNames = map[string]string{
	models.ContactsKey: "contacts",
	models.KeywordsKey: "keywords",
}

func (s *Service) onChange(ch entity.Change) {
	if s.events == nil {
		return
	}
	name, ok := eventNames[ch.Collection]
	if !ok {
		name = ch.Collection
	}
	s.events.PublishChange(name, string(ch.Kind), ch.ID)
}
