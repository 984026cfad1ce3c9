// Package models defines the domain types for Haven.
package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Storage keys, one durable slot per user-authored list.
const (
	ContactsKey = "emergencyContacts"
	KeywordsKey = "safetyKeywords"
)

// Contact is an emergency contact notified when an alert fires.
type Contact struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation"`
}

// EntityID returns the contact identifier.
func (c Contact) EntityID() string { return c.ID }

// SnapshotFields lists the exact field set of a stored contact.
func (Contact) SnapshotFields() []string {
	return []string{"id", "name", "phone", "relation"}
}

// ContactDraft holds the fields of a contact before an id is assigned.
type ContactDraft struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation"`
}

// Validate requires every field to carry a non-blank value.
func (d ContactDraft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required, notBlank),
		validation.Field(&d.Phone, validation.Required, notBlank),
		validation.Field(&d.Relation, validation.Required, notBlank),
	)
}

// Build turns the draft into a contact with the given id.
func (d ContactDraft) Build(id string) Contact {
	return Contact{ID: id, Name: d.Name, Phone: d.Phone, Relation: d.Relation}
}

// KeywordRule maps a code phrase to the safety response it triggers.
type KeywordRule struct {
	ID       string `json:"id"`
	Phrase   string `json:"phrase"`
	Response string `json:"response"`
}

// EntityID returns the rule identifier.
func (k KeywordRule) EntityID() string { return k.ID }

// SnapshotFields lists the exact field set of a stored keyword rule.
func (KeywordRule) SnapshotFields() []string {
	return []string{"id", "phrase", "response"}
}

// KeywordDraft holds the fields of a keyword rule before an id is assigned.
type KeywordDraft struct {
	Phrase   string `json:"phrase"`
	Response string `json:"response"`
}

// Validate requires both phrase and response.
func (d KeywordDraft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Phrase, validation.Required, notBlank),
		validation.Field(&d.Response, validation.Required, notBlank),
	)
}

// Build turns the draft into a keyword rule with the given id.
func (d KeywordDraft) Build(id string) KeywordRule {
	return KeywordRule{ID: id, Phrase: d.Phrase, Response: d.Response}
}

// PlaceType is the category of a safe place.
type PlaceType string

const (
	PlacePolice   PlaceType = "police"
	PlaceHospital PlaceType = "hospital"
	PlaceShelter  PlaceType = "shelter"
	PlacePublic   PlaceType = "public"
)

// PlaceTypes lists every category in display order.
var PlaceTypes = []PlaceType{PlacePolice, PlaceHospital, PlaceShelter, PlacePublic}

// ParsePlaceType accepts an empty string (no category) or one of PlaceTypes.
func ParsePlaceType(s string) (PlaceType, error) {
	if s == "" {
		return "", nil
	}
	for _, t := range PlaceTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown place type %q", s)
}

// Label returns the human-readable category name.
func (t PlaceType) Label() string {
	switch t {
	case PlacePolice:
		return "Police"
	case PlaceHospital:
		return "Hospital"
	case PlaceShelter:
		return "Shelter"
	case PlacePublic:
		return "Public"
	default:
		return string(t)
	}
}

// SafePlace is a read-only entry of the nearby safe-place directory.
// Distance is a precomputed display string.
type SafePlace struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Address  string    `json:"address"`
	Distance string    `json:"distance"`
	Type     PlaceType `json:"type"`
	Phone    string    `json:"phone"`
	Hours    string    `json:"hours"`
}

var notBlank = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	// JSON snapshots cannot carry invalid UTF-8 unchanged.
	if !utf8.ValidString(s) {
		return errors.New("must be valid UTF-8")
	}
	return nil
})
