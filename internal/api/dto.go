package api

import (
	"github.com/starford/haven/internal/directory"
	"github.com/starford/haven/internal/models"
)

// ContactListResponse wraps the emergency contacts.
type ContactListResponse struct {
	Contacts []models.Contact `json:"contacts"`
}

// KeywordListResponse wraps the keyword rules.
type KeywordListResponse struct {
	Keywords []models.KeywordRule `json:"keywords"`
}

// MatchRequest is the body of POST /keywords/match.
type MatchRequest struct {
	Message string `json:"message" example:"code red, call me asap"`
}

// MatchResponse lists the rules a message triggered.
type MatchResponse struct {
	Matches []models.KeywordRule `json:"matches"`
}

// PlaceListResponse wraps a filtered directory.
type PlaceListResponse struct {
	Places []models.SafePlace `json:"places"`
}

// CategoryListResponse lists the directory categories.
type CategoryListResponse struct {
	Categories []directory.Category `json:"categories"`
}

// AlertRequest is the optional body of POST /alerts.
type AlertRequest struct {
	Location string `json:"location" example:"Main St & 5th"`
}
