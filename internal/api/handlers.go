package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/haven/internal/alert"
	"github.com/starford/haven/internal/apperr"
	"github.com/starford/haven/internal/models"
	"github.com/starford/haven/internal/safety"
)

// Handler holds API route handlers.
type Handler struct {
	svc *safety.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *safety.Service) *Handler {
	return &Handler{svc: svc}
}

// ListContacts handles GET /api/contacts.
//
//	@Summary	List emergency contacts
//	@Tags		contacts
//	@Produce	json
//	@Success	200	{object}	ContactListResponse
//	@Router		/contacts [get]
func (h *Handler) ListContacts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ContactListResponse{Contacts: h.svc.Contacts()})
}

// CreateContact handles POST /api/contacts.
//
//	@Summary	Add an emergency contact
//	@Tags		contacts
//	@Accept		json
//	@Produce	json
//	@Param		body	body		models.ContactDraft	true	"Contact to add"
//	@Success	201		{object}	models.Contact
//	@Failure	400		{object}	errResponse
//	@Router		/contacts [post]
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var d models.ContactDraft
	if err := decodeJSON(w, r, &d, false); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	c, err := h.svc.AddContact(r.Context(), d)
	if err != nil {
		writeServiceError(w, "create contact", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// DeleteContact handles DELETE /api/contacts/{id}. Deleting an unknown id
// is not an error.
//
//	@Summary	Remove an emergency contact
//	@Tags		contacts
//	@Param		id	path	string	true	"Contact id"
//	@Success	204
//	@Router		/contacts/{id} [delete]
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	h.svc.RemoveContact(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// ListKeywords handles GET /api/keywords.
func (h *Handler) ListKeywords(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, KeywordListResponse{Keywords: h.svc.Keywords()})
}

// CreateKeyword handles POST /api/keywords.
func (h *Handler) CreateKeyword(w http.ResponseWriter, r *http.Request) {
	var d models.KeywordDraft
	if err := decodeJSON(w, r, &d, false); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	k, err := h.svc.AddKeyword(r.Context(), d)
	if err != nil {
		writeServiceError(w, "create keyword", err)
		return
	}
	writeJSON(w, http.StatusCreated, k)
}

// DeleteKeyword handles DELETE /api/keywords/{id}.
func (h *Handler) DeleteKeyword(w http.ResponseWriter, r *http.Request) {
	h.svc.RemoveKeyword(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// MatchKeywords handles POST /api/keywords/match.
//
//	@Summary	Find the keyword rules a message triggers
//	@Tags		keywords
//	@Accept		json
//	@Produce	json
//	@Param		body	body		MatchRequest	true	"Message to scan"
//	@Success	200		{object}	MatchResponse
//	@Router		/keywords/match [post]
func (h *Handler) MatchKeywords(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	writeJSON(w, http.StatusOK, MatchResponse{Matches: h.svc.MatchKeywords(req.Message)})
}

// ListPlaces handles GET /api/places?q=&type=.
//
//	@Summary	Search the safe-place directory
//	@Tags		places
//	@Produce	json
//	@Param		q		query		string	false	"Name or address substring"
//	@Param		type	query		string	false	"Category"	Enums(police, hospital, shelter, public)
//	@Success	200		{object}	PlaceListResponse
//	@Failure	400		{object}	errResponse
//	@Router		/places [get]
func (h *Handler) ListPlaces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	places, err := h.svc.Places(q.Get("q"), q.Get("type"))
	if err != nil {
		writeServiceError(w, "list places", err)
		return
	}
	writeJSON(w, http.StatusOK, PlaceListResponse{Places: places})
}

// GetPlace handles GET /api/places/{id}.
func (h *Handler) GetPlace(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Place(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "get place", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListCategories handles GET /api/places/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CategoryListResponse{Categories: h.svc.Categories()})
}

// TriggerAlert handles POST /api/alerts.
//
//	@Summary	Send an SOS alert to every emergency contact
//	@Tags		alerts
//	@Accept		json
//	@Produce	json
//	@Param		body	body		AlertRequest	false	"Optional location note"
//	@Success	201		{object}	alert.Alert
//	@Failure	409		{object}	errResponse
//	@Failure	429		{object}	errResponse
//	@Router		/alerts [post]
func (h *Handler) TriggerAlert(w http.ResponseWriter, r *http.Request) {
	var req AlertRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	a, err := h.svc.TriggerAlert(r.Context(), req.Location)
	if err != nil {
		writeServiceError(w, "trigger alert", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, alert.ErrNoContacts):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, alert.ErrCooldown):
		writeJSON(w, http.StatusTooManyRequests, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
