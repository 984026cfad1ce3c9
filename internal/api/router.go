package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/haven/internal/safety"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *safety.Service, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	r.Route("/contacts", func(r chi.Router) {
		r.Get("/", h.ListContacts)
		r.Post("/", h.CreateContact)
		r.Delete("/{id}", h.DeleteContact)
	})

	r.Route("/keywords", func(r chi.Router) {
		r.Get("/", h.ListKeywords)
		r.Post("/", h.CreateKeyword)
		r.Post("/match", h.MatchKeywords)
		r.Delete("/{id}", h.DeleteKeyword)
	})

	r.Route("/places", func(r chi.Router) {
		r.Get("/", h.ListPlaces)
		r.Get("/categories", h.ListCategories)
		r.Get("/{id}", h.GetPlace)
	})

	r.Post("/alerts", h.TriggerAlert)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
