package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all company routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/companies", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleUpsert)
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGet(w, r, chi.URLParam(r, "id"))
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleDelete(w, r, chi.URLParam(r, "id"))
		})
	})
}
