package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all market data routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sectors", h.HandleListSectors)

	r.Route("/comparables", func(r chi.Router) {
		r.Post("/", h.HandleUpsertComparables)
		r.Get("/{sector}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetComparables(w, r, chi.URLParam(r, "sector"))
		})
	})

	r.Route("/indices", func(r chi.Router) {
		r.Get("/", h.HandleListIndices)
		r.Get("/{name}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetIndex(w, r, chi.URLParam(r, "name"))
		})
		r.Post("/{name}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleUpsertIndex(w, r, chi.URLParam(r, "name"))
		})
		r.Get("/{name}/stats", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetIndexStats(w, r, chi.URLParam(r, "name"))
		})
	})
}
