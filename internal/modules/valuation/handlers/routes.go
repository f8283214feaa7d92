package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all valuation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/valuations", func(r chi.Router) {
		r.Post("/", h.HandleRun)
		r.Post("/custom", h.HandleRunCustom)
		r.Post("/batch", h.HandleRunBatch)
		r.Post("/run-and-save", h.HandleRunAndSave)
		r.Get("/config", h.HandleGetConfig)

		r.Route("/saved", func(r chi.Router) {
			r.Get("/", h.HandleListSaved)
			r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetSaved(w, r, chi.URLParam(r, "id"))
			})
			r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleDeleteSaved(w, r, chi.URLParam(r, "id"))
			})
		})
	})
}
