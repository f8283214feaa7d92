// Package handlers provides HTTP handlers for portfolio company data.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/vcaudit/internal/domain"
	"github.com/aristath/vcaudit/internal/httpapi"
	"github.com/aristath/vcaudit/internal/modules/companies"
)

// Handler handles company HTTP requests
type Handler struct {
	repo *companies.Repository
	log  zerolog.Logger
}

// NewHandler creates a new company handler
func NewHandler(repo *companies.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "companies").Logger(),
	}
}

// CompanyListItem is one row of the company listing
type CompanyListItem struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Sector       string       `json:"sector"`
	Stage        domain.Stage `json:"stage"`
	HasLastRound bool         `json:"has_last_round"`
	HasRevenue   bool         `json:"has_revenue"`
}

// HandleList handles GET /api/companies
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.repo.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	items := make([]CompanyListItem, 0, len(all))
	for _, c := range all {
		items = append(items, CompanyListItem{
			ID:           c.Company.ID,
			Name:         c.Company.Name,
			Sector:       c.Company.Sector,
			Stage:        c.Company.Stage,
			HasLastRound: c.LastRound != nil,
			HasRevenue:   c.HasRevenue(),
		})
	}

	h.writeJSON(w, http.StatusOK, items)
}

// HandleGet handles GET /api/companies/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request, id string) {
	company, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, company)
}

// HandleUpsert handles POST /api/companies
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var company domain.CompanyData
	if err := json.NewDecoder(r.Body).Decode(&company); err != nil {
		h.writeError(w, httpapi.BadRequest("body", "invalid JSON: "+err.Error()))
		return
	}

	if err := h.repo.Upsert(r.Context(), company); err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Info().Str("company_id", company.Company.ID).Msg("Company saved")
	h.writeJSON(w, http.StatusCreated, company)
}

// HandleDelete handles DELETE /api/companies/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a structured error response
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := httpapi.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	h.writeJSON(w, status, domain.NewErrorInfo(err))
}
