// Package handlers provides HTTP handlers for market reference data:
// sector comparables and index series.
package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/vcaudit/internal/domain"
	"github.com/aristath/vcaudit/internal/httpapi"
	"github.com/aristath/vcaudit/internal/modules/market"
	"github.com/aristath/vcaudit/pkg/formulas"
)

// Handler handles market data HTTP requests
type Handler struct {
	indices     *market.IndexRepository
	comparables *market.ComparablesRepository
	stats       *market.IndexService
	log         zerolog.Logger
}

// NewHandler creates a new market data handler
func NewHandler(
	indices *market.IndexRepository,
	comparables *market.ComparablesRepository,
	stats *market.IndexService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		indices:     indices,
		comparables: comparables,
		stats:       stats,
		log:         log.With().Str("handler", "market").Logger(),
	}
}

// SectorItem is one row of the sector listing
type SectorItem struct {
	Sector      string `json:"sector"`
	Comparables int    `json:"comparables"`
}

// ComparableView is a comparable company with its derived EV/Revenue multiple
type ComparableView struct {
	domain.ComparableCompany
	Multiple        string `json:"ev_revenue_multiple"`
	MultipleDisplay string `json:"ev_revenue_multiple_display"`
}

// ComparablesUpload is the body of POST /api/comparables
type ComparablesUpload struct {
	AsOf      domain.Date                `json:"as_of_date"`
	Companies []domain.ComparableCompany `json:"companies"`
}

// IndexUpload is the body of POST /api/indices/{name}
type IndexUpload struct {
	Points []domain.IndexPoint `json:"points"`
}

// HandleListSectors handles GET /api/sectors
func (h *Handler) HandleListSectors(w http.ResponseWriter, r *http.Request) {
	sectors, err := h.comparables.ListSectors(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	items := make([]SectorItem, 0, len(sectors))
	for sector, count := range sectors {
		items = append(items, SectorItem{Sector: sector, Comparables: count})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Sector < items[j].Sector })

	h.writeJSON(w, http.StatusOK, items)
}

// HandleGetComparables handles GET /api/comparables/{sector}
func (h *Handler) HandleGetComparables(w http.ResponseWriter, r *http.Request, sector string) {
	set, err := h.comparables.GetSet(r.Context(), sector)
	if err != nil {
		h.writeError(w, err)
		return
	}

	views := make([]ComparableView, len(set.Companies))
	for i, c := range set.Companies {
		multiple := c.Multiple()
		views[i] = ComparableView{
			ComparableCompany: c,
			Multiple:          multiple.StringFixed(2),
			MultipleDisplay:   formulas.FormatMultiple(multiple),
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"sector":     set.Sector,
		"as_of_date": set.AsOfDate,
		"companies":  views,
	})
}

// HandleUpsertComparables handles POST /api/comparables
func (h *Handler) HandleUpsertComparables(w http.ResponseWriter, r *http.Request) {
	var upload ComparablesUpload
	if err := json.NewDecoder(r.Body).Decode(&upload); err != nil {
		h.writeError(w, httpapi.BadRequest("body", "invalid JSON: "+err.Error()))
		return
	}
	if upload.AsOf.IsZero() {
		h.writeError(w, httpapi.BadRequest("as_of_date", "is required"))
		return
	}

	if err := h.comparables.Upsert(r.Context(), upload.AsOf, upload.Companies); err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Info().Int("companies", len(upload.Companies)).Msg("Comparables saved")
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"saved": len(upload.Companies)})
}

// HandleListIndices handles GET /api/indices
func (h *Handler) HandleListIndices(w http.ResponseWriter, r *http.Request) {
	names, err := h.indices.ListNames(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}

	h.writeJSON(w, http.StatusOK, names)
}

// HandleGetIndex handles GET /api/indices/{name}
func (h *Handler) HandleGetIndex(w http.ResponseWriter, r *http.Request, name string) {
	index, err := h.indices.GetSeries(r.Context(), name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, index)
}

// HandleGetIndexStats handles GET /api/indices/{name}/stats
func (h *Handler) HandleGetIndexStats(w http.ResponseWriter, r *http.Request, name string) {
	stats, err := h.stats.Stats(r.Context(), name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// HandleUpsertIndex handles POST /api/indices/{name}
func (h *Handler) HandleUpsertIndex(w http.ResponseWriter, r *http.Request, name string) {
	var upload IndexUpload
	if err := json.NewDecoder(r.Body).Decode(&upload); err != nil {
		h.writeError(w, httpapi.BadRequest("body", "invalid JSON: "+err.Error()))
		return
	}

	if err := h.indices.UpsertPoints(r.Context(), name, upload.Points); err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Info().Str("index", name).Int("points", len(upload.Points)).Msg("Index points saved")
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{"index": name, "saved": len(upload.Points)})
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
