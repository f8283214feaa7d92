// Package handlers provides HTTP handlers for running and retrieving valuations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/vcaudit/internal/domain"
	"github.com/aristath/vcaudit/internal/httpapi"
	"github.com/aristath/vcaudit/internal/modules/valuation"
	vdomain "github.com/aristath/vcaudit/internal/modules/valuation/domain"
)

// maxBatchSize bounds the number of companies one batch request may value.
const maxBatchSize = 100

var errNoStore = errors.New("no result store configured")

// Handler handles valuation HTTP requests
type Handler struct {
	service *valuation.Service
	store   valuation.ResultStore
	log     zerolog.Logger
}

// NewHandler creates a new valuation handler. store may be nil, in which case the
// saved-valuation endpoints report an internal error.
func NewHandler(service *valuation.Service, store valuation.ResultStore, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		store:   store,
		log:     log.With().Str("handler", "valuation").Logger(),
	}
}

// RunRequest is the body of POST /api/valuations and POST /api/valuations/run-and-save.
// Company, when set, is valued directly instead of loading CompanyID.
type RunRequest struct {
	Company   *domain.CompanyData `json:"company,omitempty"`
	AsOf      domain.Date         `json:"as_of_date"`
	CompanyID string              `json:"company_id"`
	IndexName string              `json:"index_name"`
}

// CustomRequest is the body of POST /api/valuations/custom.
type CustomRequest struct {
	Company   domain.CompanyData `json:"company"`
	AsOf      domain.Date        `json:"as_of_date"`
	IndexName string             `json:"index_name"`
}

// BatchRequest is the body of POST /api/valuations/batch.
type BatchRequest struct {
	AsOf       domain.Date `json:"as_of_date"`
	IndexName  string      `json:"index_name"`
	CompanyIDs []string    `json:"company_ids"`
}

// HandleRun handles POST /api/valuations
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, httpapi.BadRequest("body", "invalid JSON: "+err.Error()))
		return
	}
	if req.CompanyID == "" {
		h.writeError(w, httpapi.BadRequest("company_id", "is required"))
		return
	}

	result, err := h.service.Run(r.Context(), valuation.Request{
		CompanyID: req.CompanyID,
		AsOf:      req.AsOf,
		IndexName: req.IndexName,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleRunCustom handles POST /api/valuations/custom
func (h *Handler) HandleRunCustom(w http.ResponseWriter, r *http.Request) {
	var req CustomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, httpapi.BadRequest("body", "invalid JSON: "+err.Error()))
		return
	}

	result, err := h.service.RunCustom(r.Context(), req.Company, req.AsOf, req.IndexName)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleRunBatch handles POST /api/valuations/batch
// Failures are reported per company; the request itself only fails on a bad body.
func (h *Handler) HandleRunBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, httpapi.BadRequest("body", "invalid JSON: "+err.Error()))
		return
	}
	if len(req.CompanyIDs) > maxBatchSize {
		h.writeError(w, httpapi.BadRequest("company_ids", "at most "+strconv.Itoa(maxBatchSize)+" companies per batch"))
		return
	}

	items := h.service.RunBatch(r.Context(), req.CompanyIDs, req.AsOf, req.IndexName)

	failed := 0
	for _, item := range items {
		if item.Error != nil {
			failed++
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"results":   items,
		"total":     len(items),
		"succeeded": len(items) - failed,
		"failed":    failed,
	})
}

// HandleRunAndSave handles POST /api/valuations/run-and-save
func (h *Handler) HandleRunAndSave(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, httpapi.BadRequest("body", "invalid JSON: "+err.Error()))
		return
	}

	var (
		result *vdomain.ValuationResult
		err    error
	)
	switch {
	case req.Company != nil:
		result, err = h.service.RunCustomAndSave(r.Context(), *req.Company, req.AsOf, req.IndexName)
	case req.CompanyID != "":
		result, err = h.service.RunAndSave(r.Context(), valuation.Request{
			CompanyID: req.CompanyID,
			AsOf:      req.AsOf,
			IndexName: req.IndexName,
		})
	default:
		err = httpapi.BadRequest("company_id", "company_id or company is required")
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Info().Str("valuation_id", result.ID.String()).Str("company_id", result.CompanyID).Msg("Valuation saved")
	h.writeJSON(w, http.StatusCreated, result)
}

// HandleGetConfig handles GET /api/valuations/config
// Returns the active parameters, their hashed snapshot form and the registered methods.
func (h *Handler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	engine := h.service.Engine()
	cfg := engine.Config()
	registry := engine.Registry()

	methods := make([]map[string]interface{}, 0)
	for _, id := range registry.IDs() {
		priority, _ := registry.Priority(id)
		methods = append(methods, map[string]interface{}{
			"id":       id,
			"name":     id.DisplayName(),
			"priority": priority,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"config":        cfg,
		"snapshot":      cfg.Snapshot(),
		"methods":       methods,
		"default_index": h.service.DefaultIndex(),
	})
}

// HandleListSaved handles GET /api/valuations/saved?limit=&offset=
func (h *Handler) HandleListSaved(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, errNoStore)
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		h.writeError(w, err)
		return
	}

	saved, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"valuations": saved,
		"count":      len(saved),
	})
}

// HandleGetSaved handles GET /api/valuations/saved/{id}
func (h *Handler) HandleGetSaved(w http.ResponseWriter, r *http.Request, rawID string) {
	if h.store == nil {
		h.writeError(w, errNoStore)
		return
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		h.writeError(w, httpapi.BadRequest("id", "must be a UUID"))
		return
	}

	result, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleDeleteSaved handles DELETE /api/valuations/saved/{id}
func (h *Handler) HandleDeleteSaved(w http.ResponseWriter, r *http.Request, rawID string) {
	if h.store == nil {
		h.writeError(w, errNoStore)
		return
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		h.writeError(w, httpapi.BadRequest("id", "must be a UUID"))
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Info().Str("valuation_id", id.String()).Msg("Saved valuation deleted")
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, httpapi.BadRequest(name, "must be an integer")
	}
	return v, nil
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes err as a structured error body with the status for its code
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := httpapi.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	h.writeJSON(w, status, domain.NewErrorInfo(err))
}
