package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hyperengineering/codex/internal/fingerprint"
	"github.com/hyperengineering/codex/internal/store"
	"github.com/hyperengineering/codex/internal/types"
	"github.com/hyperengineering/codex/internal/validation"
)

// Query limits for GET /api/v1/data.
const (
	DefaultQueryLimit = 100
	MaxQueryLimit     = 1000
)

// maxBodyBytes bounds request bodies; the largest legal write is well under it.
const maxBodyBytes = 1 << 20

// Handler implements the API handlers
type Handler struct {
	store   store.Store
	apiKey  string
	version string
}

// NewHandler creates a new Handler backed by s.
func NewHandler(s store.Store, apiKey, version string) *Handler {
	return &Handler{
		store:   s,
		apiKey:  apiKey,
		version: version,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		requestLogger(r.Context()).Error("health stats failed", "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "Store unavailable")
		return
	}

	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:         "healthy",
		Version:        h.version,
		AttributeCount: stats.AttributeCount,
		DataCount:      stats.DataCount,
	})
}

// ListAttributes handles GET /api/v1/attributes
func (h *Handler) ListAttributes(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListAttributes(r.Context())
	if err != nil {
		requestLogger(r.Context()).Error("list attributes failed", "error", err)
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.AttributesResponse{Attributes: entries})
}

// QueryData handles GET /api/v1/data?max=&min=&limit=
func (h *Handler) QueryData(w http.ResponseWriter, r *http.Request) {
	fp, err := fingerprintFromQuery(r)
	if err != nil {
		WriteProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}

	limit := DefaultQueryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteProblem(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxQueryLimit)
	}

	entries, err := h.store.QueryData(r.Context(), fp, limit)
	if err != nil {
		requestLogger(r.Context()).Error("query data failed", "error", err, "fingerprint", fp.String())
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.DataResponse{Data: entries})
}

// WriteData handles POST /api/v1/data
func (h *Handler) WriteData(w http.ResponseWriter, r *http.Request) {
	var req types.WriteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	if errs := validation.ValidateWriteRequest(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	resp, err := h.store.WriteData(r.Context(), req)
	if err != nil {
		requestLogger(r.Context()).Error("write data failed", "error", err, "attribute", req.AttributeText)
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// DeleteData handles DELETE /api/v1/data
func (h *Handler) DeleteData(w http.ResponseWriter, r *http.Request) {
	var req types.DeleteDataRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	if errs := validation.ValidateDeleteDataRequest(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	n, err := h.store.DeleteData(r.Context(), req)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	requestLogger(r.Context()).Info("data deleted", "count", n)
	writeJSON(w, http.StatusOK, types.DeleteResponse{Deleted: n})
}

// DeleteAttribute handles DELETE /api/v1/attributes?max=&min=[&text=]
func (h *Handler) DeleteAttribute(w http.ResponseWriter, r *http.Request) {
	fp, err := fingerprintFromQuery(r)
	if err != nil {
		WriteProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}

	n, err := h.store.DeleteAttribute(r.Context(), types.DeleteAttributeRequest{
		AttributeFingerprint: fp,
		Text:                 r.URL.Query().Get("text"),
	})
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	requestLogger(r.Context()).Info("attribute deleted", "count", n, "fingerprint", fp.String())
	writeJSON(w, http.StatusOK, types.DeleteResponse{Deleted: n})
}

// fingerprintFromQuery reads the max and min query parameters.
func fingerprintFromQuery(r *http.Request) (fingerprint.Fingerprint, error) {
	q := r.URL.Query()
	maxVal, err := strconv.ParseFloat(q.Get("max"), 64)
	if err != nil {
		return fingerprint.Invalid, fmt.Errorf("max must be a number")
	}
	minVal, err := strconv.ParseFloat(q.Get("min"), 64)
	if err != nil {
		return fingerprint.Invalid, fmt.Errorf("min must be a number")
	}
	fp := fingerprint.Fingerprint{Max: maxVal, Min: minVal}
	if !fp.Valid() {
		return fingerprint.Invalid, fmt.Errorf("fingerprint must be finite")
	}
	return fp, nil
}
