// Package api exposes HTTP handlers for the mood tracking backend.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"example.com/moodtrack/internal/auth"
	"example.com/moodtrack/internal/domain"
)

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	checkins *domain.CheckinService
	passive  *domain.PassiveDataService
}

// NewHandler builds a Handler.
func NewHandler(checkins *domain.CheckinService, passive *domain.PassiveDataService) *Handler {
	return &Handler{checkins: checkins, passive: passive}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/checkins", h.checkinCollection)
	mux.HandleFunc("/v1/checkins/today", h.todaysCheckin)
	mux.HandleFunc("/v1/checkins/streak", h.streak)
	mux.HandleFunc("/v1/checkins/analytics", h.moodAnalytics)
	mux.HandleFunc("/v1/checkins/trends", h.moodTrends)
	mux.HandleFunc("/v1/checkins/", h.checkinByID)
	mux.HandleFunc("/v1/passive-data", h.pointCollection)
	mux.HandleFunc("/v1/passive-data/bulk", h.bulkIngest)
	mux.HandleFunc("/v1/passive-data/aggregate", h.aggregate)
	mux.HandleFunc("/v1/passive-data/health-metrics", h.healthMetrics)
	mux.HandleFunc("/v1/passive-data/unprocessed", h.unprocessed)
	mux.HandleFunc("/v1/passive-data/processed", h.markProcessed)
	mux.HandleFunc("/v1/passive-data/", h.pointByID)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// requireScope resolves the caller and enforces scope. Write scopes imply
// their read counterpart.
func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return claims, true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
	return nil, false
}

// writeDomainError maps domain error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	if verr, ok := domain.IsValidationError(err); ok {
		writeValidationError(w, verr)
		return
	}
	switch {
	case errors.Is(err, domain.ErrCheckinExists):
		writeError(w, http.StatusConflict, "checkin_exists", "a check-in already exists for today")
	case errors.Is(err, domain.ErrDuplicatePoint):
		writeError(w, http.StatusConflict, "duplicate_point", "an equivalent data point was already recorded")
	case errors.Is(err, domain.ErrCheckinNotFound):
		writeError(w, http.StatusNotFound, "not_found", "check-in not found")
	case errors.Is(err, domain.ErrPointNotFound):
		writeError(w, http.StatusNotFound, "not_found", "data point not found")
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeValidationError(w http.ResponseWriter, verr *domain.ValidationError) {
	fields := make([]FieldErrorView, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, FieldErrorView{Field: f.Field, Message: f.Message})
	}
	writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
		Type:   "validation_failed",
		Detail: verr.Error(),
		Fields: fields,
	})
}

// FieldErrorView reports one invalid field.
type FieldErrorView struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrorResponse is the body for 422 responses.
type ValidationErrorResponse struct {
	Type   string           `json:"type"`
	Detail string           `json:"detail"`
	Fields []FieldErrorView `json:"fields"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
