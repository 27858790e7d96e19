package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/brandforge/contentpilot/internal/domain"
)

// CreateBusiness adds a business profile for the authenticated user
func (h *Handlers) CreateBusiness(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	business, err := h.businessService.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, business)
}

// ListBusinesses returns the caller's business profiles in insertion order
func (h *Handlers) ListBusinesses(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Missing claims", "UNAUTHORIZED")
		return
	}

	businesses, err := h.businessService.List(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if businesses == nil {
		businesses = []domain.Business{}
	}

	selected, err := h.businessService.Selected(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"businesses":           businesses,
		"selected_business_id": selected,
	})
}
