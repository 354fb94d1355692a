package httpapi

import (
	"net/http"

	"github.com/addisrent/addisrent/internal/middleware"
	"github.com/addisrent/addisrent/internal/model"
	"github.com/addisrent/addisrent/internal/trust"
)

type TrustHandlers struct {
	trust *trust.Service
}

func NewTrustHandlers(svc *trust.Service) *TrustHandlers {
	return &TrustHandlers{trust: svc}
}

// GET /v1/trust/{userId}
func (h *TrustHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.trust.Profile(r.Context(), r.PathValue("userId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// GET /v1/trust/me
func (h *TrustHandlers) MyProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.trust.Profile(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// POST /v1/trust/{userId}/verifications
func (h *TrustHandlers) RecordVerification(w http.ResponseWriter, r *http.Request) {
	var req model.RecordVerificationRequest
	if !decodeValid(w, r, &req) {
		return
	}

	profile, change, err := h.trust.RecordVerification(r.Context(), r.PathValue("userId"), req.Type, middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"profile": profile,
		"change":  change,
	})
}

// POST /v1/trust/{userId}/events
func (h *TrustHandlers) RecordEvent(w http.ResponseWriter, r *http.Request) {
	var req model.TrustEventRequest
	if !decodeValid(w, r, &req) {
		return
	}

	event := model.TrustEvent{
		Kind:    req.Kind,
		Delta:   req.Delta,
		Reason:  req.Reason,
		ActorID: middleware.GetUserID(r.Context()),
	}
	profile, change, err := h.trust.RecordEvent(r.Context(), r.PathValue("userId"), event)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"profile": profile,
		"change":  change,
	})
}

// GET /v1/trust/{userId}/eligibility
func (h *TrustHandlers) Eligibility(w http.ResponseWriter, r *http.Request) {
	elig, err := h.trust.Eligibility(r.Context(), r.PathValue("userId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, elig)
}
