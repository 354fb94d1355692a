package httpapi

import (
	"net/http"
	"strconv"

	"github.com/addisrent/addisrent/internal/middleware"
	"github.com/addisrent/addisrent/internal/model"
	"github.com/addisrent/addisrent/internal/review"
)

type ReviewHandlers struct {
	reviews *review.Service
}

func NewReviewHandlers(reviews *review.Service) *ReviewHandlers {
	return &ReviewHandlers{reviews: reviews}
}

// POST /v1/reviews
func (h *ReviewHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateReviewRequest
	if !decodeValid(w, r, &req) {
		return
	}

	// Display name comes from the identity service; the token only
	// carries the ID.
	rev, err := h.reviews.Create(r.Context(), middleware.GetUserID(r.Context()), "", req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, rev)
}

// GET /v1/reviews/target/{targetId}
func (h *ReviewHandlers) ListByTarget(w http.ResponseWriter, r *http.Request) {
	q := model.ReviewQuery{
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
		HasImages: r.URL.Query().Get("has_images") == "true",
		Verified:  r.URL.Query().Get("verified") == "true",
	}
	if s := r.URL.Query().Get("min_rating"); s != "" {
		q.MinRating, _ = strconv.Atoi(s)
	}
	if s := r.URL.Query().Get("page"); s != "" {
		q.Page, _ = strconv.Atoi(s)
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		q.Limit, _ = strconv.Atoi(s)
	}

	reviews, total, err := h.reviews.List(r.Context(), r.PathValue("targetId"), q)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"reviews": reviews,
		"total":   total,
	})
}

// GET /v1/reviews/target/{targetId}/stats?target_type=USER
func (h *ReviewHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	targetType := model.TargetType(r.URL.Query().Get("target_type"))
	if targetType == "" {
		targetType = model.TargetUser
	}

	stats, err := h.reviews.Stats(r.Context(), r.PathValue("targetId"), targetType)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// GET /v1/reviews/{reviewId}
func (h *ReviewHandlers) Get(w http.ResponseWriter, r *http.Request) {
	rev, err := h.reviews.Get(r.Context(), r.PathValue("reviewId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rev)
}

// GET /v1/reviews/user/me
func (h *ReviewHandlers) Mine(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.ByReviewer(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

// PUT /v1/reviews/{reviewId}
func (h *ReviewHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateReviewRequest
	if !decodeValid(w, r, &req) {
		return
	}

	rev, err := h.reviews.Update(r.Context(), r.PathValue("reviewId"), middleware.GetUserID(r.Context()), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rev)
}

// DELETE /v1/reviews/{reviewId}
func (h *ReviewHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.reviews.Delete(r.Context(), r.PathValue("reviewId"), middleware.GetUserID(r.Context())); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /v1/reviews/{reviewId}/helpful
func (h *ReviewHandlers) MarkHelpful(w http.ResponseWriter, r *http.Request) {
	rev, err := h.reviews.MarkHelpful(r.Context(), r.PathValue("reviewId"), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rev)
}

// POST /v1/reviews/{reviewId}/response
func (h *ReviewHandlers) Respond(w http.ResponseWriter, r *http.Request) {
	var req model.RespondReviewRequest
	if !decodeValid(w, r, &req) {
		return
	}

	rev, err := h.reviews.Respond(r.Context(), r.PathValue("reviewId"), middleware.GetUserID(r.Context()), req.Comment)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rev)
}

// POST /v1/reviews/{reviewId}/report
func (h *ReviewHandlers) Report(w http.ResponseWriter, r *http.Request) {
	var req model.ReportReviewRequest
	if !decodeValid(w, r, &req) {
		return
	}

	rep, err := h.reviews.Report(r.Context(), r.PathValue("reviewId"), middleware.GetUserID(r.Context()), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, rep)
}

// POST /v1/reviews/admin/reports/{reportId}/resolve
func (h *ReviewHandlers) ResolveReport(w http.ResponseWriter, r *http.Request) {
	var req model.ResolveReportRequest
	if !decodeValid(w, r, &req) {
		return
	}

	rep, err := h.reviews.ResolveReport(r.Context(), r.PathValue("reportId"), middleware.GetUserID(r.Context()), req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}
