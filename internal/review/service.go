// Package review manages reviews, their moderation, and the
// age-weighted rating aggregates other services consume.
package review

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/addisrent/addisrent/internal/cache"
	"github.com/addisrent/addisrent/internal/events"
	"github.com/addisrent/addisrent/internal/locks"
	"github.com/addisrent/addisrent/internal/model"
	"github.com/addisrent/addisrent/internal/store"
	"github.com/addisrent/addisrent/internal/trust"
)

var (
	ErrDuplicateReview  = errors.New("review already exists for this booking")
	ErrReviewNotFound   = errors.New("review not found")
	ErrReportNotFound   = errors.New("report not found")
	ErrNotAuthorized    = errors.New("not authorized for this review")
	ErrAlreadyResponded = errors.New("review already has a response")
	ErrAlreadyResolved  = errors.New("report already resolved")
)

// TrustRecorder receives the REVIEW_RECEIVED events new reviews emit
// for user targets.
type TrustRecorder interface {
	RecordEvent(ctx context.Context, userID string, event model.TrustEvent) (model.TrustProfile, model.TrustChange, error)
}

type Service struct {
	store     store.ReviewStore
	trust     TrustRecorder
	stats     *cache.View[model.RatingStats]
	publisher *events.Publisher
	locks     locks.Keyed
}

func NewService(st store.ReviewStore, tr TrustRecorder, stats *cache.View[model.RatingStats], pub *events.Publisher) *Service {
	return &Service{store: st, trust: tr, stats: stats, publisher: pub}
}

// Create records a review for a completed booking. One review per
// booking per reviewer; the target user's trust score moves with the
// rating.
func (s *Service) Create(ctx context.Context, reviewerID, reviewerName string, req model.CreateReviewRequest) (model.Review, error) {
	unlock := s.locks.Lock("review:" + req.BookingID + ":" + reviewerID)
	defer unlock()

	existing, err := s.store.ListReviewsByReviewer(ctx, reviewerID)
	if err != nil {
		return model.Review{}, fmt.Errorf("list reviews: %w", err)
	}
	for _, r := range existing {
		if r.BookingID == req.BookingID {
			return model.Review{}, fmt.Errorf("%w: booking %s", ErrDuplicateReview, req.BookingID)
		}
	}

	now := time.Now().UTC()
	r := model.Review{
		ID:           generateID("rev"),
		BookingID:    req.BookingID,
		ReviewerID:   reviewerID,
		ReviewerName: reviewerName,
		TargetID:     req.TargetID,
		TargetType:   req.TargetType,
		Rating:       req.Rating,
		Comment:      req.Comment,
		Pros:         req.Pros,
		Cons:         req.Cons,
		Images:       req.Images,
		IsAnonymous:  req.IsAnonymous,
		Verified:     true, // reviews enter through the booking flow
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if r.IsAnonymous {
		r.ReviewerName = ""
	}
	if err := s.store.SaveReview(ctx, r); err != nil {
		return model.Review{}, fmt.Errorf("save review: %w", err)
	}
	s.stats.Invalidate(ctx, statsKey(req.TargetID, req.TargetType))

	slog.InfoContext(ctx, "review_created",
		"review_id", r.ID,
		"booking_id", r.BookingID,
		"target_id", r.TargetID,
		"rating", r.Rating,
	)

	if s.trust != nil && req.TargetType == model.TargetUser {
		_, _, err := s.trust.RecordEvent(ctx, req.TargetID, model.TrustEvent{
			Kind:       model.EventReviewReceived,
			Rating:     req.Rating,
			Reason:     fmt.Sprintf("%d-star review on booking %s", req.Rating, req.BookingID),
			ActorID:    reviewerID,
			OccurredAt: now,
		})
		if err != nil {
			slog.WarnContext(ctx, "trust_event_failed", "user_id", req.TargetID, "error", err)
		}
	}

	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, events.EventReviewCreated, r.ID, map[string]any{
			"review_id":   r.ID,
			"booking_id":  r.BookingID,
			"reviewer_id": reviewerID,
			"target_id":   r.TargetID,
			"target_type": string(r.TargetType),
			"rating":      r.Rating,
		})
	}

	return r, nil
}

// Get returns one review.
func (s *Service) Get(ctx context.Context, reviewID string) (model.Review, error) {
	r, err := s.store.GetReview(ctx, reviewID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Review{}, fmt.Errorf("%w: %s", ErrReviewNotFound, reviewID)
	}
	return r, err
}

// List returns a filtered, sorted page of a target's reviews plus the
// total match count before pagination.
func (s *Service) List(ctx context.Context, targetID string, q model.ReviewQuery) ([]model.Review, int, error) {
	all, err := s.store.ListReviewsByTarget(ctx, targetID)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}

	filtered := all[:0:0]
	for _, r := range all {
		if q.MinRating > 0 && r.Rating < q.MinRating {
			continue
		}
		if q.HasImages && len(r.Images) == 0 {
			continue
		}
		if q.Verified && !r.Verified {
			continue
		}
		filtered = append(filtered, r)
	}

	sortReviews(filtered, q.SortBy, q.SortOrder)

	total := len(filtered)
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= total {
		return []model.Review{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return filtered[start:end], total, nil
}

// ByReviewer returns everything one user has written.
func (s *Service) ByReviewer(ctx context.Context, reviewerID string) ([]model.Review, error) {
	return s.store.ListReviewsByReviewer(ctx, reviewerID)
}

// Stats aggregates a target's reviews: age-weighted average, star
// distribution, the plain average over the last 30 days, and the share
// of verified reviews.
func (s *Service) Stats(ctx context.Context, targetID string, targetType model.TargetType) (model.RatingStats, error) {
	key := statsKey(targetID, targetType)
	if st, ok := s.stats.Get(ctx, key); ok {
		return st, nil
	}

	all, err := s.store.ListReviewsByTarget(ctx, targetID)
	if err != nil {
		return model.RatingStats{}, fmt.Errorf("list reviews: %w", err)
	}

	now := time.Now().UTC()
	avg, total := trust.AggregateRating(all, now)

	st := model.RatingStats{
		TargetID:      targetID,
		TargetType:    targetType,
		AverageRating: avg,
		TotalReviews:  total,
		Distribution:  map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}

	var verified, recentCount, recentSum int
	cutoff := now.AddDate(0, 0, -30)
	for _, r := range all {
		if r.Rating >= 1 && r.Rating <= 5 {
			st.Distribution[r.Rating]++
		}
		if r.Verified {
			verified++
		}
		if r.CreatedAt.After(cutoff) {
			recentCount++
			recentSum += r.Rating
		}
	}
	if recentCount > 0 {
		st.RecentTrend = float64(int(float64(recentSum)/float64(recentCount)*10+0.5)) / 10
	}
	if total > 0 {
		st.VerifiedPercentage = float64(int(float64(verified)/float64(total)*1000+0.5)) / 10
	}

	s.stats.Set(ctx, key, st)
	return st, nil
}

// Update lets the author revise rating or comment.
func (s *Service) Update(ctx context.Context, reviewID, reviewerID string, req model.UpdateReviewRequest) (model.Review, error) {
	unlock := s.locks.Lock("review-id:" + reviewID)
	defer unlock()

	r, err := s.Get(ctx, reviewID)
	if err != nil {
		return model.Review{}, err
	}
	if r.ReviewerID != reviewerID {
		return model.Review{}, ErrNotAuthorized
	}

	if req.Rating != nil {
		r.Rating = *req.Rating
	}
	if req.Comment != nil {
		r.Comment = *req.Comment
	}
	r.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateReview(ctx, r); err != nil {
		return model.Review{}, fmt.Errorf("update review: %w", err)
	}
	s.stats.Invalidate(ctx, statsKey(r.TargetID, r.TargetType))
	return r, nil
}

// Delete removes the author's own review.
func (s *Service) Delete(ctx context.Context, reviewID, reviewerID string) error {
	unlock := s.locks.Lock("review-id:" + reviewID)
	defer unlock()

	r, err := s.Get(ctx, reviewID)
	if err != nil {
		return err
	}
	if r.ReviewerID != reviewerID {
		return ErrNotAuthorized
	}
	if err := s.store.DeleteReview(ctx, reviewID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	s.stats.Invalidate(ctx, statsKey(r.TargetID, r.TargetType))
	return nil
}

// MarkHelpful counts one helpful vote per user per review. Repeat
// votes are no-ops; the author cannot vote for themselves.
func (s *Service) MarkHelpful(ctx context.Context, reviewID, userID string) (model.Review, error) {
	unlock := s.locks.Lock("review-id:" + reviewID)
	defer unlock()

	r, err := s.Get(ctx, reviewID)
	if err != nil {
		return model.Review{}, err
	}
	if r.ReviewerID == userID {
		return model.Review{}, ErrNotAuthorized
	}
	for _, voter := range r.HelpfulBy {
		if voter == userID {
			return r, nil
		}
	}
	r.HelpfulBy = append(r.HelpfulBy, userID)
	r.Helpful = len(r.HelpfulBy)
	if err := s.store.UpdateReview(ctx, r); err != nil {
		return model.Review{}, fmt.Errorf("update review: %w", err)
	}
	return r, nil
}

// Respond attaches the reviewed user's single reply.
func (s *Service) Respond(ctx context.Context, reviewID, responderID, comment string) (model.Review, error) {
	unlock := s.locks.Lock("review-id:" + reviewID)
	defer unlock()

	r, err := s.Get(ctx, reviewID)
	if err != nil {
		return model.Review{}, err
	}
	if r.TargetType == model.TargetUser && r.TargetID != responderID {
		return model.Review{}, ErrNotAuthorized
	}
	if r.Response != nil {
		return model.Review{}, ErrAlreadyResponded
	}

	r.Response = &model.ReviewResponse{
		ID:          generateID("rsp"),
		ResponderID: responderID,
		Comment:     comment,
		CreatedAt:   time.Now().UTC(),
	}
	r.UpdatedAt = r.Response.CreatedAt
	if err := s.store.UpdateReview(ctx, r); err != nil {
		return model.Review{}, fmt.Errorf("update review: %w", err)
	}
	return r, nil
}

// Report flags a review for moderation.
func (s *Service) Report(ctx context.Context, reviewID, reporterID string, req model.ReportReviewRequest) (model.ReviewReport, error) {
	if _, err := s.Get(ctx, reviewID); err != nil {
		return model.ReviewReport{}, err
	}

	rep := model.ReviewReport{
		ID:          generateID("rpt"),
		ReviewID:    reviewID,
		ReporterID:  reporterID,
		Reason:      req.Reason,
		Description: req.Description,
		Status:      model.ReportPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.SaveReport(ctx, rep); err != nil {
		return model.ReviewReport{}, fmt.Errorf("save report: %w", err)
	}

	slog.InfoContext(ctx, "review_reported",
		"report_id", rep.ID,
		"review_id", reviewID,
		"reason", req.Reason,
	)

	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, events.EventReviewReported, rep.ID, map[string]any{
			"report_id":   rep.ID,
			"review_id":   reviewID,
			"reporter_id": reporterID,
			"reason":      req.Reason,
		})
	}
	return rep, nil
}

// ResolveReport closes a pending report. A RESOLVED outcome takes the
// offending review down; REJECTED leaves it in place.
func (s *Service) ResolveReport(ctx context.Context, reportID, adminID string, status model.ReportStatus) (model.ReviewReport, error) {
	rep, err := s.store.GetReport(ctx, reportID)
	if errors.Is(err, store.ErrNotFound) {
		return model.ReviewReport{}, fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
	}
	if err != nil {
		return model.ReviewReport{}, fmt.Errorf("load report: %w", err)
	}
	if rep.Status != model.ReportPending {
		return model.ReviewReport{}, fmt.Errorf("%w: report is %s", ErrAlreadyResolved, rep.Status)
	}

	now := time.Now().UTC()
	rep.Status = status
	rep.ResolvedAt = &now
	rep.ResolvedBy = adminID
	if err := s.store.UpdateReport(ctx, rep); err != nil {
		return model.ReviewReport{}, fmt.Errorf("update report: %w", err)
	}

	if status == model.ReportResolved {
		if r, err := s.store.GetReview(ctx, rep.ReviewID); err == nil {
			if err := s.store.DeleteReview(ctx, rep.ReviewID); err != nil {
				slog.ErrorContext(ctx, "moderated_review_delete_failed", "review_id", rep.ReviewID, "error", err)
			} else {
				s.stats.Invalidate(ctx, statsKey(r.TargetID, r.TargetType))
			}
		}
	}

	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, events.EventReviewReportResolved, rep.ID, map[string]any{
			"report_id": rep.ID,
			"review_id": rep.ReviewID,
			"status":    string(status),
		})
	}
	return rep, nil
}

func sortReviews(reviews []model.Review, by, order string) {
	less := func(a, b model.Review) bool { return a.CreatedAt.After(b.CreatedAt) }
	switch by {
	case "rating":
		less = func(a, b model.Review) bool { return a.Rating > b.Rating }
	case "helpful":
		less = func(a, b model.Review) bool { return a.Helpful > b.Helpful }
	}
	sort.SliceStable(reviews, func(i, j int) bool {
		if order == "asc" {
			return less(reviews[j], reviews[i])
		}
		return less(reviews[i], reviews[j])
	})
}

func statsKey(targetID string, targetType model.TargetType) string {
	return string(targetType) + ":" + targetID
}

func generateID(prefix string) string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return prefix + "_" + hex.EncodeToString(b[:8])
}
