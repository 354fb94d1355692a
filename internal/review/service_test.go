package review

import (
	"context"
	"errors"
	"testing"

	"github.com/addisrent/addisrent/internal/model"
	"github.com/addisrent/addisrent/internal/store"
)

type trustRecorderStub struct {
	events []model.TrustEvent
	users  []string
}

func (t *trustRecorderStub) RecordEvent(_ context.Context, userID string, e model.TrustEvent) (model.TrustProfile, model.TrustChange, error) {
	t.events = append(t.events, e)
	t.users = append(t.users, userID)
	return model.TrustProfile{}, model.TrustChange{}, nil
}

func newTestService() (*Service, *trustRecorderStub) {
	tr := &trustRecorderStub{}
	return NewService(store.NewMemoryStore(), tr, nil, nil), tr
}

func createReq(bookingID string, rating int) model.CreateReviewRequest {
	return model.CreateReviewRequest{
		BookingID:  bookingID,
		TargetID:   "user_owner",
		TargetType: model.TargetUser,
		Rating:     rating,
		Comment:    "clean apartment, responsive owner",
	}
}

func TestCreateReview(t *testing.T) {
	ctx := context.Background()
	s, tr := newTestService()

	r, err := s.Create(ctx, "user_renter", "Abel T.", createReq("bk_1", 5))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if r.ID == "" || !r.Verified || r.Rating != 5 {
		t.Errorf("review = %+v", r)
	}

	if len(tr.events) != 1 {
		t.Fatalf("trust events = %d, want 1", len(tr.events))
	}
	if tr.users[0] != "user_owner" || tr.events[0].Kind != model.EventReviewReceived || tr.events[0].Rating != 5 {
		t.Errorf("trust event = %+v for %s", tr.events[0], tr.users[0])
	}
}

func TestCreateReviewDeduplicatesPerBooking(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	if _, err := s.Create(ctx, "user_renter", "Abel T.", createReq("bk_1", 5)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, "user_renter", "Abel T.", createReq("bk_1", 2)); !errors.Is(err, ErrDuplicateReview) {
		t.Errorf("second review error = %v, want ErrDuplicateReview", err)
	}
	// A different reviewer on the same booking is fine.
	if _, err := s.Create(ctx, "user_other", "Sara B.", createReq("bk_1", 4)); err != nil {
		t.Errorf("other reviewer error = %v", err)
	}
}

func TestCreateAnonymousReviewHidesName(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	req := createReq("bk_1", 4)
	req.IsAnonymous = true
	r, err := s.Create(ctx, "user_renter", "Abel T.", req)
	if err != nil {
		t.Fatal(err)
	}
	if r.ReviewerName != "" {
		t.Errorf("anonymous review carries name %q", r.ReviewerName)
	}
}

func TestListFiltersSortsAndPaginates(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	ratings := []int{5, 2, 4, 3, 5}
	for i, rating := range ratings {
		req := createReq("bk_"+string(rune('a'+i)), rating)
		if i == 0 {
			req.Images = []string{"img1.jpg"}
		}
		if _, err := s.Create(ctx, "user_"+string(rune('a'+i)), "", req); err != nil {
			t.Fatal(err)
		}
	}

	got, total, err := s.List(ctx, "user_owner", model.ReviewQuery{MinRating: 4})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(got) != 3 {
		t.Errorf("min-rating filter: total %d len %d, want 3", total, len(got))
	}

	got, total, _ = s.List(ctx, "user_owner", model.ReviewQuery{HasImages: true})
	if total != 1 || len(got) != 1 {
		t.Errorf("image filter: total %d, want 1", total)
	}

	got, _, _ = s.List(ctx, "user_owner", model.ReviewQuery{SortBy: "rating"})
	for i := 1; i < len(got); i++ {
		if got[i].Rating > got[i-1].Rating {
			t.Fatalf("rating sort broken: %d after %d", got[i].Rating, got[i-1].Rating)
		}
	}

	got, total, _ = s.List(ctx, "user_owner", model.ReviewQuery{Page: 2, Limit: 2})
	if total != 5 || len(got) != 2 {
		t.Errorf("page 2 of 5 with limit 2: total %d len %d", total, len(got))
	}
	got, _, _ = s.List(ctx, "user_owner", model.ReviewQuery{Page: 4, Limit: 2})
	if len(got) != 0 {
		t.Errorf("page past end = %d reviews, want 0", len(got))
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	for i, rating := range []int{5, 5, 4, 2} {
		if _, err := s.Create(ctx, "user_"+string(rune('a'+i)), "", createReq("bk_"+string(rune('a'+i)), rating)); err != nil {
			t.Fatal(err)
		}
	}

	st, err := s.Stats(ctx, "user_owner", model.TargetUser)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.TotalReviews != 4 {
		t.Errorf("TotalReviews = %d, want 4", st.TotalReviews)
	}
	// All reviews are same-aged, so the weighted mean is the plain mean.
	if st.AverageRating != 4.0 {
		t.Errorf("AverageRating = %v, want 4.0", st.AverageRating)
	}
	if st.Distribution[5] != 2 || st.Distribution[4] != 1 || st.Distribution[2] != 1 {
		t.Errorf("Distribution = %v", st.Distribution)
	}
	if st.VerifiedPercentage != 100.0 {
		t.Errorf("VerifiedPercentage = %v, want 100", st.VerifiedPercentage)
	}
	if st.RecentTrend != 4.0 {
		t.Errorf("RecentTrend = %v, want 4.0", st.RecentTrend)
	}
}

func TestStatsEmptyTargetIsNoData(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	st, err := s.Stats(ctx, "user_nobody", model.TargetUser)
	if err != nil {
		t.Fatal(err)
	}
	if st.AverageRating != 0 || st.TotalReviews != 0 {
		t.Errorf("empty stats = %+v, want zero values", st)
	}
}

func TestMarkHelpfulIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	r, _ := s.Create(ctx, "user_renter", "", createReq("bk_1", 5))

	for i := 0; i < 3; i++ {
		var err error
		r, err = s.MarkHelpful(ctx, r.ID, "user_voter")
		if err != nil {
			t.Fatal(err)
		}
	}
	if r.Helpful != 1 {
		t.Errorf("Helpful = %d after repeat votes, want 1", r.Helpful)
	}

	r, err := s.MarkHelpful(ctx, r.ID, "user_second")
	if err != nil {
		t.Fatal(err)
	}
	if r.Helpful != 2 {
		t.Errorf("Helpful = %d, want 2", r.Helpful)
	}

	if _, err := s.MarkHelpful(ctx, r.ID, "user_renter"); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("self-vote error = %v, want ErrNotAuthorized", err)
	}
}

func TestRespond(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	r, _ := s.Create(ctx, "user_renter", "", createReq("bk_1", 3))

	if _, err := s.Respond(ctx, r.ID, "user_stranger", "thanks"); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("stranger respond error = %v, want ErrNotAuthorized", err)
	}

	r, err := s.Respond(ctx, r.ID, "user_owner", "sorry about the water outage")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if r.Response == nil || r.Response.ResponderID != "user_owner" {
		t.Errorf("response = %+v", r.Response)
	}

	if _, err := s.Respond(ctx, r.ID, "user_owner", "again"); !errors.Is(err, ErrAlreadyResponded) {
		t.Errorf("second respond error = %v, want ErrAlreadyResponded", err)
	}
}

func TestUpdateAndDeleteAuthorOnly(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	r, _ := s.Create(ctx, "user_renter", "", createReq("bk_1", 5))

	newRating := 3
	if _, err := s.Update(ctx, r.ID, "user_other", model.UpdateReviewRequest{Rating: &newRating}); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("foreign update error = %v, want ErrNotAuthorized", err)
	}

	updated, err := s.Update(ctx, r.ID, "user_renter", model.UpdateReviewRequest{Rating: &newRating})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Rating != 3 {
		t.Errorf("Rating = %d, want 3", updated.Rating)
	}

	if err := s.Delete(ctx, r.ID, "user_other"); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("foreign delete error = %v, want ErrNotAuthorized", err)
	}
	if err := s.Delete(ctx, r.ID, "user_renter"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, r.ID); !errors.Is(err, ErrReviewNotFound) {
		t.Errorf("deleted review lookup error = %v, want ErrReviewNotFound", err)
	}
}

func TestReportAndResolve(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	r, _ := s.Create(ctx, "user_renter", "", createReq("bk_1", 1))

	rep, err := s.Report(ctx, r.ID, "user_owner", model.ReportReviewRequest{Reason: "abusive language"})
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if rep.Status != model.ReportPending {
		t.Errorf("report status = %s, want PENDING", rep.Status)
	}

	resolved, err := s.ResolveReport(ctx, rep.ID, "user_admin", model.ReportResolved)
	if err != nil {
		t.Fatalf("ResolveReport() error = %v", err)
	}
	if resolved.Status != model.ReportResolved || resolved.ResolvedBy != "user_admin" || resolved.ResolvedAt == nil {
		t.Errorf("resolved report = %+v", resolved)
	}

	// RESOLVED takes the review down.
	if _, err := s.Get(ctx, r.ID); !errors.Is(err, ErrReviewNotFound) {
		t.Errorf("moderated review lookup error = %v, want ErrReviewNotFound", err)
	}

	if _, err := s.ResolveReport(ctx, rep.ID, "user_admin", model.ReportRejected); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("double resolve error = %v, want ErrAlreadyResolved", err)
	}
}

func TestRejectedReportKeepsReview(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()

	r, _ := s.Create(ctx, "user_renter", "", createReq("bk_1", 1))
	rep, _ := s.Report(ctx, r.ID, "user_owner", model.ReportReviewRequest{Reason: "disagree"})

	if _, err := s.ResolveReport(ctx, rep.ID, "user_admin", model.ReportRejected); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, r.ID); err != nil {
		t.Errorf("review should survive a rejected report: %v", err)
	}
}
