package trust

import (
	"testing"
	"time"

	"github.com/addisrent/addisrent/internal/model"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score int
		want  model.TrustLevel
	}{
		{0, model.TrustLevelNew},
		{10, model.TrustLevelNew},
		{29, model.TrustLevelNew},
		{30, model.TrustLevelBasic},
		{59, model.TrustLevelBasic},
		{60, model.TrustLevelVerified},
		{79, model.TrustLevelVerified},
		{80, model.TrustLevelTrusted},
		{100, model.TrustLevelTrusted},
	}

	for _, tt := range tests {
		if got := LevelFor(tt.score); got != tt.want {
			t.Errorf("LevelFor(%d) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestWeight(t *testing.T) {
	tests := []struct {
		name  string
		event model.TrustEvent
		want  int
	}{
		{"phone verification", model.TrustEvent{Kind: model.EventVerificationCompleted, Verification: model.VerificationPhone}, 10},
		{"email verification", model.TrustEvent{Kind: model.EventVerificationCompleted, Verification: model.VerificationEmail}, 5},
		{"id verification", model.TrustEvent{Kind: model.EventVerificationCompleted, Verification: model.VerificationID}, 25},
		{"address verification", model.TrustEvent{Kind: model.EventVerificationCompleted, Verification: model.VerificationAddress}, 15},
		{"physical verification", model.TrustEvent{Kind: model.EventVerificationCompleted, Verification: model.VerificationPhysical}, 30},
		{"social verification", model.TrustEvent{Kind: model.EventVerificationCompleted, Verification: model.VerificationSocial}, 20},
		{"completed transaction", model.TrustEvent{Kind: model.EventTransactionCompleted}, 2},
		{"five star review", model.TrustEvent{Kind: model.EventReviewReceived, Rating: 5}, 5},
		{"four star review", model.TrustEvent{Kind: model.EventReviewReceived, Rating: 4}, 5},
		{"three star review", model.TrustEvent{Kind: model.EventReviewReceived, Rating: 3}, 1},
		{"two star review", model.TrustEvent{Kind: model.EventReviewReceived, Rating: 2}, -20},
		{"one star review", model.TrustEvent{Kind: model.EventReviewReceived, Rating: 1}, -20},
		{"dispute lost", model.TrustEvent{Kind: model.EventDisputeLost}, -30},
		{"cancellation", model.TrustEvent{Kind: model.EventCancellation}, -15},
		{"late return", model.TrustEvent{Kind: model.EventLateReturn}, -10},
		{"damage report", model.TrustEvent{Kind: model.EventDamageReport}, -25},
		{"manual adjustment carries delta", model.TrustEvent{Kind: model.EventManualAdjustment, Delta: -7}, -7},
		{"unknown kind contributes zero", model.TrustEvent{Kind: model.TrustEventKind("BOGUS")}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Weight(tt.event); got != tt.want {
				t.Errorf("Weight() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestApplyEventVerificationFlow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewProfile("user_1", now)
	if p.Score != 10 || p.Level != model.TrustLevelNew {
		t.Fatalf("new profile = score %d level %v, want 10 NEW", p.Score, p.Level)
	}

	p = ApplyEvent(p, model.TrustEvent{
		Kind:         model.EventVerificationCompleted,
		Verification: model.VerificationPhone,
		OccurredAt:   now,
	})
	if p.Score != 20 || p.Level != model.TrustLevelNew {
		t.Fatalf("after phone = score %d level %v, want 20 NEW", p.Score, p.Level)
	}
	if !p.HasVerification(model.VerificationPhone) {
		t.Fatal("phone verification not recorded on profile")
	}
	if len(p.History) != 1 || p.History[0].LevelChanged() {
		t.Fatalf("unexpected history after phone: %+v", p.History)
	}

	p = ApplyEvent(p, model.TrustEvent{
		Kind:         model.EventVerificationCompleted,
		Verification: model.VerificationID,
		OccurredAt:   now.Add(time.Hour),
	})
	if p.Score != 45 || p.Level != model.TrustLevelBasic {
		t.Fatalf("after id = score %d level %v, want 45 BASIC", p.Score, p.Level)
	}
	last := p.History[len(p.History)-1]
	if !last.LevelChanged() || last.OldLevel != model.TrustLevelNew || last.NewLevel != model.TrustLevelBasic {
		t.Fatalf("level change not recorded: %+v", last)
	}
	if last.OldScore != 20 || last.NewScore != 45 || last.ScoreDelta != 25 {
		t.Fatalf("score transition wrong: %+v", last)
	}
}

func TestApplyEventClamping(t *testing.T) {
	now := time.Now().UTC()

	low := NewProfile("user_low", now)
	low = ApplyEvent(low, model.TrustEvent{Kind: model.EventDisputeLost, OccurredAt: now})
	if low.Score != 0 {
		t.Errorf("score after dispute from 10 = %d, want 0", low.Score)
	}

	high := NewProfile("user_high", now)
	high = ApplyEvent(high, model.TrustEvent{Kind: model.EventManualAdjustment, Delta: 500, OccurredAt: now})
	if high.Score != 100 {
		t.Errorf("score after +500 adjustment = %d, want 100", high.Score)
	}
	if high.Level != model.TrustLevelTrusted {
		t.Errorf("level at 100 = %v, want TRUSTED", high.Level)
	}
}

func TestApplyEventIsPure(t *testing.T) {
	now := time.Now().UTC()
	orig := NewProfile("user_1", now)
	orig = ApplyEvent(orig, model.TrustEvent{
		Kind:         model.EventVerificationCompleted,
		Verification: model.VerificationPhone,
		OccurredAt:   now,
	})

	_ = ApplyEvent(orig, model.TrustEvent{Kind: model.EventDisputeLost, OccurredAt: now})

	if orig.Score != 20 || len(orig.History) != 1 || len(orig.Verifications) != 1 {
		t.Errorf("input profile mutated: %+v", orig)
	}
}

func TestDepositMultiplierAndCeiling(t *testing.T) {
	tests := []struct {
		level       model.TrustLevel
		wantMult    float64
		wantCeiling string
	}{
		{model.TrustLevelNew, 2.0, "5000"},
		{model.TrustLevelBasic, 1.5, "25000"},
		{model.TrustLevelVerified, 1.0, "100000"},
		{model.TrustLevelTrusted, 0.5, "500000"},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if got := DepositMultiplier(tt.level); got != tt.wantMult {
				t.Errorf("DepositMultiplier = %v, want %v", got, tt.wantMult)
			}
			if got := RentalCeiling(tt.level); got.String() != tt.wantCeiling {
				t.Errorf("RentalCeiling = %s, want %s", got, tt.wantCeiling)
			}
		})
	}
}

func TestMeetsLevel(t *testing.T) {
	p := model.TrustProfile{Level: model.TrustLevelVerified}

	if !MeetsLevel(p, model.TrustLevelNew) {
		t.Error("VERIFIED should meet NEW")
	}
	if !MeetsLevel(p, model.TrustLevelVerified) {
		t.Error("VERIFIED should meet VERIFIED")
	}
	if MeetsLevel(p, model.TrustLevelTrusted) {
		t.Error("VERIFIED should not meet TRUSTED")
	}
}

func TestQualifies(t *testing.T) {
	verified := model.TrustProfile{
		Score: 65,
		Level: model.TrustLevelVerified,
		Verifications: []model.VerificationType{
			model.VerificationPhone, model.VerificationID, model.VerificationAddress,
		},
	}
	goodStats := model.UserStats{
		CompletedTransactions: 6,
		GuarantorCount:        2,
		DaysOnPlatform:        45,
		AverageRating:         4.2,
	}

	if !Qualifies(verified, goodStats, model.TrustLevelVerified) {
		t.Error("profile meeting all VERIFIED requirements should qualify")
	}

	lowRating := goodStats
	lowRating.AverageRating = 3.5
	if Qualifies(verified, lowRating, model.TrustLevelVerified) {
		t.Error("rating below 4.0 should not qualify for VERIFIED")
	}

	missingVerification := verified
	missingVerification.Verifications = []model.VerificationType{model.VerificationPhone}
	if Qualifies(missingVerification, goodStats, model.TrustLevelVerified) {
		t.Error("missing ADDRESS verification should not qualify")
	}

	if Qualifies(verified, goodStats, model.TrustLevelTrusted) {
		t.Error("score 65 should not qualify for TRUSTED")
	}
}

func TestAggregateRating(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		reviews   []model.Review
		wantAvg   float64
		wantCount int
	}{
		{
			name:      "empty set is no data",
			reviews:   nil,
			wantAvg:   0,
			wantCount: 0,
		},
		{
			name: "single review",
			reviews: []model.Review{
				{Rating: 4, CreatedAt: now.AddDate(0, 0, -10)},
			},
			wantAvg:   4.0,
			wantCount: 1,
		},
		{
			name: "recent review outweighs stale one",
			reviews: []model.Review{
				{Rating: 5, CreatedAt: now},
				{Rating: 3, CreatedAt: now.AddDate(0, 0, -400)},
			},
			// weights 1.0 and 0.1: (5 + 0.3) / 1.1 = 4.818 -> 4.8
			wantAvg:   4.8,
			wantCount: 2,
		},
		{
			name: "same-day reviews average plainly",
			reviews: []model.Review{
				{Rating: 4, CreatedAt: now},
				{Rating: 5, CreatedAt: now},
			},
			wantAvg:   4.5,
			wantCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, count := AggregateRating(tt.reviews, now)
			if avg != tt.wantAvg || count != tt.wantCount {
				t.Errorf("AggregateRating() = (%v, %d), want (%v, %d)", avg, count, tt.wantAvg, tt.wantCount)
			}
		})
	}
}
