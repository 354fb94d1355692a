// Package trust maintains per-user trust profiles and answers the
// eligibility queries the booking and escrow flows gate on. Scoring is
// pure arithmetic over a fixed weight table; persistence and caching
// live in the Service wrapper.
package trust

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/addisrent/addisrent/internal/model"
)

const (
	MinScore     = 0
	MaxScore     = 100
	InitialScore = 10
)

// Level thresholds. A profile's level is always the bucket of its score.
const (
	thresholdBasic    = 30
	thresholdVerified = 60
	thresholdTrusted  = 80
)

var verificationWeights = map[model.VerificationType]int{
	model.VerificationPhone:    10,
	model.VerificationEmail:    5,
	model.VerificationID:       25,
	model.VerificationAddress:  15,
	model.VerificationPhysical: 30,
	model.VerificationSocial:   20,
}

var depositMultipliers = map[model.TrustLevel]float64{
	model.TrustLevelNew:      2.0,
	model.TrustLevelBasic:    1.5,
	model.TrustLevelVerified: 1.0,
	model.TrustLevelTrusted:  0.5,
}

var rentalCeilings = map[model.TrustLevel]int64{
	model.TrustLevelNew:      5000,
	model.TrustLevelBasic:    25000,
	model.TrustLevelVerified: 100000,
	model.TrustLevelTrusted:  500000,
}

var levelRequirements = map[model.TrustLevel]model.LevelRequirement{
	model.TrustLevelNew: {
		Level:         model.TrustLevelNew,
		MinScore:      0,
		Verifications: []model.VerificationType{model.VerificationPhone},
	},
	model.TrustLevelBasic: {
		Level:           model.TrustLevelBasic,
		MinScore:        thresholdBasic,
		Verifications:   []model.VerificationType{model.VerificationPhone, model.VerificationID},
		MinTransactions: 1,
		MinDays:         7,
	},
	model.TrustLevelVerified: {
		Level:           model.TrustLevelVerified,
		MinScore:        thresholdVerified,
		Verifications:   []model.VerificationType{model.VerificationPhone, model.VerificationID, model.VerificationAddress},
		MinTransactions: 5,
		MinGuarantors:   2,
		MinDays:         30,
		MinRating:       4.0,
	},
	model.TrustLevelTrusted: {
		Level:           model.TrustLevelTrusted,
		MinScore:        thresholdTrusted,
		Verifications:   []model.VerificationType{model.VerificationPhone, model.VerificationID, model.VerificationAddress, model.VerificationPhysical},
		MinTransactions: 20,
		MinGuarantors:   3,
		MinDays:         180,
		MinRating:       4.5,
		MaxDisputes:     1,
		MaxCancellation: 2,
	},
}

// NewProfile returns the profile assigned at registration.
func NewProfile(userID string, now time.Time) model.TrustProfile {
	return model.TrustProfile{
		UserID:    userID,
		Score:     InitialScore,
		Level:     LevelFor(InitialScore),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// LevelFor maps a score to its threshold bucket.
func LevelFor(score int) model.TrustLevel {
	switch {
	case score >= thresholdTrusted:
		return model.TrustLevelTrusted
	case score >= thresholdVerified:
		return model.TrustLevelVerified
	case score >= thresholdBasic:
		return model.TrustLevelBasic
	default:
		return model.TrustLevelNew
	}
}

// Weight resolves an event's signed score contribution. The table is
// total: unknown kinds contribute zero rather than failing.
func Weight(e model.TrustEvent) int {
	switch e.Kind {
	case model.EventVerificationCompleted:
		return verificationWeights[e.Verification]
	case model.EventTransactionCompleted:
		return 2
	case model.EventReviewReceived:
		switch {
		case e.Rating >= 4:
			return 5
		case e.Rating == 3:
			return 1
		default:
			return -20
		}
	case model.EventDisputeLost:
		return -30
	case model.EventCancellation:
		return -15
	case model.EventLateReturn:
		return -10
	case model.EventDamageReport:
		return -25
	case model.EventManualAdjustment:
		return e.Delta
	default:
		return 0
	}
}

// ApplyEvent folds one event into a profile. It is pure: the input is
// left untouched and the result carries the appended history entry. The
// level is recomputed from the clamped score on every application.
func ApplyEvent(p model.TrustProfile, e model.TrustEvent) model.TrustProfile {
	delta := Weight(e)
	newScore := clampScore(p.Score + delta)
	newLevel := LevelFor(newScore)

	change := model.TrustChange{
		Kind:       e.Kind,
		Reason:     e.Reason,
		ScoreDelta: delta,
		OldScore:   p.Score,
		NewScore:   newScore,
		OldLevel:   p.Level,
		NewLevel:   newLevel,
		ActorID:    e.ActorID,
		At:         e.OccurredAt,
	}

	out := p
	out.Score = newScore
	out.Level = newLevel
	out.UpdatedAt = e.OccurredAt

	out.Verifications = append([]model.VerificationType(nil), p.Verifications...)
	if e.Kind == model.EventVerificationCompleted && !p.HasVerification(e.Verification) {
		out.Verifications = append(out.Verifications, e.Verification)
	}

	out.History = append(append([]model.TrustChange(nil), p.History...), change)
	return out
}

// DepositMultiplier returns the security-deposit factor for a level.
func DepositMultiplier(l model.TrustLevel) float64 {
	if m, ok := depositMultipliers[l]; ok {
		return m
	}
	return depositMultipliers[model.TrustLevelNew]
}

// RentalCeiling returns the maximum total booking value (ETB) a user at
// the given level may commit to.
func RentalCeiling(l model.TrustLevel) decimal.Decimal {
	if c, ok := rentalCeilings[l]; ok {
		return decimal.NewFromInt(c)
	}
	return decimal.NewFromInt(rentalCeilings[model.TrustLevelNew])
}

// MeetsLevel reports whether the profile's level is at or above required.
func MeetsLevel(p model.TrustProfile, required model.TrustLevel) bool {
	return p.Level.Index() >= required.Index()
}

// Requirements returns the promotion requirements for a level.
func Requirements(l model.TrustLevel) (model.LevelRequirement, bool) {
	r, ok := levelRequirements[l]
	return r, ok
}

// Qualifies checks the full promotion gate for a level: score bucket,
// completed verifications and the behavioural counters in stats.
func Qualifies(p model.TrustProfile, stats model.UserStats, l model.TrustLevel) bool {
	req, ok := levelRequirements[l]
	if !ok {
		return false
	}
	if p.Score < req.MinScore {
		return false
	}
	for _, v := range req.Verifications {
		if !p.HasVerification(v) {
			return false
		}
	}
	if stats.CompletedTransactions < req.MinTransactions {
		return false
	}
	if stats.GuarantorCount < req.MinGuarantors {
		return false
	}
	if stats.DaysOnPlatform < req.MinDays {
		return false
	}
	if req.MinRating > 0 && stats.AverageRating < req.MinRating {
		return false
	}
	if l == model.TrustLevelTrusted {
		if stats.DisputesLost > req.MaxDisputes || stats.Cancellations > req.MaxCancellation {
			return false
		}
	}
	return true
}

// AggregateRating computes the age-weighted mean rating of a review set.
// A review's weight decays linearly over a year and floors at 0.1, so a
// recent 5-star review dominates a stale 3-star one. The result is
// rounded to one decimal. An empty set yields (0, 0): no data, not a
// zero-star rating.
func AggregateRating(reviews []model.Review, now time.Time) (float64, int) {
	if len(reviews) == 0 {
		return 0, 0
	}

	var weightedSum, weightSum float64
	for _, r := range reviews {
		ageDays := now.Sub(r.CreatedAt).Hours() / 24
		weight := 1 - ageDays/365
		if weight < 0.1 {
			weight = 0.1
		}
		weightedSum += float64(r.Rating) * weight
		weightSum += weight
	}

	avg := weightedSum / weightSum
	return float64(int(avg*10+0.5)) / 10, len(reviews)
}

func clampScore(s int) int {
	if s < MinScore {
		return MinScore
	}
	if s > MaxScore {
		return MaxScore
	}
	return s
}
