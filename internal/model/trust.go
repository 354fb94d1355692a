package model

import "time"

type TrustLevel string

const (
	TrustLevelNew      TrustLevel = "NEW"
	TrustLevelBasic    TrustLevel = "BASIC"
	TrustLevelVerified TrustLevel = "VERIFIED"
	TrustLevelTrusted  TrustLevel = "TRUSTED"
)

var trustLevelOrder = map[TrustLevel]int{
	TrustLevelNew:      0,
	TrustLevelBasic:    1,
	TrustLevelVerified: 2,
	TrustLevelTrusted:  3,
}

// Index returns the ordinal position of the level, -1 for unknown levels.
func (l TrustLevel) Index() int {
	if i, ok := trustLevelOrder[l]; ok {
		return i
	}
	return -1
}

func (l TrustLevel) Valid() bool {
	return l.Index() >= 0
}

type VerificationType string

const (
	VerificationPhone    VerificationType = "PHONE"
	VerificationEmail    VerificationType = "EMAIL"
	VerificationID       VerificationType = "ID"
	VerificationAddress  VerificationType = "ADDRESS"
	VerificationPhysical VerificationType = "PHYSICAL"
	VerificationSocial   VerificationType = "SOCIAL"
)

type TrustEventKind string

const (
	EventVerificationCompleted TrustEventKind = "VERIFICATION_COMPLETED"
	EventTransactionCompleted  TrustEventKind = "TRANSACTION_COMPLETED"
	EventReviewReceived        TrustEventKind = "REVIEW_RECEIVED"
	EventDisputeLost           TrustEventKind = "DISPUTE_LOST"
	EventCancellation          TrustEventKind = "CANCELLATION"
	EventLateReturn            TrustEventKind = "LATE_RETURN"
	EventDamageReport          TrustEventKind = "DAMAGE_REPORT"
	EventManualAdjustment      TrustEventKind = "MANUAL_ADJUSTMENT"
)

func (k TrustEventKind) Valid() bool {
	switch k {
	case EventVerificationCompleted, EventTransactionCompleted, EventReviewReceived,
		EventDisputeLost, EventCancellation, EventLateReturn,
		EventDamageReport, EventManualAdjustment:
		return true
	}
	return false
}

// TrustEvent is an immutable fact about a user emitted by the booking,
// review or dispute flows. Verification is set only for
// VERIFICATION_COMPLETED, Rating only for REVIEW_RECEIVED and Delta only
// for MANUAL_ADJUSTMENT.
type TrustEvent struct {
	Kind         TrustEventKind   `json:"kind" bson:"kind"`
	Verification VerificationType `json:"verification,omitempty" bson:"verification,omitempty"`
	Rating       int              `json:"rating,omitempty" bson:"rating,omitempty"`
	Delta        int              `json:"delta,omitempty" bson:"delta,omitempty"`
	Reason       string           `json:"reason,omitempty" bson:"reason,omitempty"`
	ActorID      string           `json:"actor_id,omitempty" bson:"actor_id,omitempty"`
	OccurredAt   time.Time        `json:"occurred_at" bson:"occurred_at"`
}

// TrustChange is one entry in a profile's append-only history.
type TrustChange struct {
	Kind       TrustEventKind `json:"kind" bson:"kind"`
	Reason     string         `json:"reason,omitempty" bson:"reason,omitempty"`
	ScoreDelta int            `json:"score_delta" bson:"score_delta"`
	OldScore   int            `json:"old_score" bson:"old_score"`
	NewScore   int            `json:"new_score" bson:"new_score"`
	OldLevel   TrustLevel     `json:"old_level" bson:"old_level"`
	NewLevel   TrustLevel     `json:"new_level" bson:"new_level"`
	ActorID    string         `json:"actor_id,omitempty" bson:"actor_id,omitempty"`
	At         time.Time      `json:"at" bson:"at"`
}

func (c TrustChange) LevelChanged() bool {
	return c.OldLevel != c.NewLevel
}

// TrustProfile holds a user's current trust standing. Level is always the
// threshold bucket of Score; History is append-only and never trimmed.
type TrustProfile struct {
	UserID        string             `json:"user_id" bson:"_id"`
	Score         int                `json:"score" bson:"score"`
	Level         TrustLevel         `json:"level" bson:"level"`
	Verifications []VerificationType `json:"verifications" bson:"verifications"`
	History       []TrustChange      `json:"history" bson:"history"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

func (p *TrustProfile) HasVerification(v VerificationType) bool {
	for _, have := range p.Verifications {
		if have == v {
			return true
		}
	}
	return false
}

// UserStats carries the behavioural counters level qualification reads.
// They are maintained by the booking and review flows, not by the trust
// engine itself.
type UserStats struct {
	CompletedTransactions int     `json:"completed_transactions" bson:"completed_transactions"`
	GuarantorCount        int     `json:"guarantor_count" bson:"guarantor_count"`
	DaysOnPlatform        int     `json:"days_on_platform" bson:"days_on_platform"`
	AverageRating         float64 `json:"average_rating" bson:"average_rating"`
	DisputesLost          int     `json:"disputes_lost" bson:"disputes_lost"`
	Cancellations         int     `json:"cancellations" bson:"cancellations"`
}

// LevelRequirement describes what a user must hold before being promoted
// to a level, beyond the score threshold.
type LevelRequirement struct {
	Level           TrustLevel         `json:"level"`
	MinScore        int                `json:"min_score"`
	Verifications   []VerificationType `json:"verifications"`
	MinTransactions int                `json:"min_transactions"`
	MinGuarantors   int                `json:"min_guarantors"`
	MinDays         int                `json:"min_days"`
	MinRating       float64            `json:"min_rating,omitempty"`
	MaxDisputes     int                `json:"max_disputes"`
	MaxCancellation int                `json:"max_cancellations"`
}

type UserRole string

const (
	RoleRenter    UserRole = "RENTER"
	RoleOwner     UserRole = "OWNER"
	RoleAgent     UserRole = "AGENT"
	RoleAdmin     UserRole = "ADMIN"
	RoleSupport   UserRole = "SUPPORT"
	RoleModerator UserRole = "MODERATOR"
)
