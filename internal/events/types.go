package events

import "time"

// Envelope wraps every published event.
type Envelope struct {
	EventID        string         `json:"event_id"`
	EventType      string         `json:"event_type"`
	SchemaVersion  string         `json:"schema_version"`
	IdempotencyKey string         `json:"idempotency_key"`
	Timestamp      time.Time      `json:"timestamp"`
	Source         string         `json:"source"`
	Data           map[string]any `json:"data"`
}

// Trust events
type TrustScoreUpdatedData struct {
	UserID        string `json:"user_id"`
	EventKind     string `json:"event_kind"`
	PreviousScore int    `json:"previous_score"`
	NewScore      int    `json:"new_score"`
	PreviousLevel string `json:"previous_level"`
	NewLevel      string `json:"new_level"`
	Reason        string `json:"reason,omitempty"`
}

type TrustLevelChangedData struct {
	UserID        string    `json:"user_id"`
	PreviousLevel string    `json:"previous_level"`
	NewLevel      string    `json:"new_level"`
	EffectiveAt   time.Time `json:"effective_at"`
}

type VerificationCompletedData struct {
	UserID           string `json:"user_id"`
	VerificationType string `json:"verification_type"`
	NewScore         int    `json:"new_score"`
}

// Payment and escrow events
type PaymentCompletedData struct {
	PaymentID   string `json:"payment_id"`
	BookingID   string `json:"booking_id"`
	RenterID    string `json:"renter_id"`
	OwnerID     string `json:"owner_id"`
	Provider    string `json:"provider"`
	Amount      string `json:"amount"`
	TotalAmount string `json:"total_amount"`
}

type EscrowReleasedData struct {
	BookingID      string `json:"booking_id"`
	ReleaseType    string `json:"release_type"`
	ReleasedTo     string `json:"released_to"`
	ReleasedAmount string `json:"released_amount"`
	RefundedAmount string `json:"refunded_amount,omitempty"`
}

type EscrowRefundedData struct {
	BookingID string `json:"booking_id"`
	RenterID  string `json:"renter_id"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason,omitempty"`
}

type WithdrawalCompletedData struct {
	UserID        string `json:"user_id"`
	Provider      string `json:"provider"`
	Amount        string `json:"amount"`
	TransactionID string `json:"transaction_id"`
}

type DepositCompletedData struct {
	UserID        string `json:"user_id"`
	Provider      string `json:"provider"`
	Amount        string `json:"amount"`
	TransactionID string `json:"transaction_id"`
}

// Review events
type ReviewCreatedData struct {
	ReviewID   string `json:"review_id"`
	BookingID  string `json:"booking_id"`
	ReviewerID string `json:"reviewer_id"`
	TargetID   string `json:"target_id"`
	TargetType string `json:"target_type"`
	Rating     int    `json:"rating"`
}

type ReviewReportedData struct {
	ReportID   string `json:"report_id"`
	ReviewID   string `json:"review_id"`
	ReporterID string `json:"reporter_id"`
	Reason     string `json:"reason"`
}

// Event type constants
const (
	EventTrustScoreUpdated     = "trust.score_updated"
	EventTrustLevelChanged     = "trust.level_changed"
	EventVerificationCompleted = "trust.verification_completed"

	EventPaymentCompleted    = "payment.completed"
	EventEscrowHeld          = "escrow.held"
	EventEscrowReleased      = "escrow.released"
	EventEscrowRefunded      = "escrow.refunded"
	EventWithdrawalCompleted = "withdrawal.completed"
	EventDepositCompleted    = "deposit.completed"

	EventReviewCreated        = "review.created"
	EventReviewReported       = "review.reported"
	EventReviewReportResolved = "review.report_resolved"
)
