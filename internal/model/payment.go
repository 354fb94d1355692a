package model

import "time"

type ProviderType string

const (
	ProviderCBEBirr      ProviderType = "CBE_BIRR"
	ProviderTelebirr     ProviderType = "TELEBIRR"
	ProviderMpesa        ProviderType = "MPESA"
	ProviderBankTransfer ProviderType = "BANK_TRANSFER"
	ProviderCard         ProviderType = "CARD"
)

type TransactionType string

const (
	TransactionPayment       TransactionType = "PAYMENT"
	TransactionRefund        TransactionType = "REFUND"
	TransactionWithdrawal    TransactionType = "WITHDRAWAL"
	TransactionDeposit       TransactionType = "DEPOSIT"
	TransactionEscrowHold    TransactionType = "ESCROW_HOLD"
	TransactionEscrowRelease TransactionType = "ESCROW_RELEASE"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
)

type EscrowState string

const (
	EscrowHeld     EscrowState = "HELD"
	EscrowReleased EscrowState = "RELEASED"
	EscrowRefunded EscrowState = "REFUNDED"
)

func (s EscrowState) Terminal() bool {
	return s == EscrowReleased || s == EscrowRefunded
}

type ReleaseTarget string

const (
	ReleasedToOwner  ReleaseTarget = "OWNER"
	ReleasedToRenter ReleaseTarget = "RENTER"
)

type ReleaseType string

const (
	ReleaseFull        ReleaseType = "FULL"
	ReleasePartial     ReleaseType = "PARTIAL"
	ReleaseDepositOnly ReleaseType = "DEPOSIT_ONLY"
)

// Wallet tracks per-user balances. Amounts are decimal strings in ETB;
// AvailableBalance and HeldBalance are never negative.
type Wallet struct {
	UserID           string    `json:"user_id" bson:"_id"`
	AvailableBalance string    `json:"available_balance" bson:"available_balance"`
	HeldBalance      string    `json:"held_balance" bson:"held_balance"`
	TotalDeposits    string    `json:"total_deposits" bson:"total_deposits"`
	TotalWithdrawals string    `json:"total_withdrawals" bson:"total_withdrawals"`
	TotalEarnings    string    `json:"total_earnings" bson:"total_earnings"`
	UpdatedAt        time.Time `json:"updated_at" bson:"updated_at"`
}

// Escrow is the per-booking hold. Amount is the base principal, fees
// excluded. State moves one way: HELD to RELEASED or HELD to REFUNDED.
type Escrow struct {
	BookingID  string        `json:"booking_id" bson:"_id"`
	RenterID   string        `json:"renter_id" bson:"renter_id"`
	OwnerID    string        `json:"owner_id" bson:"owner_id"`
	Amount     string        `json:"amount" bson:"amount"`
	State      EscrowState   `json:"state" bson:"state"`
	ReleasedTo ReleaseTarget `json:"released_to,omitempty" bson:"released_to,omitempty"`
	CreatedAt  time.Time     `json:"created_at" bson:"created_at"`
	ReleasedAt *time.Time    `json:"released_at,omitempty" bson:"released_at,omitempty"`
}

// Transaction is an immutable audit record; every wallet or escrow
// mutation produces exactly one.
type Transaction struct {
	ID          string            `json:"id" bson:"_id"`
	UserID      string            `json:"user_id" bson:"user_id"`
	Type        TransactionType   `json:"type" bson:"type"`
	Amount      string            `json:"amount" bson:"amount"`
	Status      TransactionStatus `json:"status" bson:"status"`
	Provider    string            `json:"provider" bson:"provider"`
	Reference   string            `json:"reference" bson:"reference"`
	Description string            `json:"description" bson:"description"`
	Metadata    map[string]any    `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at" bson:"created_at"`
}

// Payment records one provider charge against a booking, with the
// Ethiopian tax and fee overlay broken out.
type Payment struct {
	ID                string            `json:"id" bson:"_id"`
	BookingID         string            `json:"booking_id" bson:"booking_id"`
	PayerID           string            `json:"payer_id" bson:"payer_id"`
	OwnerID           string            `json:"owner_id" bson:"owner_id"`
	Provider          ProviderType      `json:"provider" bson:"provider"`
	BaseAmount        string            `json:"base_amount" bson:"base_amount"`
	Tax               string            `json:"tax" bson:"tax"`
	ServiceFee        string            `json:"service_fee" bson:"service_fee"`
	TotalAmount       string            `json:"total_amount" bson:"total_amount"`
	Status            TransactionStatus `json:"status" bson:"status"`
	TransactionID     string            `json:"transaction_id" bson:"transaction_id"`
	ProviderReference string            `json:"provider_reference" bson:"provider_reference"`
	CreatedAt         time.Time         `json:"created_at" bson:"created_at"`
}

// FeeBreakdown is the Ethiopian overlay on a base amount: 15% VAT plus
// the 5% platform fee.
type FeeBreakdown struct {
	BaseAmount string `json:"base_amount"`
	Tax        string `json:"tax"`
	ServiceFee string `json:"service_fee"`
	Total      string `json:"total"`
}

// ReleaseResult reports where the escrowed principal went.
type ReleaseResult struct {
	BookingID      string `json:"booking_id"`
	ReleasedAmount string `json:"released_amount"`
	RefundedAmount string `json:"refunded_amount"`
	TransactionID  string `json:"transaction_id"`
}

type RefundResult struct {
	BookingID     string `json:"booking_id"`
	RefundAmount  string `json:"refund_amount"`
	TransactionID string `json:"transaction_id"`
}

// Eligibility is the trust-derived envelope booking checks consume.
type Eligibility struct {
	UserID            string     `json:"user_id"`
	Level             TrustLevel `json:"level"`
	DepositMultiplier float64    `json:"deposit_multiplier"`
	RentalCeiling     string     `json:"rental_ceiling"`
}
