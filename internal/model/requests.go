package model

// Request DTOs validated with go-playground/validator before any service
// call runs. Amounts arrive as decimal strings to keep ETB arithmetic
// exact end to end.

type CreatePaymentRequest struct {
	BookingID     string         `json:"booking_id" validate:"required"`
	OwnerID       string         `json:"owner_id" validate:"required"`
	Amount        string         `json:"amount" validate:"required"`
	Provider      ProviderType   `json:"provider" validate:"required,oneof=CBE_BIRR TELEBIRR MPESA BANK_TRANSFER CARD"`
	PhoneNumber   string         `json:"phone_number,omitempty"`
	AccountNumber string         `json:"account_number,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type ReleaseEscrowRequest struct {
	BookingID     string      `json:"booking_id" validate:"required"`
	ReleaseType   ReleaseType `json:"release_type" validate:"required,oneof=FULL PARTIAL DEPOSIT_ONLY"`
	ReleaseAmount string      `json:"release_amount,omitempty" validate:"required_if=ReleaseType PARTIAL"`
	Reason        string      `json:"reason,omitempty"`
}

type RefundRequest struct {
	Amount string `json:"amount,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type WithdrawalRequest struct {
	Amount      string       `json:"amount" validate:"required"`
	Provider    ProviderType `json:"provider" validate:"required,oneof=CBE_BIRR TELEBIRR MPESA BANK_TRANSFER"`
	PhoneNumber string       `json:"phone_number,omitempty"`
	BankAccount string       `json:"bank_account,omitempty"`
	BankName    string       `json:"bank_name,omitempty"`
}

type DepositRequest struct {
	Amount        string       `json:"amount" validate:"required"`
	Provider      ProviderType `json:"provider" validate:"required,oneof=CBE_BIRR TELEBIRR MPESA"`
	PhoneNumber   string       `json:"phone_number,omitempty"`
	AccountNumber string       `json:"account_number,omitempty"`
}

type CreateReviewRequest struct {
	BookingID   string     `json:"booking_id" validate:"required"`
	TargetID    string     `json:"target_id" validate:"required"`
	TargetType  TargetType `json:"target_type" validate:"required,oneof=USER LISTING"`
	Rating      int        `json:"rating" validate:"required,gte=1,lte=5"`
	Comment     string     `json:"comment" validate:"required,max=2000"`
	Pros        []string   `json:"pros,omitempty"`
	Cons        []string   `json:"cons,omitempty"`
	Images      []string   `json:"images,omitempty"`
	IsAnonymous bool       `json:"is_anonymous"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

type RespondReviewRequest struct {
	Comment string `json:"comment" validate:"required,max=2000"`
}

type ReportReviewRequest struct {
	Reason      string `json:"reason" validate:"required"`
	Description string `json:"description,omitempty"`
}

type ResolveReportRequest struct {
	Status ReportStatus `json:"status" validate:"required,oneof=RESOLVED REJECTED"`
}

type RecordVerificationRequest struct {
	Type VerificationType `json:"type" validate:"required,oneof=PHONE EMAIL ID ADDRESS PHYSICAL SOCIAL"`
}

type TrustEventRequest struct {
	Kind   TrustEventKind `json:"kind" validate:"required,oneof=TRANSACTION_COMPLETED DISPUTE_LOST CANCELLATION LATE_RETURN DAMAGE_REPORT MANUAL_ADJUSTMENT"`
	Delta  int            `json:"delta,omitempty"`
	Reason string         `json:"reason,omitempty"`
}
