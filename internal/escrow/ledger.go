// Package escrow moves funds between escrow holds and wallet balances
// under strict one-way state transitions, and computes the Ethiopian
// tax and fee overlay on payments.
package escrow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/addisrent/addisrent/internal/events"
	"github.com/addisrent/addisrent/internal/locks"
	"github.com/addisrent/addisrent/internal/model"
	"github.com/addisrent/addisrent/internal/payment"
	"github.com/addisrent/addisrent/internal/store"
	"github.com/addisrent/addisrent/internal/trust"
)

var (
	ErrInvalidState        = errors.New("invalid escrow state")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrEscrowNotFound      = errors.New("escrow not found")
	ErrValidation          = errors.New("validation failed")
	ErrProviderFailed      = errors.New("payment provider failed")

	// ErrProviderNotSupported aliases the payment package sentinel so
	// callers can match on either.
	ErrProviderNotSupported = payment.ErrNotSupported
)

// Ethiopian overlay: 15% VAT plus the 5% platform service fee. The
// deposit share is the fixed fraction released by DEPOSIT_ONLY.
var (
	vatRate        = decimal.RequireFromString("0.15")
	serviceFeeRate = decimal.RequireFromString("0.05")
	depositShare   = decimal.RequireFromString("0.2")
)

// CalculateFees computes the charge breakdown for a base amount. Only
// the base amount is held in escrow; the payer is charged the total.
func CalculateFees(base decimal.Decimal) model.FeeBreakdown {
	tax := base.Mul(vatRate).Round(2)
	fee := base.Mul(serviceFeeRate).Round(2)
	return model.FeeBreakdown{
		BaseAmount: base.StringFixed(2),
		Tax:        tax.StringFixed(2),
		ServiceFee: fee.StringFixed(2),
		Total:      base.Add(tax).Add(fee).StringFixed(2),
	}
}

// RequiredDeposit computes the security deposit for a booking from the
// renter's trust level.
func RequiredDeposit(level model.TrustLevel, base decimal.Decimal) decimal.Decimal {
	return base.Mul(decimal.NewFromFloat(trust.DepositMultiplier(level))).Round(2)
}

// TrustRecorder receives the trust events the ledger emits when a
// rental settles.
type TrustRecorder interface {
	RecordEvent(ctx context.Context, userID string, event model.TrustEvent) (model.TrustProfile, model.TrustChange, error)
}

// Ledger serializes all mutations per booking and per wallet. Provider
// legs run before any local write, so a failed provider call leaves
// the ledger untouched.
type Ledger struct {
	store     store.PaymentStore
	providers *payment.Factory
	trust     TrustRecorder
	publisher *events.Publisher
	locks     locks.Keyed
}

func NewLedger(st store.PaymentStore, providers *payment.Factory, tr TrustRecorder, pub *events.Publisher) *Ledger {
	return &Ledger{store: st, providers: providers, trust: tr, publisher: pub}
}

// ProcessPayment charges the renter through a provider and opens the
// escrow hold for the booking. The hold represents funds captured
// externally; only the owner's held balance moves locally.
func (l *Ledger) ProcessPayment(ctx context.Context, renterID string, req model.CreatePaymentRequest) (model.Payment, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return model.Payment{}, err
	}

	unlock := l.locks.Lock("booking:" + req.BookingID)
	defer unlock()

	existing, err := l.store.GetEscrow(ctx, req.BookingID)
	if err == nil && !existing.State.Terminal() {
		return model.Payment{}, fmt.Errorf("%w: escrow already held for booking %s", ErrInvalidState, req.BookingID)
	}
	if err == nil && existing.State == model.EscrowReleased {
		return model.Payment{}, fmt.Errorf("%w: booking %s already settled", ErrInvalidState, req.BookingID)
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return model.Payment{}, fmt.Errorf("load escrow: %w", err)
	}

	fees := CalculateFees(amount)
	total := decimal.RequireFromString(fees.Total)

	provider, err := l.providers.Get(req.Provider)
	if err != nil {
		return model.Payment{}, err
	}

	res, err := provider.ProcessPayment(ctx, payment.Request{
		Amount:        total,
		Currency:      "ETB",
		PhoneNumber:   req.PhoneNumber,
		AccountNumber: req.AccountNumber,
		Reference:     req.BookingID,
		Description:   fmt.Sprintf("rental payment for booking %s", req.BookingID),
	})
	if err != nil {
		return model.Payment{}, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if !res.Success {
		return model.Payment{}, fmt.Errorf("%w: %s", ErrProviderFailed, res.Message)
	}

	now := time.Now().UTC()
	esc := model.Escrow{
		BookingID: req.BookingID,
		RenterID:  renterID,
		OwnerID:   req.OwnerID,
		Amount:    amount.StringFixed(2),
		State:     model.EscrowHeld,
		CreatedAt: now,
	}
	if err := l.store.SaveEscrow(ctx, esc); err != nil {
		return model.Payment{}, fmt.Errorf("save escrow: %w", err)
	}

	// Held funds are attributed to the payee so release arithmetic
	// never drives a balance negative.
	owner, err := l.loadBalances(ctx, req.OwnerID)
	if err != nil {
		return model.Payment{}, err
	}
	owner.held = owner.held.Add(amount)
	if err := l.store.UpsertWallet(ctx, owner.wallet(req.OwnerID, now)); err != nil {
		return model.Payment{}, fmt.Errorf("update owner wallet: %w", err)
	}

	pay := model.Payment{
		ID:                generateID("pay"),
		BookingID:         req.BookingID,
		PayerID:           renterID,
		OwnerID:           req.OwnerID,
		Provider:          req.Provider,
		BaseAmount:        fees.BaseAmount,
		Tax:               fees.Tax,
		ServiceFee:        fees.ServiceFee,
		TotalAmount:       fees.Total,
		Status:            model.StatusCompleted,
		TransactionID:     res.TransactionID,
		ProviderReference: res.Reference,
		CreatedAt:         now,
	}
	if err := l.store.SavePayment(ctx, pay); err != nil {
		return model.Payment{}, fmt.Errorf("save payment: %w", err)
	}

	l.record(ctx, model.Transaction{
		ID:          generateID("txn"),
		UserID:      renterID,
		Type:        model.TransactionPayment,
		Amount:      fees.Total,
		Status:      model.StatusCompleted,
		Provider:    string(req.Provider),
		Reference:   req.BookingID,
		Description: fmt.Sprintf("charged %s ETB incl. VAT and service fee", fees.Total),
		CreatedAt:   now,
	})
	l.record(ctx, model.Transaction{
		ID:          generateID("txn"),
		UserID:      renterID,
		Type:        model.TransactionEscrowHold,
		Amount:      fees.BaseAmount,
		Status:      model.StatusCompleted,
		Provider:    string(req.Provider),
		Reference:   req.BookingID,
		Description: fmt.Sprintf("escrow hold for booking %s", req.BookingID),
		CreatedAt:   now,
	})

	slog.InfoContext(ctx, "escrow_held",
		"booking_id", req.BookingID,
		"renter_id", renterID,
		"owner_id", req.OwnerID,
		"amount", fees.BaseAmount,
		"total_charged", fees.Total,
		"provider", string(req.Provider),
	)

	l.publish(ctx, events.EventPaymentCompleted, req.BookingID, map[string]any{
		"payment_id":   pay.ID,
		"booking_id":   req.BookingID,
		"renter_id":    renterID,
		"owner_id":     req.OwnerID,
		"provider":     string(req.Provider),
		"amount":       fees.BaseAmount,
		"total_amount": fees.Total,
	})
	l.publish(ctx, events.EventEscrowHeld, req.BookingID, map[string]any{
		"booking_id": req.BookingID,
		"amount":     fees.BaseAmount,
	})

	return pay, nil
}

// Release settles a held escrow toward the owner. FULL releases the
// principal, DEPOSIT_ONLY a fixed 20% share, PARTIAL an explicit
// amount. Any remainder goes back to the renter through the original
// provider, so the whole hold is accounted for in one episode.
func (l *Ledger) Release(ctx context.Context, req model.ReleaseEscrowRequest) (model.ReleaseResult, error) {
	unlock := l.locks.Lock("booking:" + req.BookingID)
	defer unlock()

	esc, err := l.store.GetEscrow(ctx, req.BookingID)
	if errors.Is(err, store.ErrNotFound) {
		return model.ReleaseResult{}, fmt.Errorf("%w: booking %s", ErrEscrowNotFound, req.BookingID)
	}
	if err != nil {
		return model.ReleaseResult{}, fmt.Errorf("load escrow: %w", err)
	}
	if esc.State != model.EscrowHeld {
		return model.ReleaseResult{}, fmt.Errorf("%w: escrow is %s", ErrInvalidState, esc.State)
	}

	principal := decimal.RequireFromString(esc.Amount)
	var releaseAmount decimal.Decimal
	switch req.ReleaseType {
	case model.ReleaseFull:
		releaseAmount = principal
	case model.ReleaseDepositOnly:
		releaseAmount = principal.Mul(depositShare).Round(2)
	case model.ReleasePartial:
		releaseAmount, err = parseAmount(req.ReleaseAmount)
		if err != nil {
			return model.ReleaseResult{}, err
		}
		if releaseAmount.GreaterThan(principal) {
			return model.ReleaseResult{}, fmt.Errorf("%w: release amount exceeds escrowed %s", ErrValidation, esc.Amount)
		}
	default:
		return model.ReleaseResult{}, fmt.Errorf("%w: unknown release type %s", ErrValidation, req.ReleaseType)
	}
	remainder := principal.Sub(releaseAmount)

	now := time.Now().UTC()
	if _, err := l.store.TransitionEscrow(ctx, req.BookingID, model.EscrowHeld, model.EscrowReleased, model.ReleasedToOwner, now); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return model.ReleaseResult{}, fmt.Errorf("%w: concurrent transition on booking %s", ErrInvalidState, req.BookingID)
		}
		if errors.Is(err, store.ErrNotFound) {
			return model.ReleaseResult{}, fmt.Errorf("%w: booking %s", ErrEscrowNotFound, req.BookingID)
		}
		return model.ReleaseResult{}, fmt.Errorf("transition escrow: %w", err)
	}

	// The full principal leaves "held" even under partial release:
	// this booking's escrow episode is closed, not continued.
	owner, err := l.loadBalances(ctx, esc.OwnerID)
	if err != nil {
		return model.ReleaseResult{}, err
	}
	owner.held = owner.held.Sub(principal)
	if owner.held.IsNegative() {
		owner.held = decimal.Zero
	}
	owner.available = owner.available.Add(releaseAmount)
	owner.earnings = owner.earnings.Add(releaseAmount)
	if err := l.store.UpsertWallet(ctx, owner.wallet(esc.OwnerID, now)); err != nil {
		return model.ReleaseResult{}, fmt.Errorf("update owner wallet: %w", err)
	}

	releaseTx := model.Transaction{
		ID:          generateID("txn"),
		UserID:      esc.OwnerID,
		Type:        model.TransactionEscrowRelease,
		Amount:      releaseAmount.StringFixed(2),
		Status:      model.StatusCompleted,
		Reference:   req.BookingID,
		Description: fmt.Sprintf("%s release for booking %s", req.ReleaseType, req.BookingID),
		CreatedAt:   now,
	}
	l.record(ctx, releaseTx)

	if remainder.IsPositive() {
		l.refundRemainder(ctx, esc, remainder, now)
	}

	slog.InfoContext(ctx, "escrow_released",
		"booking_id", req.BookingID,
		"release_type", string(req.ReleaseType),
		"released_amount", releaseAmount.StringFixed(2),
		"refunded_amount", remainder.StringFixed(2),
		"owner_id", esc.OwnerID,
	)

	l.publish(ctx, events.EventEscrowReleased, req.BookingID, map[string]any{
		"booking_id":      req.BookingID,
		"release_type":    string(req.ReleaseType),
		"released_to":     string(model.ReleasedToOwner),
		"released_amount": releaseAmount.StringFixed(2),
		"refunded_amount": remainder.StringFixed(2),
	})

	l.recordCompletion(ctx, esc)

	return model.ReleaseResult{
		BookingID:      req.BookingID,
		ReleasedAmount: releaseAmount.StringFixed(2),
		RefundedAmount: remainder.StringFixed(2),
		TransactionID:  releaseTx.ID,
	}, nil
}

// refundRemainder sends the unreleased share of a partial settlement
// back to the renter through the original provider. The escrow is
// already terminal at this point; a failed provider leg is recorded as
// a FAILED transaction for reconciliation rather than unwound.
func (l *Ledger) refundRemainder(ctx context.Context, esc model.Escrow, remainder decimal.Decimal, now time.Time) {
	status := model.StatusCompleted
	origin, err := l.originalPayment(ctx, esc.BookingID)
	if err != nil {
		slog.ErrorContext(ctx, "refund_origin_lookup_failed", "booking_id", esc.BookingID, "error", err)
		status = model.StatusFailed
	} else {
		provider, perr := l.providers.Get(origin.Provider)
		if perr != nil {
			slog.ErrorContext(ctx, "refund_provider_unavailable", "booking_id", esc.BookingID, "error", perr)
			status = model.StatusFailed
		} else if res, rerr := provider.RefundPayment(ctx, origin.TransactionID, remainder); rerr != nil || !res.Success {
			slog.ErrorContext(ctx, "refund_leg_failed", "booking_id", esc.BookingID, "error", rerr)
			status = model.StatusFailed
		}
	}

	l.record(ctx, model.Transaction{
		ID:          generateID("txn"),
		UserID:      esc.RenterID,
		Type:        model.TransactionRefund,
		Amount:      remainder.StringFixed(2),
		Status:      status,
		Reference:   esc.BookingID,
		Description: fmt.Sprintf("unreleased escrow returned for booking %s", esc.BookingID),
		CreatedAt:   now,
	})
}

// Refund returns a held escrow to the renter. The provider refund leg
// runs first; on failure nothing local changes.
func (l *Ledger) Refund(ctx context.Context, bookingID string, req model.RefundRequest) (model.RefundResult, error) {
	unlock := l.locks.Lock("booking:" + bookingID)
	defer unlock()

	esc, err := l.store.GetEscrow(ctx, bookingID)
	if errors.Is(err, store.ErrNotFound) {
		return model.RefundResult{}, fmt.Errorf("%w: booking %s", ErrEscrowNotFound, bookingID)
	}
	if err != nil {
		return model.RefundResult{}, fmt.Errorf("load escrow: %w", err)
	}
	if esc.State != model.EscrowHeld {
		return model.RefundResult{}, fmt.Errorf("%w: escrow is %s", ErrInvalidState, esc.State)
	}

	principal := decimal.RequireFromString(esc.Amount)
	amount := principal
	if req.Amount != "" {
		amount, err = parseAmount(req.Amount)
		if err != nil {
			return model.RefundResult{}, err
		}
		if amount.GreaterThan(principal) {
			return model.RefundResult{}, fmt.Errorf("%w: refund amount exceeds escrowed %s", ErrValidation, esc.Amount)
		}
	}

	origin, err := l.originalPayment(ctx, bookingID)
	if err != nil {
		return model.RefundResult{}, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	provider, err := l.providers.Get(origin.Provider)
	if err != nil {
		return model.RefundResult{}, err
	}
	res, err := provider.RefundPayment(ctx, origin.TransactionID, amount)
	if err != nil {
		return model.RefundResult{}, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if !res.Success {
		return model.RefundResult{}, fmt.Errorf("%w: %s", ErrProviderFailed, res.Message)
	}

	now := time.Now().UTC()
	if _, err := l.store.TransitionEscrow(ctx, bookingID, model.EscrowHeld, model.EscrowRefunded, model.ReleasedToRenter, now); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return model.RefundResult{}, fmt.Errorf("%w: concurrent transition on booking %s", ErrInvalidState, bookingID)
		}
		return model.RefundResult{}, fmt.Errorf("transition escrow: %w", err)
	}

	owner, err := l.loadBalances(ctx, esc.OwnerID)
	if err != nil {
		return model.RefundResult{}, err
	}
	owner.held = owner.held.Sub(principal)
	if owner.held.IsNegative() {
		owner.held = decimal.Zero
	}
	if err := l.store.UpsertWallet(ctx, owner.wallet(esc.OwnerID, now)); err != nil {
		return model.RefundResult{}, fmt.Errorf("update owner wallet: %w", err)
	}

	refundTx := model.Transaction{
		ID:          generateID("txn"),
		UserID:      esc.RenterID,
		Type:        model.TransactionRefund,
		Amount:      amount.StringFixed(2),
		Status:      model.StatusCompleted,
		Provider:    string(origin.Provider),
		Reference:   bookingID,
		Description: fmt.Sprintf("refund for booking %s", bookingID),
		CreatedAt:   now,
	}
	l.record(ctx, refundTx)

	slog.InfoContext(ctx, "escrow_refunded",
		"booking_id", bookingID,
		"renter_id", esc.RenterID,
		"amount", amount.StringFixed(2),
		"reason", req.Reason,
	)

	l.publish(ctx, events.EventEscrowRefunded, bookingID, map[string]any{
		"booking_id": bookingID,
		"renter_id":  esc.RenterID,
		"amount":     amount.StringFixed(2),
		"reason":     req.Reason,
	})

	return model.RefundResult{
		BookingID:     bookingID,
		RefundAmount:  amount.StringFixed(2),
		TransactionID: refundTx.ID,
	}, nil
}

// Withdraw pays out from a wallet's available balance through a
// provider.
func (l *Ledger) Withdraw(ctx context.Context, userID string, req model.WithdrawalRequest) (model.Transaction, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return model.Transaction{}, err
	}

	unlock := l.locks.Lock("wallet:" + userID)
	defer unlock()

	bal, err := l.loadBalances(ctx, userID)
	if err != nil {
		return model.Transaction{}, err
	}
	if amount.GreaterThan(bal.available) {
		return model.Transaction{}, fmt.Errorf("%w: available %s, requested %s",
			ErrInsufficientBalance, bal.available.StringFixed(2), amount.StringFixed(2))
	}

	provider, err := l.providers.Get(req.Provider)
	if err != nil {
		return model.Transaction{}, err
	}
	res, err := provider.ProcessPayment(ctx, payment.Request{
		Amount:        amount,
		Currency:      "ETB",
		PhoneNumber:   req.PhoneNumber,
		AccountNumber: req.BankAccount,
		Reference:     generateID("wdr"),
		Description:   "wallet withdrawal",
	})
	if err != nil {
		return model.Transaction{}, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if !res.Success {
		return model.Transaction{}, fmt.Errorf("%w: %s", ErrProviderFailed, res.Message)
	}

	now := time.Now().UTC()
	bal.available = bal.available.Sub(amount)
	bal.withdrawals = bal.withdrawals.Add(amount)
	if err := l.store.UpsertWallet(ctx, bal.wallet(userID, now)); err != nil {
		return model.Transaction{}, fmt.Errorf("update wallet: %w", err)
	}

	tx := model.Transaction{
		ID:          generateID("txn"),
		UserID:      userID,
		Type:        model.TransactionWithdrawal,
		Amount:      amount.StringFixed(2),
		Status:      model.StatusCompleted,
		Provider:    string(req.Provider),
		Reference:   res.TransactionID,
		Description: fmt.Sprintf("withdrawal via %s", req.Provider),
		CreatedAt:   now,
	}
	l.record(ctx, tx)

	slog.InfoContext(ctx, "withdrawal_completed",
		"user_id", userID,
		"amount", amount.StringFixed(2),
		"provider", string(req.Provider),
	)

	l.publish(ctx, events.EventWithdrawalCompleted, userID, map[string]any{
		"user_id":        userID,
		"provider":       string(req.Provider),
		"amount":         amount.StringFixed(2),
		"transaction_id": tx.ID,
	})

	return tx, nil
}

// Deposit tops up a wallet's available balance via a provider charge.
func (l *Ledger) Deposit(ctx context.Context, userID string, req model.DepositRequest) (model.Transaction, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return model.Transaction{}, err
	}

	unlock := l.locks.Lock("wallet:" + userID)
	defer unlock()

	provider, err := l.providers.Get(req.Provider)
	if err != nil {
		return model.Transaction{}, err
	}
	res, err := provider.ProcessPayment(ctx, payment.Request{
		Amount:        amount,
		Currency:      "ETB",
		PhoneNumber:   req.PhoneNumber,
		AccountNumber: req.AccountNumber,
		Reference:     generateID("dep"),
		Description:   "wallet deposit",
	})
	if err != nil {
		return model.Transaction{}, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if !res.Success {
		return model.Transaction{}, fmt.Errorf("%w: %s", ErrProviderFailed, res.Message)
	}

	now := time.Now().UTC()
	bal, err := l.loadBalances(ctx, userID)
	if err != nil {
		return model.Transaction{}, err
	}
	bal.available = bal.available.Add(amount)
	bal.deposits = bal.deposits.Add(amount)
	if err := l.store.UpsertWallet(ctx, bal.wallet(userID, now)); err != nil {
		return model.Transaction{}, fmt.Errorf("update wallet: %w", err)
	}

	tx := model.Transaction{
		ID:          generateID("txn"),
		UserID:      userID,
		Type:        model.TransactionDeposit,
		Amount:      amount.StringFixed(2),
		Status:      model.StatusCompleted,
		Provider:    string(req.Provider),
		Reference:   res.TransactionID,
		Description: fmt.Sprintf("deposit via %s", req.Provider),
		CreatedAt:   now,
	}
	l.record(ctx, tx)

	slog.InfoContext(ctx, "deposit_completed",
		"user_id", userID,
		"amount", amount.StringFixed(2),
		"provider", string(req.Provider),
	)

	l.publish(ctx, events.EventDepositCompleted, userID, map[string]any{
		"user_id":        userID,
		"provider":       string(req.Provider),
		"amount":         amount.StringFixed(2),
		"transaction_id": tx.ID,
	})

	return tx, nil
}

// EscrowStatus returns the escrow for a booking.
func (l *Ledger) EscrowStatus(ctx context.Context, bookingID string) (model.Escrow, error) {
	esc, err := l.store.GetEscrow(ctx, bookingID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Escrow{}, fmt.Errorf("%w: booking %s", ErrEscrowNotFound, bookingID)
	}
	return esc, err
}

// WalletBalance returns a user's wallet, zero-valued if never touched.
func (l *Ledger) WalletBalance(ctx context.Context, userID string) (model.Wallet, error) {
	bal, err := l.loadBalances(ctx, userID)
	if err != nil {
		return model.Wallet{}, err
	}
	return bal.wallet(userID, time.Now().UTC()), nil
}

// TransactionHistory returns a user's transactions, newest first.
func (l *Ledger) TransactionHistory(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return l.store.ListTransactions(ctx, userID, limit)
}

// PaymentsByBooking returns every payment recorded for a booking.
func (l *Ledger) PaymentsByBooking(ctx context.Context, bookingID string) ([]model.Payment, error) {
	return l.store.ListPaymentsByBooking(ctx, bookingID)
}

// recordCompletion feeds the settled rental back into trust scoring
// for both sides.
func (l *Ledger) recordCompletion(ctx context.Context, esc model.Escrow) {
	if l.trust == nil {
		return
	}
	event := model.TrustEvent{
		Kind:       model.EventTransactionCompleted,
		Reason:     fmt.Sprintf("rental completed for booking %s", esc.BookingID),
		OccurredAt: time.Now().UTC(),
	}
	for _, userID := range []string{esc.RenterID, esc.OwnerID} {
		if _, _, err := l.trust.RecordEvent(ctx, userID, event); err != nil {
			slog.WarnContext(ctx, "trust_event_failed", "user_id", userID, "error", err)
		}
	}
}

func (l *Ledger) originalPayment(ctx context.Context, bookingID string) (model.Payment, error) {
	payments, err := l.store.ListPaymentsByBooking(ctx, bookingID)
	if err != nil {
		return model.Payment{}, fmt.Errorf("list payments: %w", err)
	}
	for i := len(payments) - 1; i >= 0; i-- {
		if payments[i].Status == model.StatusCompleted {
			return payments[i], nil
		}
	}
	return model.Payment{}, fmt.Errorf("no completed payment for booking %s", bookingID)
}

func (l *Ledger) record(ctx context.Context, tx model.Transaction) {
	if err := l.store.SaveTransaction(ctx, tx); err != nil {
		slog.ErrorContext(ctx, "save_transaction_failed", "transaction_id", tx.ID, "error", err)
	}
}

func (l *Ledger) publish(ctx context.Context, eventType, entityKey string, data map[string]any) {
	if l.publisher == nil {
		return
	}
	_ = l.publisher.Publish(ctx, eventType, entityKey, data)
}

// balances is a wallet parsed into exact decimals for arithmetic.
type balances struct {
	available   decimal.Decimal
	held        decimal.Decimal
	deposits    decimal.Decimal
	withdrawals decimal.Decimal
	earnings    decimal.Decimal
}

func (l *Ledger) loadBalances(ctx context.Context, userID string) (balances, error) {
	w, err := l.store.GetWallet(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return balances{}, nil
	}
	if err != nil {
		return balances{}, fmt.Errorf("load wallet: %w", err)
	}
	return balances{
		available:   parseOrZero(w.AvailableBalance),
		held:        parseOrZero(w.HeldBalance),
		deposits:    parseOrZero(w.TotalDeposits),
		withdrawals: parseOrZero(w.TotalWithdrawals),
		earnings:    parseOrZero(w.TotalEarnings),
	}, nil
}

func (b balances) wallet(userID string, now time.Time) model.Wallet {
	return model.Wallet{
		UserID:           userID,
		AvailableBalance: b.available.StringFixed(2),
		HeldBalance:      b.held.StringFixed(2),
		TotalDeposits:    b.deposits.StringFixed(2),
		TotalWithdrawals: b.withdrawals.StringFixed(2),
		TotalEarnings:    b.earnings.StringFixed(2),
		UpdatedAt:        now,
	}
}

func parseOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: amount %q is not a decimal", ErrValidation, s)
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return d, nil
}

func generateID(prefix string) string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return prefix + "_" + hex.EncodeToString(b[:8])
}
