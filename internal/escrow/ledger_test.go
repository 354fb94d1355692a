package escrow

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/addisrent/addisrent/internal/model"
	"github.com/addisrent/addisrent/internal/payment"
	"github.com/addisrent/addisrent/internal/store"
)

type trustRecorderStub struct {
	events []struct {
		userID string
		kind   model.TrustEventKind
	}
}

func (t *trustRecorderStub) RecordEvent(_ context.Context, userID string, e model.TrustEvent) (model.TrustProfile, model.TrustChange, error) {
	t.events = append(t.events, struct {
		userID string
		kind   model.TrustEventKind
	}{userID, e.Kind})
	return model.TrustProfile{}, model.TrustChange{}, nil
}

func newTestLedger() (*Ledger, *store.MemoryStore, *trustRecorderStub) {
	st := store.NewMemoryStore()
	tr := &trustRecorderStub{}
	return NewLedger(st, payment.NewFactory(payment.Credentials{}), tr, nil), st, tr
}

func paymentReq(bookingID string) model.CreatePaymentRequest {
	return model.CreatePaymentRequest{
		BookingID:   bookingID,
		OwnerID:     "user_owner",
		Amount:      "1000",
		Provider:    model.ProviderTelebirr,
		PhoneNumber: "0911234567",
	}
}

func TestCalculateFees(t *testing.T) {
	tests := []struct {
		base                string
		tax, fee, wantTotal string
	}{
		{"1000", "150.00", "50.00", "1200.00"},
		{"100", "15.00", "5.00", "120.00"},
		{"333.33", "50.00", "16.67", "400.00"},
	}

	for _, tt := range tests {
		got := CalculateFees(decimal.RequireFromString(tt.base))
		if got.Tax != tt.tax || got.ServiceFee != tt.fee || got.Total != tt.wantTotal {
			t.Errorf("CalculateFees(%s) = %+v, want tax %s fee %s total %s",
				tt.base, got, tt.tax, tt.fee, tt.wantTotal)
		}
	}
}

func TestProcessPaymentHoldsEscrow(t *testing.T) {
	ctx := context.Background()
	l, st, _ := newTestLedger()

	pay, err := l.ProcessPayment(ctx, "user_renter", paymentReq("bk_1"))
	if err != nil {
		t.Fatalf("ProcessPayment() error = %v", err)
	}
	if pay.TotalAmount != "1200.00" || pay.Tax != "150.00" || pay.ServiceFee != "50.00" {
		t.Errorf("fee breakdown = %+v", pay)
	}
	if pay.Status != model.StatusCompleted || pay.TransactionID == "" {
		t.Errorf("payment incomplete: %+v", pay)
	}

	esc, err := st.GetEscrow(ctx, "bk_1")
	if err != nil {
		t.Fatalf("escrow not stored: %v", err)
	}
	if esc.State != model.EscrowHeld || esc.Amount != "1000.00" {
		t.Errorf("escrow = %+v, want HELD 1000.00", esc)
	}
	if esc.RenterID != "user_renter" || esc.OwnerID != "user_owner" {
		t.Errorf("escrow parties = %+v", esc)
	}

	owner, err := st.GetWallet(ctx, "user_owner")
	if err != nil {
		t.Fatalf("owner wallet missing: %v", err)
	}
	if owner.HeldBalance != "1000.00" || owner.AvailableBalance != "0.00" {
		t.Errorf("owner wallet = %+v, want held 1000.00 available 0.00", owner)
	}

	txs, _ := st.ListTransactions(ctx, "user_renter", 10)
	if len(txs) != 2 {
		t.Fatalf("renter transactions = %d, want 2", len(txs))
	}
	// Newest first: the hold follows the charge.
	if txs[0].Type != model.TransactionEscrowHold || txs[0].Amount != "1000.00" {
		t.Errorf("tx[0] = %+v, want ESCROW_HOLD 1000.00", txs[0])
	}
	if txs[1].Type != model.TransactionPayment || txs[1].Amount != "1200.00" {
		t.Errorf("tx[1] = %+v, want PAYMENT 1200.00", txs[1])
	}
}

func TestProcessPaymentRejectsDuplicateHold(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger()

	if _, err := l.ProcessPayment(ctx, "user_renter", paymentReq("bk_1")); err != nil {
		t.Fatalf("first payment failed: %v", err)
	}
	if _, err := l.ProcessPayment(ctx, "user_renter", paymentReq("bk_1")); !errors.Is(err, ErrInvalidState) {
		t.Errorf("duplicate hold error = %v, want ErrInvalidState", err)
	}
}

func TestProcessPaymentUnsupportedProvider(t *testing.T) {
	ctx := context.Background()
	l, st, _ := newTestLedger()

	req := paymentReq("bk_1")
	req.Provider = model.ProviderCard
	if _, err := l.ProcessPayment(ctx, "user_renter", req); !errors.Is(err, ErrProviderNotSupported) {
		t.Fatalf("error = %v, want ErrProviderNotSupported", err)
	}
	if _, err := st.GetEscrow(ctx, "bk_1"); !errors.Is(err, store.ErrNotFound) {
		t.Error("escrow created despite provider failure")
	}
}

func TestProcessPaymentProviderFailureLeavesNoState(t *testing.T) {
	ctx := context.Background()
	l, st, _ := newTestLedger()

	req := paymentReq("bk_1")
	req.PhoneNumber = "+14155551234"
	if _, err := l.ProcessPayment(ctx, "user_renter", req); !errors.Is(err, ErrProviderFailed) {
		t.Fatalf("error = %v, want ErrProviderFailed", err)
	}
	if _, err := st.GetEscrow(ctx, "bk_1"); !errors.Is(err, store.ErrNotFound) {
		t.Error("escrow created despite provider failure")
	}
	txs, _ := st.ListTransactions(ctx, "user_renter", 10)
	if len(txs) != 0 {
		t.Errorf("transactions recorded despite failure: %+v", txs)
	}
}

func TestReleaseFull(t *testing.T) {
	ctx := context.Background()
	l, st, tr := newTestLedger()

	if _, err := l.ProcessPayment(ctx, "user_renter", paymentReq("bk_1")); err != nil {
		t.Fatal(err)
	}

	res, err := l.Release(ctx, model.ReleaseEscrowRequest{BookingID: "bk_1", ReleaseType: model.ReleaseFull})
	if err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if res.ReleasedAmount != "1000.00" || res.RefundedAmount != "0.00" {
		t.Errorf("result = %+v", res)
	}

	esc, _ := st.GetEscrow(ctx, "bk_1")
	if esc.State != model.EscrowReleased || esc.ReleasedTo != model.ReleasedToOwner || esc.ReleasedAt == nil {
		t.Errorf("escrow after release = %+v", esc)
	}

	owner, _ := st.GetWallet(ctx, "user_owner")
	if owner.AvailableBalance != "1000.00" || owner.HeldBalance != "0.00" || owner.TotalEarnings != "1000.00" {
		t.Errorf("owner wallet = %+v", owner)
	}

	if len(tr.events) != 2 {
		t.Fatalf("trust events = %d, want 2", len(tr.events))
	}
	for _, ev := range tr.events {
		if ev.kind != model.EventTransactionCompleted {
			t.Errorf("trust event kind = %s", ev.kind)
		}
	}
}

func TestReleasePartialRefundsRemainder(t *testing.T) {
	ctx := context.Background()
	l, st, _ := newTestLedger()

	if _, err := l.ProcessPayment(ctx, "user_renter", paymentReq("bk_1")); err != nil {
		t.Fatal(err)
	}

	res, err := l.Release(ctx, model.ReleaseEscrowRequest{
		BookingID:     "bk_1",
		ReleaseType:   model.ReleasePartial,
		ReleaseAmount: "600",
	})
	if err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if res.ReleasedAmount != "600.00" || res.RefundedAmount != "400.00" {
		t.Errorf("result = %+v", res)
	}

	owner, _ := st.GetWallet(ctx, "user_owner")
	if owner.AvailableBalance != "600.00" || owner.HeldBalance != "0.00" {
		t.Errorf("owner wallet = %+v", owner)
	}

	txs, _ := st.ListTransactions(ctx, "user_renter", 10)
	var refund *model.Transaction
	for i := range txs {
		if txs[i].Type == model.TransactionRefund {
			refund = &txs[i]
		}
	}
	if refund == nil || refund.Amount != "400.00" || refund.Status != model.StatusCompleted {
		t.Errorf("renter refund transaction = %+v", refund)
	}
}

func TestReleaseDepositOnly(t *testing.T) {
	ctx := context.Background()
	l, st, _ := newTestLedger()

	if _, err := l.ProcessPayment(ctx, "user_renter", paymentReq("bk_1")); err != nil {
		t.Fatal(err)
	}

	res, err := l.Release(ctx, model.ReleaseEscrowRequest{BookingID: "bk_1", ReleaseType: model.ReleaseDepositOnly})
	if err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if res.ReleasedAmount != "200.00" || res.RefundedAmount != "800.00" {
		t.Errorf("result = %+v, want 20%% released", res)
	}

	owner, _ := st.GetWallet(ctx, "user_owner")
	if owner.AvailableBalance != "200.00" || owner.HeldBalance != "0.00" {
		t.Errorf("owner wallet = %+v", owner)
	}
}

func TestReleaseStateMachine(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger()

	if _, err := l.Release(ctx, model.ReleaseEscrowRequest{BookingID: "bk_missing", ReleaseType: model.ReleaseFull}); !errors.Is(err, ErrEscrowNotFound) {
		t.Errorf("missing escrow error = %v, want ErrEscrowNotFound", err)
	}

	if _, err := l.ProcessPayment(ctx, "user_renter", paymentReq("bk_1")); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Release(ctx, model.ReleaseEscrowRequest{BookingID: "bk_1", ReleaseType: model.ReleaseFull}); err != nil {
		t.Fatal(err)
	}

	if _, err := l.Release(ctx, model.ReleaseEscrowRequest{BookingID: "bk_1", ReleaseType: model.ReleaseFull}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second release error = %v, want ErrInvalidState", err)
	}
	if _, err := l.Refund(ctx, "bk_1", model.RefundRequest{}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("refund after release error = %v, want ErrInvalidState", err)
	}
}

func TestReleasePartialValidation(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger()

	if _, err := l.ProcessPayment(ctx, "user_renter", paymentReq("bk_1")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		amount string
	}{
		{"exceeds principal", "1500"},
		{"zero", "0"},
		{"negative", "-5"},
		{"not a number", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Release(ctx, model.ReleaseEscrowRequest{
				BookingID:     "bk_1",
				ReleaseType:   model.ReleasePartial,
				ReleaseAmount: tt.amount,
			})
			if !errors.Is(err, ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRefund(t *testing.T) {
	ctx := context.Background()
	l, st, _ := newTestLedger()

	if _, err := l.ProcessPayment(ctx, "user_renter", paymentReq("bk_1")); err != nil {
		t.Fatal(err)
	}

	res, err := l.Refund(ctx, "bk_1", model.RefundRequest{Reason: "booking cancelled"})
	if err != nil {
		t.Fatalf("Refund() error = %v", err)
	}
	if res.RefundAmount != "1000.00" {
		t.Errorf("result = %+v", res)
	}

	esc, _ := st.GetEscrow(ctx, "bk_1")
	if esc.State != model.EscrowRefunded || esc.ReleasedTo != model.ReleasedToRenter {
		t.Errorf("escrow after refund = %+v", esc)
	}

	owner, _ := st.GetWallet(ctx, "user_owner")
	if owner.HeldBalance != "0.00" || owner.AvailableBalance != "0.00" {
		t.Errorf("owner wallet = %+v, refund should not credit owner", owner)
	}

	txs, _ := st.ListTransactions(ctx, "user_renter", 10)
	if len(txs) == 0 || txs[0].Type != model.TransactionRefund || txs[0].Amount != "1000.00" {
		t.Errorf("renter transactions = %+v", txs)
	}

	// Refund is terminal; a release may not follow.
	if _, err := l.Release(ctx, model.ReleaseEscrowRequest{BookingID: "bk_1", ReleaseType: model.ReleaseFull}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("release after refund error = %v, want ErrInvalidState", err)
	}
}

func TestDepositAndWithdraw(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger()

	if _, err := l.Deposit(ctx, "user_1", model.DepositRequest{
		Amount: "500", Provider: model.ProviderTelebirr, PhoneNumber: "0911234567",
	}); err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}

	w, err := l.WalletBalance(ctx, "user_1")
	if err != nil {
		t.Fatal(err)
	}
	if w.AvailableBalance != "500.00" || w.TotalDeposits != "500.00" {
		t.Errorf("wallet after deposit = %+v", w)
	}

	if _, err := l.Withdraw(ctx, "user_1", model.WithdrawalRequest{
		Amount: "200", Provider: model.ProviderMpesa, PhoneNumber: "0712345678",
	}); err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}

	w, _ = l.WalletBalance(ctx, "user_1")
	if w.AvailableBalance != "300.00" || w.TotalWithdrawals != "200.00" {
		t.Errorf("wallet after withdrawal = %+v", w)
	}
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger()

	_, err := l.Withdraw(ctx, "user_1", model.WithdrawalRequest{
		Amount: "50", Provider: model.ProviderTelebirr, PhoneNumber: "0911234567",
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("error = %v, want ErrInsufficientBalance", err)
	}

	w, _ := l.WalletBalance(ctx, "user_1")
	if w.AvailableBalance != "0.00" || w.TotalWithdrawals != "0.00" {
		t.Errorf("wallet mutated on failed withdrawal: %+v", w)
	}
}

func TestWalletBalanceDefaultsToZero(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger()

	w, err := l.WalletBalance(ctx, "user_untouched")
	if err != nil {
		t.Fatalf("WalletBalance() error = %v", err)
	}
	if w.AvailableBalance != "0.00" || w.HeldBalance != "0.00" {
		t.Errorf("fresh wallet = %+v", w)
	}
}

func TestRequiredDeposit(t *testing.T) {
	base := decimal.NewFromInt(1000)

	tests := []struct {
		level model.TrustLevel
		want  string
	}{
		{model.TrustLevelNew, "2000.00"},
		{model.TrustLevelBasic, "1500.00"},
		{model.TrustLevelVerified, "1000.00"},
		{model.TrustLevelTrusted, "500.00"},
	}
	for _, tt := range tests {
		if got := RequiredDeposit(tt.level, base).StringFixed(2); got != tt.want {
			t.Errorf("RequiredDeposit(%s) = %s, want %s", tt.level, got, tt.want)
		}
	}
}
