package httpapi

import (
	"net/http"
	"strconv"

	"github.com/addisrent/addisrent/internal/escrow"
	"github.com/addisrent/addisrent/internal/middleware"
	"github.com/addisrent/addisrent/internal/model"
)

type PaymentHandlers struct {
	ledger *escrow.Ledger
}

func NewPaymentHandlers(ledger *escrow.Ledger) *PaymentHandlers {
	return &PaymentHandlers{ledger: ledger}
}

// POST /v1/payments/process
func (h *PaymentHandlers) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePaymentRequest
	if !decodeValid(w, r, &req) {
		return
	}

	pay, err := h.ledger.ProcessPayment(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, pay)
}

// POST /v1/payments/release-escrow
func (h *PaymentHandlers) ReleaseEscrow(w http.ResponseWriter, r *http.Request) {
	var req model.ReleaseEscrowRequest
	if !decodeValid(w, r, &req) {
		return
	}

	res, err := h.ledger.Release(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// POST /v1/payments/refund/{bookingId}
func (h *PaymentHandlers) Refund(w http.ResponseWriter, r *http.Request) {
	bookingID := r.PathValue("bookingId")

	var req model.RefundRequest
	if !decodeValid(w, r, &req) {
		return
	}

	res, err := h.ledger.Refund(r.Context(), bookingID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// POST /v1/payments/withdraw
func (h *PaymentHandlers) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req model.WithdrawalRequest
	if !decodeValid(w, r, &req) {
		return
	}

	tx, err := h.ledger.Withdraw(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

// POST /v1/payments/deposit
func (h *PaymentHandlers) Deposit(w http.ResponseWriter, r *http.Request) {
	var req model.DepositRequest
	if !decodeValid(w, r, &req) {
		return
	}

	tx, err := h.ledger.Deposit(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

// GET /v1/payments/wallet
func (h *PaymentHandlers) Wallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.ledger.WalletBalance(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wallet)
}

// GET /v1/payments/transactions?limit={n}
func (h *PaymentHandlers) Transactions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	txs, err := h.ledger.TransactionHistory(r.Context(), middleware.GetUserID(r.Context()), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// GET /v1/payments/booking/{bookingId}
func (h *PaymentHandlers) PaymentsByBooking(w http.ResponseWriter, r *http.Request) {
	payments, err := h.ledger.PaymentsByBooking(r.Context(), r.PathValue("bookingId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

// GET /v1/payments/escrow/{bookingId}
func (h *PaymentHandlers) EscrowStatus(w http.ResponseWriter, r *http.Request) {
	esc, err := h.ledger.EscrowStatus(r.Context(), r.PathValue("bookingId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, esc)
}
