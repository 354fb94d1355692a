package httpapi

import (
	"net/http"

	"github.com/addisrent/addisrent/internal/middleware"
	"github.com/addisrent/addisrent/internal/model"
)

// RouterConfig carries everything the HTTP surface needs. Policies are
// enforced per route; the global chain only does recovery, request IDs
// and access logging.
type RouterConfig struct {
	JWTSecret []byte

	Payments *PaymentHandlers
	Reviews  *ReviewHandlers
	Trust    *TrustHandlers

	// Requests per minute per user on money endpoints. Zero disables
	// rate limiting, which the tests rely on.
	PaymentRateLimit int
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	auth := middleware.Auth(cfg.JWTSecret)
	adminOnly := middleware.Require(middleware.Policy{RequiredRoles: []model.UserRole{model.RoleAdmin}})
	ownerOnly := middleware.Require(middleware.Policy{RequiredRoles: []model.UserRole{model.RoleOwner, model.RoleAgent}})
	phoneVerified := middleware.Require(middleware.Policy{RequiresPhoneVerified: true})

	authed := func(h http.HandlerFunc) http.Handler { return auth(h) }
	chain := func(h http.HandlerFunc, wrap ...func(http.Handler) http.Handler) http.Handler {
		var handler http.Handler = h
		for i := len(wrap) - 1; i >= 0; i-- {
			handler = wrap[i](handler)
		}
		return auth(handler)
	}

	var rateLimit func(http.Handler) http.Handler
	if cfg.PaymentRateLimit > 0 {
		rateLimit = middleware.RateLimit(middleware.NewRateLimiter(cfg.PaymentRateLimit))
	}
	money := func(h http.HandlerFunc, wrap ...func(http.Handler) http.Handler) http.Handler {
		if rateLimit != nil {
			wrap = append(wrap, rateLimit)
		}
		return chain(h, wrap...)
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Payments and escrow.
	mux.Handle("POST /v1/payments/process", money(cfg.Payments.ProcessPayment))
	mux.Handle("POST /v1/payments/release-escrow", money(cfg.Payments.ReleaseEscrow, ownerOnly))
	mux.Handle("POST /v1/payments/refund/{bookingId}", money(cfg.Payments.Refund))
	mux.Handle("POST /v1/payments/withdraw", money(cfg.Payments.Withdraw, phoneVerified))
	mux.Handle("POST /v1/payments/deposit", money(cfg.Payments.Deposit))
	mux.Handle("GET /v1/payments/wallet", authed(cfg.Payments.Wallet))
	mux.Handle("GET /v1/payments/transactions", authed(cfg.Payments.Transactions))
	mux.Handle("GET /v1/payments/booking/{bookingId}", authed(cfg.Payments.PaymentsByBooking))
	mux.Handle("GET /v1/payments/escrow/{bookingId}", authed(cfg.Payments.EscrowStatus))

	// Reviews. Listing and stats are public so profiles can render for
	// anonymous visitors.
	mux.HandleFunc("GET /v1/reviews/target/{targetId}", cfg.Reviews.ListByTarget)
	mux.HandleFunc("GET /v1/reviews/target/{targetId}/stats", cfg.Reviews.Stats)
	mux.Handle("POST /v1/reviews", authed(cfg.Reviews.Create))
	mux.Handle("GET /v1/reviews/user/me", authed(cfg.Reviews.Mine))
	mux.HandleFunc("GET /v1/reviews/{reviewId}", cfg.Reviews.Get)
	mux.Handle("PUT /v1/reviews/{reviewId}", authed(cfg.Reviews.Update))
	mux.Handle("DELETE /v1/reviews/{reviewId}", authed(cfg.Reviews.Delete))
	mux.Handle("POST /v1/reviews/{reviewId}/helpful", authed(cfg.Reviews.MarkHelpful))
	mux.Handle("POST /v1/reviews/{reviewId}/response", authed(cfg.Reviews.Respond))
	mux.Handle("POST /v1/reviews/{reviewId}/report", authed(cfg.Reviews.Report))
	mux.Handle("POST /v1/reviews/admin/reports/{reportId}/resolve", chain(cfg.Reviews.ResolveReport, adminOnly))

	// Trust.
	mux.Handle("GET /v1/trust/me", authed(cfg.Trust.MyProfile))
	mux.Handle("GET /v1/trust/{userId}", authed(cfg.Trust.Profile))
	mux.Handle("GET /v1/trust/{userId}/eligibility", authed(cfg.Trust.Eligibility))
	mux.Handle("POST /v1/trust/{userId}/verifications", chain(cfg.Trust.RecordVerification, adminOnly))
	mux.Handle("POST /v1/trust/{userId}/events", chain(cfg.Trust.RecordEvent, adminOnly))

	return middleware.Recovery(middleware.RequestID(middleware.Logging(mux)))
}
