// Package payment adapts Ethiopian payment providers behind a single
// interface. The sandbox adapters simulate the provider leg; swapping
// in real API clients only changes this package.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/addisrent/addisrent/internal/model"
	"github.com/addisrent/addisrent/internal/phone"
)

var ErrNotSupported = errors.New("payment provider not supported")

// Request is one charge, payout or deposit leg sent to a provider.
// PhoneNumber is required for mobile-money providers, AccountNumber
// for bank-backed ones.
type Request struct {
	Amount        decimal.Decimal
	Currency      string
	PhoneNumber   string
	AccountNumber string
	Reference     string
	Description   string
}

// Result is the provider's answer. Success false never carries a
// transaction ID.
type Result struct {
	Success       bool
	TransactionID string
	Reference     string
	Status        model.TransactionStatus
	Message       string
}

// Provider is the capability the escrow ledger depends on.
type Provider interface {
	ProcessPayment(ctx context.Context, req Request) (Result, error)
	VerifyPayment(ctx context.Context, transactionID string) (Result, error)
	RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (Result, error)
}

// Factory resolves a provider by its type tag. Unsupported tags fail
// fast so callers never hold funds against a provider that cannot
// move them.
type Factory struct {
	providers map[model.ProviderType]Provider
}

// Credentials carries per-provider API keys. The sandbox adapters run
// with empty keys; real clients refuse to start without them.
type Credentials struct {
	TelebirrAPIKey string
	MpesaAPIKey    string
	CBEBirrAPIKey  string
}

// NewFactory wires the sandbox adapters for the supported providers.
func NewFactory(creds Credentials) *Factory {
	return &Factory{
		providers: map[model.ProviderType]Provider{
			model.ProviderTelebirr: newMobileMoney("TLB", "Telebirr", creds.TelebirrAPIKey),
			model.ProviderMpesa:    newMobileMoney("MPS", "M-Pesa", creds.MpesaAPIKey),
			model.ProviderCBEBirr:  newCBEBirr(creds.CBEBirrAPIKey),
		},
	}
}

// Get returns the adapter for a provider type.
func (f *Factory) Get(pt model.ProviderType) (Provider, error) {
	p, ok := f.providers[pt]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotSupported, pt)
	}
	return p, nil
}

// mobileMoney simulates a wallet-to-wallet provider. Telebirr and
// M-Pesa only differ in their transaction ID prefix and display name.
type mobileMoney struct {
	prefix string
	name   string
	apiKey string
}

func newMobileMoney(prefix, name, apiKey string) *mobileMoney {
	return &mobileMoney{prefix: prefix, name: name, apiKey: apiKey}
}

func (m *mobileMoney) ProcessPayment(ctx context.Context, req Request) (Result, error) {
	num, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		return Result{
			Status:  model.StatusFailed,
			Message: "invalid Ethiopian phone number",
		}, nil
	}
	if !num.IsMobile() {
		return Result{
			Status:  model.StatusFailed,
			Message: "number cannot receive mobile money",
		}, nil
	}

	slog.InfoContext(ctx, "provider_payment",
		"provider", m.name,
		"amount", req.Amount.StringFixed(2),
		"phone", num.String(),
		"reference", req.Reference,
	)

	return Result{
		Success:       true,
		TransactionID: generateTxID(m.prefix),
		Reference:     req.Reference,
		Status:        model.StatusCompleted,
		Message:       fmt.Sprintf("payment processed via %s", m.name),
	}, nil
}

func (m *mobileMoney) VerifyPayment(ctx context.Context, transactionID string) (Result, error) {
	return Result{
		Success:       true,
		TransactionID: transactionID,
		Status:        model.StatusCompleted,
		Message:       "payment verified",
	}, nil
}

func (m *mobileMoney) RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (Result, error) {
	slog.InfoContext(ctx, "provider_refund",
		"provider", m.name,
		"transaction_id", transactionID,
		"amount", amount.StringFixed(2),
	)
	return Result{
		Success:       true,
		TransactionID: generateTxID(m.prefix),
		Status:        model.StatusCompleted,
		Message:       fmt.Sprintf("refunded %s ETB", amount.StringFixed(2)),
	}, nil
}

// cbeBirr simulates the CBE Birr bank wallet, which settles against a
// bank account rather than a bare phone number.
type cbeBirr struct {
	apiKey string
}

func newCBEBirr(apiKey string) *cbeBirr {
	return &cbeBirr{apiKey: apiKey}
}

func (c *cbeBirr) ProcessPayment(ctx context.Context, req Request) (Result, error) {
	account := strings.TrimSpace(req.AccountNumber)
	if account == "" {
		// CBE Birr wallets are also addressable by phone.
		num, err := phone.Normalize(req.PhoneNumber)
		if err != nil {
			return Result{
				Status:  model.StatusFailed,
				Message: "account number or valid phone number required",
			}, nil
		}
		account = num.String()
	}

	slog.InfoContext(ctx, "provider_payment",
		"provider", "CBE Birr",
		"amount", req.Amount.StringFixed(2),
		"account", account,
		"reference", req.Reference,
	)

	return Result{
		Success:       true,
		TransactionID: generateTxID("CBE"),
		Reference:     req.Reference,
		Status:        model.StatusCompleted,
		Message:       "payment processed via CBE Birr",
	}, nil
}

func (c *cbeBirr) VerifyPayment(ctx context.Context, transactionID string) (Result, error) {
	return Result{
		Success:       true,
		TransactionID: transactionID,
		Status:        model.StatusCompleted,
		Message:       "payment verified",
	}, nil
}

func (c *cbeBirr) RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (Result, error) {
	slog.InfoContext(ctx, "provider_refund",
		"provider", "CBE Birr",
		"transaction_id", transactionID,
		"amount", amount.StringFixed(2),
	)
	return Result{
		Success:       true,
		TransactionID: generateTxID("CBE"),
		Status:        model.StatusCompleted,
		Message:       fmt.Sprintf("refunded %s ETB", amount.StringFixed(2)),
	}, nil
}

func generateTxID(prefix string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), uuid.NewString()[:8])
}
