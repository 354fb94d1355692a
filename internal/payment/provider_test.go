package payment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/addisrent/addisrent/internal/model"
)

func TestFactoryGet(t *testing.T) {
	f := NewFactory(Credentials{})

	for _, pt := range []model.ProviderType{model.ProviderTelebirr, model.ProviderMpesa, model.ProviderCBEBirr} {
		if _, err := f.Get(pt); err != nil {
			t.Errorf("Get(%s) = %v, want provider", pt, err)
		}
	}

	for _, pt := range []model.ProviderType{model.ProviderBankTransfer, model.ProviderCard, model.ProviderType("PAYPAL")} {
		if _, err := f.Get(pt); !errors.Is(err, ErrNotSupported) {
			t.Errorf("Get(%s) = %v, want ErrNotSupported", pt, err)
		}
	}
}

func TestMobileMoneyProcessPayment(t *testing.T) {
	ctx := context.Background()
	p := newMobileMoney("TLB", "Telebirr", "")

	tests := []struct {
		name        string
		phoneNumber string
		wantSuccess bool
	}{
		{"local mobile format", "0911234567", true},
		{"e164 format", "+251911234567", true},
		{"safaricom prefix", "0712345678", true},
		{"foreign number", "+14155551234", false},
		{"empty number", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.ProcessPayment(ctx, Request{
				Amount:      decimal.NewFromInt(500),
				Currency:    "ETB",
				PhoneNumber: tt.phoneNumber,
				Reference:   "REF-1",
			})
			if err != nil {
				t.Fatalf("ProcessPayment() error = %v", err)
			}
			if res.Success != tt.wantSuccess {
				t.Fatalf("Success = %v, want %v (%s)", res.Success, tt.wantSuccess, res.Message)
			}
			if tt.wantSuccess {
				if !strings.HasPrefix(res.TransactionID, "TLB-") {
					t.Errorf("TransactionID = %q, want TLB- prefix", res.TransactionID)
				}
				if res.Status != model.StatusCompleted {
					t.Errorf("Status = %v, want COMPLETED", res.Status)
				}
			} else if res.TransactionID != "" {
				t.Errorf("failed payment carries transaction ID %q", res.TransactionID)
			}
		})
	}
}

func TestCBEBirrRequiresAccountOrPhone(t *testing.T) {
	ctx := context.Background()
	p := newCBEBirr("")

	res, err := p.ProcessPayment(ctx, Request{Amount: decimal.NewFromInt(100), AccountNumber: "1000123456789"})
	if err != nil || !res.Success {
		t.Fatalf("account number payment = (%+v, %v), want success", res, err)
	}
	if !strings.HasPrefix(res.TransactionID, "CBE-") {
		t.Errorf("TransactionID = %q, want CBE- prefix", res.TransactionID)
	}

	res, err = p.ProcessPayment(ctx, Request{Amount: decimal.NewFromInt(100), PhoneNumber: "0911234567"})
	if err != nil || !res.Success {
		t.Fatalf("phone fallback payment = (%+v, %v), want success", res, err)
	}

	res, err = p.ProcessPayment(ctx, Request{Amount: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("ProcessPayment() error = %v", err)
	}
	if res.Success {
		t.Error("payment with no account and no phone should fail")
	}
}
