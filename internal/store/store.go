// Package store defines the persistence interfaces the core services
// depend on, with in-memory, MongoDB and PostgreSQL implementations.
// Services never touch a concrete store.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/addisrent/addisrent/internal/model"
)

var (
	// ErrNotFound is returned when the referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional update loses the race,
	// e.g. an escrow state transition whose precondition no longer holds.
	ErrConflict = errors.New("conflict")
)

// TrustStore persists trust profiles.
type TrustStore interface {
	GetTrustProfile(ctx context.Context, userID string) (model.TrustProfile, error)
	UpsertTrustProfile(ctx context.Context, p model.TrustProfile) error
}

// PaymentStore persists wallets, escrows and the transaction audit trail.
type PaymentStore interface {
	GetWallet(ctx context.Context, userID string) (model.Wallet, error)
	UpsertWallet(ctx context.Context, w model.Wallet) error

	GetEscrow(ctx context.Context, bookingID string) (model.Escrow, error)
	SaveEscrow(ctx context.Context, e model.Escrow) error
	// TransitionEscrow is a compare-and-swap on escrow state: it moves
	// bookingID from state `from` to state `to` and stamps the release
	// fields, or fails with ErrConflict if another writer got there
	// first. First writer wins.
	TransitionEscrow(ctx context.Context, bookingID string, from, to model.EscrowState, releasedTo model.ReleaseTarget, at time.Time) (model.Escrow, error)

	SaveTransaction(ctx context.Context, tx model.Transaction) error
	// ListTransactions returns a user's transactions newest first.
	ListTransactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error)

	SavePayment(ctx context.Context, p model.Payment) error
	ListPaymentsByBooking(ctx context.Context, bookingID string) ([]model.Payment, error)
}

// ReviewStore persists reviews and moderation reports.
type ReviewStore interface {
	SaveReview(ctx context.Context, r model.Review) error
	UpdateReview(ctx context.Context, r model.Review) error
	GetReview(ctx context.Context, reviewID string) (model.Review, error)
	DeleteReview(ctx context.Context, reviewID string) error
	ListReviewsByTarget(ctx context.Context, targetID string) ([]model.Review, error)
	ListReviewsByReviewer(ctx context.Context, reviewerID string) ([]model.Review, error)

	SaveReport(ctx context.Context, rep model.ReviewReport) error
	GetReport(ctx context.Context, reportID string) (model.ReviewReport, error)
	UpdateReport(ctx context.Context, rep model.ReviewReport) error
}

// Store is the full persistence surface the server wires up.
type Store interface {
	TrustStore
	PaymentStore
	ReviewStore

	Close() error
}
