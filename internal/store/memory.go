package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/addisrent/addisrent/internal/model"
)

// MemoryStore implements Store with in-process maps. Used by tests and
// the development store type.
type MemoryStore struct {
	mu           sync.RWMutex
	profiles     map[string]model.TrustProfile
	wallets      map[string]model.Wallet
	escrows      map[string]model.Escrow
	transactions []model.Transaction
	payments     map[string][]model.Payment
	reviews      map[string]model.Review
	reports      map[string]model.ReviewReport
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]model.TrustProfile),
		wallets:  make(map[string]model.Wallet),
		escrows:  make(map[string]model.Escrow),
		payments: make(map[string][]model.Payment),
		reviews:  make(map[string]model.Review),
		reports:  make(map[string]model.ReviewReport),
	}
}

func (s *MemoryStore) GetTrustProfile(ctx context.Context, userID string) (model.TrustProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return model.TrustProfile{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) UpsertTrustProfile(ctx context.Context, p model.TrustProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

func (s *MemoryStore) GetWallet(ctx context.Context, userID string) (model.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[userID]
	if !ok {
		return model.Wallet{}, ErrNotFound
	}
	return w, nil
}

func (s *MemoryStore) UpsertWallet(ctx context.Context, w model.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[w.UserID] = w
	return nil
}

func (s *MemoryStore) GetEscrow(ctx context.Context, bookingID string) (model.Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.escrows[bookingID]
	if !ok {
		return model.Escrow{}, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) SaveEscrow(ctx context.Context, e model.Escrow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.escrows[e.BookingID] = e
	return nil
}

func (s *MemoryStore) TransitionEscrow(ctx context.Context, bookingID string, from, to model.EscrowState, releasedTo model.ReleaseTarget, at time.Time) (model.Escrow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.escrows[bookingID]
	if !ok {
		return model.Escrow{}, ErrNotFound
	}
	if e.State != from {
		return model.Escrow{}, ErrConflict
	}
	e.State = to
	e.ReleasedTo = releasedTo
	e.ReleasedAt = &at
	s.escrows[bookingID] = e
	return e, nil
}

func (s *MemoryStore) SaveTransaction(ctx context.Context, tx model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, tx)
	return nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []model.Transaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].UserID == userID {
			result = append(result, s.transactions[i])
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (s *MemoryStore) SavePayment(ctx context.Context, p model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.BookingID] = append(s.payments[p.BookingID], p)
	return nil
}

func (s *MemoryStore) ListPaymentsByBooking(ctx context.Context, bookingID string) ([]model.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Payment(nil), s.payments[bookingID]...), nil
}

func (s *MemoryStore) SaveReview(ctx context.Context, r model.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[r.ID] = r
	return nil
}

func (s *MemoryStore) UpdateReview(ctx context.Context, r model.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[r.ID]; !ok {
		return ErrNotFound
	}
	s.reviews[r.ID] = r
	return nil
}

func (s *MemoryStore) GetReview(ctx context.Context, reviewID string) (model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[reviewID]
	if !ok {
		return model.Review{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) DeleteReview(ctx context.Context, reviewID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[reviewID]; !ok {
		return ErrNotFound
	}
	delete(s.reviews, reviewID)
	return nil
}

func (s *MemoryStore) ListReviewsByTarget(ctx context.Context, targetID string) ([]model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []model.Review
	for _, r := range s.reviews {
		if r.TargetID == targetID {
			result = append(result, r)
		}
	}
	sortReviewsNewestFirst(result)
	return result, nil
}

func (s *MemoryStore) ListReviewsByReviewer(ctx context.Context, reviewerID string) ([]model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []model.Review
	for _, r := range s.reviews {
		if r.ReviewerID == reviewerID {
			result = append(result, r)
		}
	}
	sortReviewsNewestFirst(result)
	return result, nil
}

func (s *MemoryStore) SaveReport(ctx context.Context, rep model.ReviewReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[rep.ID] = rep
	return nil
}

func (s *MemoryStore) GetReport(ctx context.Context, reportID string) (model.ReviewReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rep, ok := s.reports[reportID]
	if !ok {
		return model.ReviewReport{}, ErrNotFound
	}
	return rep, nil
}

func (s *MemoryStore) UpdateReport(ctx context.Context, rep model.ReviewReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[rep.ID]; !ok {
		return ErrNotFound
	}
	s.reports[rep.ID] = rep
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func sortReviewsNewestFirst(reviews []model.Review) {
	sort.Slice(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
}
