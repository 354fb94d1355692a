package trust

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/addisrent/addisrent/internal/cache"
	"github.com/addisrent/addisrent/internal/events"
	"github.com/addisrent/addisrent/internal/locks"
	"github.com/addisrent/addisrent/internal/model"
	"github.com/addisrent/addisrent/internal/store"
)

var (
	ErrAlreadyVerified = errors.New("verification already recorded")
	ErrUnknownEvent    = errors.New("unknown trust event kind")
)

// Service serializes trust mutations per user and persists the result
// of the pure scoring engine. Reads go through an optional Redis view.
type Service struct {
	store     store.TrustStore
	profiles  *cache.View[model.TrustProfile]
	publisher *events.Publisher
	locks     locks.Keyed
}

func NewService(st store.TrustStore, profiles *cache.View[model.TrustProfile], pub *events.Publisher) *Service {
	return &Service{store: st, profiles: profiles, publisher: pub}
}

// Profile returns the user's trust profile, creating the default
// profile on first sight so every user has a standing.
func (s *Service) Profile(ctx context.Context, userID string) (model.TrustProfile, error) {
	if p, ok := s.profiles.Get(ctx, userID); ok {
		return p, nil
	}

	p, err := s.store.GetTrustProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		p = NewProfile(userID, time.Now().UTC())
		if err := s.store.UpsertTrustProfile(ctx, p); err != nil {
			return model.TrustProfile{}, fmt.Errorf("create trust profile: %w", err)
		}
		slog.InfoContext(ctx, "trust_profile_created", "user_id", userID, "score", p.Score)
	} else if err != nil {
		return model.TrustProfile{}, fmt.Errorf("load trust profile: %w", err)
	}

	s.profiles.Set(ctx, userID, p)
	return p, nil
}

// RecordVerification applies a completed identity verification. A
// verification type already on the profile is rejected so its weight
// cannot be farmed by repeating the same check.
func (s *Service) RecordVerification(ctx context.Context, userID string, vt model.VerificationType, actorID string) (model.TrustProfile, model.TrustChange, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	p, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return model.TrustProfile{}, model.TrustChange{}, err
	}
	if p.HasVerification(vt) {
		return p, model.TrustChange{}, fmt.Errorf("%w: %s", ErrAlreadyVerified, vt)
	}

	event := model.TrustEvent{
		Kind:         model.EventVerificationCompleted,
		Verification: vt,
		Reason:       fmt.Sprintf("%s verification completed", vt),
		ActorID:      actorID,
		OccurredAt:   time.Now().UTC(),
	}
	updated, change, err := s.apply(ctx, p, event)
	if err != nil {
		return model.TrustProfile{}, model.TrustChange{}, err
	}

	s.publish(ctx, events.EventVerificationCompleted, userID, map[string]any{
		"user_id":           userID,
		"verification_type": string(vt),
		"new_score":         updated.Score,
	})
	return updated, change, nil
}

// RecordEvent folds one trust event into the user's profile. The
// write-back is serialized per user; the scoring itself is pure.
func (s *Service) RecordEvent(ctx context.Context, userID string, event model.TrustEvent) (model.TrustProfile, model.TrustChange, error) {
	if !event.Kind.Valid() {
		return model.TrustProfile{}, model.TrustChange{}, fmt.Errorf("%w: %s", ErrUnknownEvent, event.Kind)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	p, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return model.TrustProfile{}, model.TrustChange{}, err
	}
	return s.apply(ctx, p, event)
}

func (s *Service) loadOrCreate(ctx context.Context, userID string) (model.TrustProfile, error) {
	p, err := s.store.GetTrustProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return NewProfile(userID, time.Now().UTC()), nil
	}
	if err != nil {
		return model.TrustProfile{}, fmt.Errorf("load trust profile: %w", err)
	}
	return p, nil
}

func (s *Service) apply(ctx context.Context, p model.TrustProfile, event model.TrustEvent) (model.TrustProfile, model.TrustChange, error) {
	updated := ApplyEvent(p, event)
	change := updated.History[len(updated.History)-1]

	if err := s.store.UpsertTrustProfile(ctx, updated); err != nil {
		return model.TrustProfile{}, model.TrustChange{}, fmt.Errorf("save trust profile: %w", err)
	}
	s.profiles.Set(ctx, updated.UserID, updated)

	slog.InfoContext(ctx, "trust_score_updated",
		"user_id", updated.UserID,
		"event_kind", string(event.Kind),
		"score_delta", change.ScoreDelta,
		"new_score", change.NewScore,
		"new_level", string(change.NewLevel),
	)

	s.publish(ctx, events.EventTrustScoreUpdated, updated.UserID, map[string]any{
		"user_id":        updated.UserID,
		"event_kind":     string(event.Kind),
		"previous_score": change.OldScore,
		"new_score":      change.NewScore,
		"previous_level": string(change.OldLevel),
		"new_level":      string(change.NewLevel),
		"reason":         change.Reason,
	})
	if change.LevelChanged() {
		s.publish(ctx, events.EventTrustLevelChanged, updated.UserID, map[string]any{
			"user_id":        updated.UserID,
			"previous_level": string(change.OldLevel),
			"new_level":      string(change.NewLevel),
			"effective_at":   change.At,
		})
	}
	return updated, change, nil
}

// Eligibility returns the trust-derived booking envelope for a user.
func (s *Service) Eligibility(ctx context.Context, userID string) (model.Eligibility, error) {
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return model.Eligibility{}, err
	}
	return model.Eligibility{
		UserID:            userID,
		Level:             p.Level,
		DepositMultiplier: DepositMultiplier(p.Level),
		RentalCeiling:     RentalCeiling(p.Level).StringFixed(2),
	}, nil
}

// QualifiesFor reports whether a user clears the full requirement set
// for a level, beyond the raw score threshold.
func (s *Service) QualifiesFor(ctx context.Context, userID string, stats model.UserStats, level model.TrustLevel) (bool, error) {
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return false, err
	}
	return Qualifies(p, stats, level), nil
}

func (s *Service) publish(ctx context.Context, eventType, entityKey string, data map[string]any) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(ctx, eventType, entityKey, data)
}
