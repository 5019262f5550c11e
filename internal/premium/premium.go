// Package premium holds the subscription state consulted by quota checks.
// Checkout and cancellation happen elsewhere; this package only records
// their outcome.
package premium

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/rcliao/allergy-diary/internal/model"
	"github.com/rcliao/allergy-diary/internal/store"
)

// Service reads and writes the premium status record.
type Service struct {
	kv            *store.Adapter
	clock         clockwork.Clock
	enforceExpiry bool
	log           *slog.Logger
}

// NewService creates a premium Service. With enforceExpiry set, a
// subscription past its expiry date no longer counts as active.
func NewService(kv *store.Adapter, clock clockwork.Clock, enforceExpiry bool, log *slog.Logger) *Service {
	return &Service{
		kv:            kv,
		clock:         clock,
		enforceExpiry: enforceExpiry,
		log:           log.With("component", "premium"),
	}
}

// Status returns the stored record.
func (s *Service) Status(ctx context.Context) model.PremiumStatus {
	return store.Read(ctx, s.kv, store.KeyPremiumStatus, model.PremiumStatus{})
}

// IsActive reports whether premium privileges apply right now.
func (s *Service) IsActive(ctx context.Context) bool {
	st := s.Status(ctx)
	if !st.IsPremium {
		return false
	}
	if st.SubscriptionType == model.SubscriptionLifetime || st.ExpiryDate == nil {
		return true
	}
	if s.clock.Now().Before(*st.ExpiryDate) {
		return true
	}
	if !s.enforceExpiry {
		s.log.Warn("premium subscription past expiry date still treated as active",
			"expiry", st.ExpiryDate.Format("2006-01-02"))
		return true
	}
	s.log.Warn("premium subscription expired", "expiry", st.ExpiryDate.Format("2006-01-02"))
	return false
}

// Set replaces the status record.
func (s *Service) Set(ctx context.Context, st model.PremiumStatus) error {
	if st.SubscriptionType != "" && !model.ValidSubscriptions[st.SubscriptionType] {
		return fmt.Errorf("invalid subscription type %q (valid: monthly, yearly, lifetime)", st.SubscriptionType)
	}
	if st.SubscriptionDate != nil && st.ExpiryDate != nil && st.ExpiryDate.Before(*st.SubscriptionDate) {
		return fmt.Errorf("expiry date is before subscription date")
	}
	s.kv.Write(ctx, store.KeyPremiumStatus, st)
	return nil
}

// Activate records a new subscription starting now. Monthly and yearly plans
// get an expiry date; lifetime does not.
func (s *Service) Activate(ctx context.Context, plan model.SubscriptionType) (model.PremiumStatus, error) {
	now := s.clock.Now().UTC()
	st := model.PremiumStatus{
		IsPremium:        true,
		SubscriptionType: plan,
		SubscriptionDate: &now,
	}
	switch plan {
	case model.SubscriptionMonthly:
		exp := now.AddDate(0, 1, 0)
		st.ExpiryDate = &exp
	case model.SubscriptionYearly:
		exp := now.AddDate(1, 0, 0)
		st.ExpiryDate = &exp
	}
	if err := s.Set(ctx, st); err != nil {
		return model.PremiumStatus{}, err
	}
	return st, nil
}

// Cancel drops premium privileges.
func (s *Service) Cancel(ctx context.Context) {
	s.kv.Write(ctx, store.KeyPremiumStatus, model.PremiumStatus{IsPremium: false})
}
