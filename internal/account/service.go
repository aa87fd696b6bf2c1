package account

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const referralCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Service manages account registration and lookup.
type Service struct {
	store Store
}

// NewService creates an account service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// RegisterInput captures the data required to open an account. ID is the
// authenticated principal id supplied by the identity provider.
type RegisterInput struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	ReferralCode string
}

// Register opens an account for the authenticated principal. When a
// referral code is supplied it must belong to an existing account and is
// recorded immutably.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Account, error) {
	if strings.TrimSpace(input.ID) == "" {
		return Account{}, fmt.Errorf("principal id is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return Account{}, fmt.Errorf("name is required")
	}

	referredBy := ""
	if code := strings.ToUpper(strings.TrimSpace(input.ReferralCode)); code != "" {
		if _, err := s.store.GetByReferralCode(ctx, code); err != nil {
			if errors.Is(err, ErrNotFound) {
				return Account{}, fmt.Errorf("unknown referral code %s", code)
			}
			return Account{}, err
		}
		referredBy = code
	}

	a := Account{
		ID:                 input.ID,
		Name:               strings.TrimSpace(input.Name),
		Email:              strings.TrimSpace(input.Email),
		Phone:              strings.TrimSpace(input.Phone),
		Status:             StatusActive,
		VerificationStatus: VerificationNotApplied,
		ReferredBy:         referredBy,
		CreatedAt:          time.Now().UTC(),
	}

	// Referral codes can collide; retry with a fresh code a few times.
	for attempt := 0; attempt < 3; attempt++ {
		a.ReferralCode = newReferralCode()
		err := s.store.Create(ctx, a)
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, ErrDuplicateAccount) {
			return Account{}, err
		}
		if _, getErr := s.store.Get(ctx, a.ID); getErr == nil {
			return Account{}, ErrDuplicateAccount
		}
	}
	return Account{}, ErrDuplicateAccount
}

// Get fetches an account by id.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.store.Get(ctx, id)
}

// List returns every account. Administrative use only.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.store.List(ctx)
}

func newReferralCode() string {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteByte(referralCodeAlphabet[rand.Intn(len(referralCodeAlphabet))])
	}
	return b.String()
}
