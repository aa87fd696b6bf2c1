package referral

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/earnmaster/engine/internal/account"
	"github.com/earnmaster/engine/internal/ledger"
	"github.com/earnmaster/engine/internal/settings"
)

var (
	// ErrAlreadyApplied indicates the account already has a referrer;
	// referred-by is immutable once set.
	ErrAlreadyApplied = errors.New("referral code already applied")

	// ErrSelfReferral indicates the code belongs to the applying account.
	ErrSelfReferral = errors.New("cannot apply own referral code")
)

// Service applies referral codes and distributes referrer bonuses.
type Service struct {
	accounts account.Store
	ledger   *ledger.Service
	settings settings.Source
	logger   *slog.Logger
}

// NewService constructs a referral service.
func NewService(accounts account.Store, led *ledger.Service, src settings.Source, logger *slog.Logger) *Service {
	return &Service{accounts: accounts, ledger: led, settings: src, logger: logger}
}

// Apply records the referrer code on an account. Rejected when the code
// is unknown, belongs to the account itself, or a code was already set.
func (s *Service) Apply(ctx context.Context, accountID, code string) error {
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return err
	}
	if !cfg.ReferralEnabled {
		return fmt.Errorf("referral program is disabled")
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return fmt.Errorf("referral code is required")
	}

	referrer, err := s.accounts.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return fmt.Errorf("unknown referral code %s", code)
		}
		return err
	}
	if referrer.ID == accountID {
		return ErrSelfReferral
	}

	_, err = s.accounts.Update(ctx, accountID, func(a *account.Account) error {
		if a.ReferredBy != "" {
			return ErrAlreadyApplied
		}
		a.ReferredBy = code
		return nil
	})
	return err
}

// Cascade credits the referrer of a freshly verified account. The bonus
// amount was snapshotted into the verification request, and the request's
// terminal-state guard bounds the cascade to firing once per approval.
func (s *Service) Cascade(ctx context.Context, verified account.Account, referrerBonus int64) error {
	if verified.ReferredBy == "" || referrerBonus <= 0 {
		return nil
	}

	referrer, err := s.accounts.GetByReferralCode(ctx, verified.ReferredBy)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			// Referrer deleted since the code was applied; nothing to pay.
			s.logger.Warn("referral cascade skipped, referrer gone",
				slog.String("account_id", verified.ID),
				slog.String("referred_by", verified.ReferredBy))
			return nil
		}
		return err
	}

	if _, err := s.ledger.Credit(ctx, referrer.ID, referrerBonus, ledger.EntryReferral,
		fmt.Sprintf("referral bonus for %s", verified.Name)); err != nil {
		return err
	}

	_, err = s.accounts.Update(ctx, referrer.ID, func(a *account.Account) error {
		a.ReferralCount++
		return nil
	})
	return err
}
