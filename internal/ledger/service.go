package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/earnmaster/engine/internal/account"
)

// ErrInsufficientFunds occurs when a debit would take the balance negative.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Service owns balance mutation. Every credit and debit commits through
// the account store's atomic read-modify-write, so a balance is never
// read and written in separate round trips.
type Service struct {
	accounts account.Store
	entries  EntryStore
	logger   *slog.Logger
}

// NewService constructs the ledger service.
func NewService(accounts account.Store, entries EntryStore, logger *slog.Logger) *Service {
	return &Service{accounts: accounts, entries: entries, logger: logger}
}

// Credit increases the balance and appends a history entry. EARN credits
// also advance the lifetime-earned counter. Frozen accounts reject all
// mutations.
func (s *Service) Credit(ctx context.Context, accountID string, points int64, kind EntryType, description string) (int64, error) {
	if points <= 0 {
		return 0, fmt.Errorf("credit amount must be positive")
	}

	updated, err := s.accounts.Update(ctx, accountID, func(a *account.Account) error {
		if a.Frozen() {
			return account.ErrFrozen
		}
		a.Balance += points
		if kind == EntryEarn {
			a.TotalEarned += points
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.record(ctx, accountID, kind, points, description)
	return updated.Balance, nil
}

// Debit decreases the balance, failing with ErrInsufficientFunds when the
// result would go negative. The check and the write are one atomic unit.
func (s *Service) Debit(ctx context.Context, accountID string, points int64, kind EntryType, description string) (int64, error) {
	if points <= 0 {
		return 0, fmt.Errorf("debit amount must be positive")
	}

	updated, err := s.accounts.Update(ctx, accountID, func(a *account.Account) error {
		if a.Frozen() {
			return account.ErrFrozen
		}
		if a.Balance < points {
			return ErrInsufficientFunds
		}
		a.Balance -= points
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.record(ctx, accountID, kind, -points, description)
	return updated.Balance, nil
}

// PurchaseAdFree debits the ad-free price and flips the flag atomically.
func (s *Service) PurchaseAdFree(ctx context.Context, accountID string, cost int64) (int64, error) {
	if cost <= 0 {
		return 0, fmt.Errorf("ad-free price is not configured")
	}

	updated, err := s.accounts.Update(ctx, accountID, func(a *account.Account) error {
		if a.Frozen() {
			return account.ErrFrozen
		}
		if a.AdFree {
			return fmt.Errorf("account is already ad-free")
		}
		if a.Balance < cost {
			return ErrInsufficientFunds
		}
		a.Balance -= cost
		a.AdFree = true
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.record(ctx, accountID, EntryAdFreePurchase, -cost, "ad-free subscription purchase")
	return updated.Balance, nil
}

// Adjust applies a signed administrative correction.
func (s *Service) Adjust(ctx context.Context, accountID string, delta int64, reason string) (int64, error) {
	if delta == 0 {
		return 0, fmt.Errorf("adjustment must not be zero")
	}

	updated, err := s.accounts.Update(ctx, accountID, func(a *account.Account) error {
		if a.Frozen() {
			return account.ErrFrozen
		}
		if a.Balance+delta < 0 {
			return ErrInsufficientFunds
		}
		a.Balance += delta
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.record(ctx, accountID, EntryAdjustment, delta, reason)
	return updated.Balance, nil
}

// Balance returns the committed balance for an account.
func (s *Service) Balance(ctx context.Context, accountID string) (int64, error) {
	a, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

// Entries returns the newest history lines for an account.
func (s *Service) Entries(ctx context.Context, accountID string, limit int) ([]Entry, error) {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	return s.entries.ListByAccount(ctx, accountID, limit)
}

// record appends the history line for a committed mutation. History is
// advisory; a failed append is logged, not rolled back, because the
// balance change has already committed.
func (s *Service) record(ctx context.Context, accountID string, kind EntryType, points int64, description string) {
	e := Entry{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Type:        kind,
		Points:      points,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.entries.Append(ctx, e); err != nil {
		s.logger.Warn("append ledger entry failed",
			slog.String("account_id", accountID),
			slog.String("entry_type", string(kind)),
			slog.Int64("points", points),
			slog.Any("error", err))
	}
}
