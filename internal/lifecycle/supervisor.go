package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/earnmaster/engine/internal/account"
	"github.com/earnmaster/engine/internal/notification"
)

// ErrGraceElapsed indicates the recovery window has closed; the sweep
// will finalize the deletion.
var ErrGraceElapsed = errors.New("recovery window elapsed")

// Supervisor owns account restriction and deletion lifecycles. The sweep
// is idempotent and safe to run redundantly: every transition re-checks
// its expiry timestamp inside the store's atomic update.
type Supervisor struct {
	accounts account.Store
	grace    time.Duration
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewSupervisor constructs the lifecycle supervisor. grace is the
// self-deletion recovery window.
func NewSupervisor(accounts account.Store, grace time.Duration, notifier notification.Notifier, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		accounts: accounts,
		grace:    grace,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Restrict sets the restriction state. durationDays > 0 makes the
// restriction expire automatically; 0 restricts indefinitely. Setting
// StatusActive clears any restriction.
func (s *Supervisor) Restrict(ctx context.Context, accountID string, status account.Status, reason string, durationDays int) (account.Account, error) {
	switch status {
	case account.StatusActive, account.StatusBlocked, account.StatusBanned:
	default:
		return account.Account{}, fmt.Errorf("unknown restriction status %q", status)
	}
	if durationDays < 0 {
		return account.Account{}, fmt.Errorf("duration days must not be negative")
	}

	now := s.now()
	updated, err := s.accounts.Update(ctx, accountID, func(a *account.Account) error {
		a.Status = status
		if status == account.StatusActive {
			a.RestrictionReason = ""
			a.RestrictedUntil = nil
			return nil
		}
		a.RestrictionReason = reason
		if durationDays > 0 {
			until := now.Add(time.Duration(durationDays) * 24 * time.Hour)
			a.RestrictedUntil = &until
		} else {
			a.RestrictedUntil = nil
		}
		return nil
	})
	if err != nil {
		return account.Account{}, err
	}

	if s.notifier != nil && status != account.StatusActive {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindAccountRestricted,
			Destination: accountID,
			Body:        fmt.Sprintf("account %s: %s", status, reason),
		})
	}
	return updated, nil
}

// ScheduleDeletion flags the account for deletion and freezes the
// balance. The account stays recoverable for the grace period.
func (s *Supervisor) ScheduleDeletion(ctx context.Context, accountID string) (account.Account, error) {
	now := s.now()
	return s.accounts.Update(ctx, accountID, func(a *account.Account) error {
		if a.DeletionScheduledAt != nil {
			return fmt.Errorf("deletion already scheduled")
		}
		a.DeletionScheduledAt = &now
		return nil
	})
}

// Recover clears the deletion flag while the grace period is open.
func (s *Supervisor) Recover(ctx context.Context, accountID string) (account.Account, error) {
	now := s.now()
	return s.accounts.Update(ctx, accountID, func(a *account.Account) error {
		if a.DeletionScheduledAt == nil {
			return fmt.Errorf("no deletion scheduled")
		}
		if !now.Before(a.DeletionScheduledAt.Add(s.grace)) {
			return ErrGraceElapsed
		}
		a.DeletionScheduledAt = nil
		return nil
	})
}

// Sweep reverts expired restrictions and finalizes elapsed deletions.
// Both passes are guarded by timestamp checks inside the atomic update,
// so concurrent or repeated sweeps settle on the same state.
func (s *Supervisor) Sweep(ctx context.Context) error {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	var reverted, deleted int
	for _, a := range accounts {
		if a.Status != account.StatusActive && a.RestrictedUntil != nil && !now.Before(*a.RestrictedUntil) {
			if _, err := s.accounts.Update(ctx, a.ID, func(cur *account.Account) error {
				if cur.Status == account.StatusActive || cur.RestrictedUntil == nil || now.Before(*cur.RestrictedUntil) {
					return nil
				}
				cur.Status = account.StatusActive
				cur.RestrictionReason = ""
				cur.RestrictedUntil = nil
				return nil
			}); err != nil {
				s.logger.Warn("restriction revert failed", slog.String("account_id", a.ID), slog.Any("error", err))
				continue
			}
			reverted++
		}

		if a.DeletionScheduledAt != nil && !now.Before(a.DeletionScheduledAt.Add(s.grace)) {
			// Re-check under the atomic update in case the account was
			// recovered since the listing.
			current, err := s.accounts.Get(ctx, a.ID)
			if err != nil {
				if errors.Is(err, account.ErrNotFound) {
					continue
				}
				s.logger.Warn("deletion check failed", slog.String("account_id", a.ID), slog.Any("error", err))
				continue
			}
			if current.DeletionScheduledAt == nil || now.Before(current.DeletionScheduledAt.Add(s.grace)) {
				continue
			}
			if err := s.accounts.Delete(ctx, a.ID); err != nil && !errors.Is(err, account.ErrNotFound) {
				s.logger.Warn("deletion finalize failed", slog.String("account_id", a.ID), slog.Any("error", err))
				continue
			}
			deleted++
		}
	}

	if reverted > 0 || deleted > 0 {
		s.logger.Info("lifecycle sweep", slog.Int("restrictions_reverted", reverted), slog.Int("accounts_deleted", deleted))
	}
	return nil
}
