package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/earnmaster/engine/internal/account"
	"github.com/earnmaster/engine/internal/ledger"
	"github.com/earnmaster/engine/internal/notification"
	"github.com/earnmaster/engine/internal/settings"
)

const dayFormat = "2006-01-02"

// Gate enforces the once-per-day completion rule and credits rewards.
// The completion record is reserved first and the credit follows; a
// failed credit deletes the reservation so a retry can succeed.
type Gate struct {
	catalog     Catalog
	completions CompletionStore
	accounts    account.Store
	ledger      *ledger.Service
	settings    settings.Source
	dayLocation *time.Location
	notifier    notification.Notifier
	logger      *slog.Logger
}

// NewGate constructs the completion gate. dayLocation fixes the calendar
// day boundary for all users.
func NewGate(catalog Catalog, completions CompletionStore, accounts account.Store,
	led *ledger.Service, src settings.Source, dayLocation *time.Location,
	notifier notification.Notifier, logger *slog.Logger) *Gate {
	if dayLocation == nil {
		dayLocation = time.UTC
	}
	return &Gate{
		catalog:     catalog,
		completions: completions,
		accounts:    accounts,
		ledger:      led,
		settings:    src,
		dayLocation: dayLocation,
		notifier:    notifier,
		logger:      logger,
	}
}

// Result reports a credited completion.
type Result struct {
	TaskID  string
	Day     string
	Reward  int64
	Balance int64
}

// Complete credits today's reward for the task at most once.
func (g *Gate) Complete(ctx context.Context, accountID, taskID string) (Result, error) {
	cfg, err := g.settings.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	if !cfg.EarningEnabled {
		return Result{}, fmt.Errorf("earning is currently disabled")
	}

	acct, err := g.accounts.Get(ctx, accountID)
	if err != nil {
		return Result{}, err
	}
	if acct.RestrictedAt(time.Now().UTC()) {
		return Result{}, account.ErrRestricted
	}
	if acct.Frozen() {
		return Result{}, account.ErrFrozen
	}
	if !acct.Verified() {
		return Result{}, account.ErrNotVerified
	}

	t, err := g.catalog.Get(ctx, taskID)
	if err != nil {
		return Result{}, err
	}
	if !t.Active {
		return Result{}, ErrInactive
	}

	now := time.Now()
	day := now.In(g.dayLocation).Format(dayFormat)

	if err := g.completions.TryCreate(ctx, Completion{
		AccountID:   accountID,
		TaskID:      taskID,
		Day:         day,
		CompletedAt: now.UTC(),
	}); err != nil {
		return Result{}, err
	}

	balance, err := g.ledger.Credit(ctx, accountID, t.Reward, ledger.EntryEarn,
		fmt.Sprintf("mission reward: %s", t.Title))
	if err != nil {
		// Give the reservation back so a later attempt can credit.
		if delErr := g.completions.Delete(ctx, accountID, taskID, day); delErr != nil {
			g.logger.Error("completion rollback failed",
				slog.String("account_id", accountID),
				slog.String("task_id", taskID),
				slog.String("day", day),
				slog.Any("error", delErr))
		}
		return Result{}, err
	}

	if g.notifier != nil {
		_ = g.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTaskCompleted,
			Destination: accountID,
			Body:        fmt.Sprintf("mission %q rewarded %d points", t.Title, t.Reward),
		})
	}

	return Result{TaskID: taskID, Day: day, Reward: t.Reward, Balance: balance}, nil
}
