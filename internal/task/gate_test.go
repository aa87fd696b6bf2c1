package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/earnmaster/engine/internal/account"
	"github.com/earnmaster/engine/internal/ledger"
	"github.com/earnmaster/engine/internal/logging"
	"github.com/earnmaster/engine/internal/settings"
)

func newTestGate(t *testing.T) (*Gate, account.Store, Catalog, settings.Source) {
	t.Helper()
	logger := logging.Discard()
	accounts := account.NewMemoryStore()
	ledgerSvc := ledger.NewService(accounts, ledger.NewMemoryEntryStore(), logger)
	src := settings.NewMemorySource()
	catalog := NewMemoryCatalog()
	gate := NewGate(catalog, NewMemoryCompletionStore(), accounts, ledgerSvc, src, time.UTC, nil, logger)
	return gate, accounts, catalog, src
}

func seedAccount(t *testing.T, accounts account.Store, id string, verified bool) {
	t.Helper()
	status := account.VerificationNotApplied
	if verified {
		status = account.VerificationApproved
	}
	err := accounts.Create(context.Background(), account.Account{
		ID:                 id,
		Name:               "User " + id,
		Status:             account.StatusActive,
		VerificationStatus: status,
		ReferralCode:       "CODE" + id,
		CreatedAt:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func seedTask(t *testing.T, catalog Catalog, id string, reward int64, active bool) {
	t.Helper()
	err := catalog.Create(context.Background(), Task{
		ID:     id,
		Title:  "Watch the promo",
		Type:   TypeVideo,
		Reward: reward,
		Active: active,
	})
	if err != nil {
		t.Fatalf("seed task %s: %v", id, err)
	}
}

func TestCompleteCreditsOncePerDay(t *testing.T) {
	gate, accounts, catalog, _ := newTestGate(t)
	ctx := context.Background()
	seedAccount(t, accounts, "u1", true)
	seedTask(t, catalog, "t1", 25, true)

	res, err := gate.Complete(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Reward != 25 || res.Balance != 25 {
		t.Fatalf("unexpected result %+v", res)
	}

	if _, err := gate.Complete(ctx, "u1", "t1"); !errors.Is(err, ErrAlreadyCompletedToday) {
		t.Fatalf("expected already completed, got %v", err)
	}

	a, _ := accounts.Get(ctx, "u1")
	if a.Balance != 25 {
		t.Fatalf("reward credited more than once, balance %d", a.Balance)
	}
}

func TestCompleteConcurrentCreditsOnce(t *testing.T) {
	gate, accounts, catalog, _ := newTestGate(t)
	ctx := context.Background()
	seedAccount(t, accounts, "u1", true)
	seedTask(t, catalog, "t1", 25, true)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = gate.Complete(ctx, "u1", "t1")
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrAlreadyCompletedToday) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one success, got %d", succeeded)
	}

	a, _ := accounts.Get(ctx, "u1")
	if a.Balance != 25 {
		t.Fatalf("expected balance 25, got %d", a.Balance)
	}
}

func TestCompleteDistinctTasksSameDay(t *testing.T) {
	gate, accounts, catalog, _ := newTestGate(t)
	ctx := context.Background()
	seedAccount(t, accounts, "u1", true)
	seedTask(t, catalog, "t1", 25, true)
	seedTask(t, catalog, "t2", 40, true)

	if _, err := gate.Complete(ctx, "u1", "t1"); err != nil {
		t.Fatalf("complete t1: %v", err)
	}
	if _, err := gate.Complete(ctx, "u1", "t2"); err != nil {
		t.Fatalf("complete t2: %v", err)
	}

	a, _ := accounts.Get(ctx, "u1")
	if a.Balance != 65 {
		t.Fatalf("expected balance 65, got %d", a.Balance)
	}
}

func TestCompleteRequiresVerification(t *testing.T) {
	gate, accounts, catalog, _ := newTestGate(t)
	seedAccount(t, accounts, "u1", false)
	seedTask(t, catalog, "t1", 25, true)

	if _, err := gate.Complete(context.Background(), "u1", "t1"); !errors.Is(err, account.ErrNotVerified) {
		t.Fatalf("expected not verified, got %v", err)
	}
}

func TestCompleteInactiveTask(t *testing.T) {
	gate, accounts, catalog, _ := newTestGate(t)
	seedAccount(t, accounts, "u1", true)
	seedTask(t, catalog, "t1", 25, false)

	if _, err := gate.Complete(context.Background(), "u1", "t1"); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected inactive task, got %v", err)
	}
}

func TestCompleteEarningDisabled(t *testing.T) {
	gate, accounts, catalog, src := newTestGate(t)
	ctx := context.Background()
	seedAccount(t, accounts, "u1", true)
	seedTask(t, catalog, "t1", 25, true)

	cfg, _ := src.Load(ctx)
	cfg.EarningEnabled = false
	if err := src.Save(ctx, cfg); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	if _, err := gate.Complete(ctx, "u1", "t1"); err == nil {
		t.Fatalf("expected earning disabled rejection")
	}
}

func TestCompleteUnknownTask(t *testing.T) {
	gate, accounts, _, _ := newTestGate(t)
	seedAccount(t, accounts, "u1", true)

	if _, err := gate.Complete(context.Background(), "u1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
