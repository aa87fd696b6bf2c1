package request

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/earnmaster/engine/internal/account"
	"github.com/earnmaster/engine/internal/ledger"
	"github.com/earnmaster/engine/internal/logging"
	"github.com/earnmaster/engine/internal/referral"
	"github.com/earnmaster/engine/internal/settings"
)

type fixture struct {
	svc      *Service
	accounts account.Store
	settings settings.Source
}

// faultyAccounts wraps a store and fails the next arm'd Update calls for
// one account, standing in for a transient storage outage.
type faultyAccounts struct {
	account.Store
	mu     sync.Mutex
	failID string
	fails  int
}

func (f *faultyAccounts) arm(id string, n int) {
	f.mu.Lock()
	f.failID = id
	f.fails = n
	f.mu.Unlock()
}

func (f *faultyAccounts) Update(ctx context.Context, id string, mutate func(*account.Account) error) (account.Account, error) {
	f.mu.Lock()
	if id == f.failID && f.fails > 0 {
		f.fails--
		f.mu.Unlock()
		return account.Account{}, fmt.Errorf("%w: simulated outage", account.ErrStorageUnavailable)
	}
	f.mu.Unlock()
	return f.Store.Update(ctx, id, mutate)
}

func newFaultyFixture(t *testing.T) (*fixture, *faultyAccounts) {
	t.Helper()
	logger := logging.Discard()
	accounts := &faultyAccounts{Store: account.NewMemoryStore()}
	ledgerSvc := ledger.NewService(accounts, ledger.NewMemoryEntryStore(), logger)
	src := settings.NewMemorySource()
	referrals := referral.NewService(accounts, ledgerSvc, src, logger)
	svc := NewService(NewMemoryStore(), accounts, ledgerSvc, src, referrals, nil, logger)
	return &fixture{svc: svc, accounts: accounts, settings: src}, accounts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logging.Discard()
	accounts := account.NewMemoryStore()
	ledgerSvc := ledger.NewService(accounts, ledger.NewMemoryEntryStore(), logger)
	src := settings.NewMemorySource()
	referrals := referral.NewService(accounts, ledgerSvc, src, logger)
	svc := NewService(NewMemoryStore(), accounts, ledgerSvc, src, referrals, nil, logger)
	return &fixture{svc: svc, accounts: accounts, settings: src}
}

func (f *fixture) seed(t *testing.T, id string, balance int64, verified bool) {
	t.Helper()
	status := account.VerificationNotApplied
	if verified {
		status = account.VerificationApproved
	}
	err := f.accounts.Create(context.Background(), account.Account{
		ID:                 id,
		Name:               "User " + id,
		Status:             account.StatusActive,
		VerificationStatus: status,
		Balance:            balance,
		ReferralCode:       "CODE" + id,
		CreatedAt:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func (f *fixture) balance(t *testing.T, id string) int64 {
	t.Helper()
	a, err := f.accounts.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return a.Balance
}

func TestCreateWithdrawalHoldsConvertedPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "u1", 1000, true)

	req, err := f.svc.CreateWithdrawal(ctx, "u1", 500, "bkash", "01700000000")
	if err != nil {
		t.Fatalf("create withdrawal: %v", err)
	}

	// 500 currency units at rate 0.5 is 1000 points.
	if req.Withdrawal.PointsHeld != 1000 {
		t.Fatalf("expected 1000 points held, got %d", req.Withdrawal.PointsHeld)
	}
	if req.Withdrawal.FeeAmount != 50 {
		t.Fatalf("expected fee 50, got %v", req.Withdrawal.FeeAmount)
	}
	if req.Withdrawal.PayoutAmount != 450 {
		t.Fatalf("expected payout 450, got %v", req.Withdrawal.PayoutAmount)
	}
	if got := f.balance(t, "u1"); got != 0 {
		t.Fatalf("hold should empty the balance, got %d", got)
	}
}

func TestCreateWithdrawalBelowMinimum(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "u1", 10_000, true)

	if _, err := f.svc.CreateWithdrawal(context.Background(), "u1", 100, "bkash", "01700000000"); err == nil {
		t.Fatalf("expected minimum withdrawal rejection")
	}
	if got := f.balance(t, "u1"); got != 10_000 {
		t.Fatalf("rejected creation must not move points, got %d", got)
	}
}

func TestCreateWithdrawalRequiresVerification(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "u1", 10_000, false)

	if _, err := f.svc.CreateWithdrawal(context.Background(), "u1", 500, "bkash", "01700000000"); !errors.Is(err, account.ErrNotVerified) {
		t.Fatalf("expected not verified, got %v", err)
	}
}

func TestCreateWithdrawalInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "u1", 500, true)

	if _, err := f.svc.CreateWithdrawal(context.Background(), "u1", 500, "bkash", "01700000000"); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestRejectWithdrawalReleasesHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "u1", 1000, true)

	req, err := f.svc.CreateWithdrawal(ctx, "u1", 500, "bkash", "01700000000")
	if err != nil {
		t.Fatalf("create withdrawal: %v", err)
	}

	resolved, err := f.svc.Resolve(ctx, req.ID, StatusRejected)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != StatusRejected {
		t.Fatalf("expected rejected, got %s", resolved.Status)
	}
	if got := f.balance(t, "u1"); got != 1000 {
		t.Fatalf("rejection should restore the hold, got %d", got)
	}
}

func TestApproveWithdrawalKeepsDebit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "u1", 1000, true)

	req, err := f.svc.CreateWithdrawal(ctx, "u1", 500, "bkash", "01700000000")
	if err != nil {
		t.Fatalf("create withdrawal: %v", err)
	}

	if _, err := f.svc.Resolve(ctx, req.ID, StatusApproved); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := f.balance(t, "u1"); got != 0 {
		t.Fatalf("approval keeps the debit, got %d", got)
	}
}

func TestResolveTwiceFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "u1", 1000, true)

	req, err := f.svc.CreateWithdrawal(ctx, "u1", 500, "bkash", "01700000000")
	if err != nil {
		t.Fatalf("create withdrawal: %v", err)
	}

	if _, err := f.svc.Resolve(ctx, req.ID, StatusRejected); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := f.svc.Resolve(ctx, req.ID, StatusRejected); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected already resolved, got %v", err)
	}
	if got := f.balance(t, "u1"); got != 1000 {
		t.Fatalf("hold must be released exactly once, got %d", got)
	}
}

func TestConcurrentResolveSettlesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "u1", 1000, true)

	req, err := f.svc.CreateWithdrawal(ctx, "u1", 500, "bkash", "01700000000")
	if err != nil {
		t.Fatalf("create withdrawal: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Resolve(ctx, req.ID, StatusRejected)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrAlreadyResolved) {
			t.Fatalf("unexpected resolve error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one successful resolution, got %d", succeeded)
	}
	if got := f.balance(t, "u1"); got != 1000 {
		t.Fatalf("hold released more than once, balance %d", got)
	}
}

func TestDepositApprovedCreditsConvertedPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "u1", 0, false)

	req, err := f.svc.CreateDeposit(ctx, "u1", 100, "nagad", "01800000000", "TX123")
	if err != nil {
		t.Fatalf("create deposit: %v", err)
	}
	if got := f.balance(t, "u1"); got != 0 {
		t.Fatalf("no funds should move before approval, got %d", got)
	}

	if _, err := f.svc.Resolve(ctx, req.ID, StatusApproved); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// 100 currency units at rate 0.5 is 200 points.
	if got := f.balance(t, "u1"); got != 200 {
		t.Fatalf("expected 200 points credited, got %d", got)
	}
}

func TestDepositRejectedCreditsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "u1", 0, false)

	req, err := f.svc.CreateDeposit(ctx, "u1", 100, "nagad", "01800000000", "TX123")
	if err != nil {
		t.Fatalf("create deposit: %v", err)
	}
	if _, err := f.svc.Resolve(ctx, req.ID, StatusRejected); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := f.balance(t, "u1"); got != 0 {
		t.Fatalf("rejected deposit must not credit, got %d", got)
	}
}

func TestDepositUsesRateSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "u1", 0, false)

	req, err := f.svc.CreateDeposit(ctx, "u1", 100, "nagad", "01800000000", "TX123")
	if err != nil {
		t.Fatalf("create deposit: %v", err)
	}

	// Change the rate after creation; settlement must use the snapshot.
	cfg, _ := f.settings.Load(ctx)
	cfg.ConversionRate = 1.0
	if err := f.settings.Save(ctx, cfg); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	if _, err := f.svc.Resolve(ctx, req.ID, StatusApproved); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := f.balance(t, "u1"); got != 200 {
		t.Fatalf("expected credit at the snapshotted rate, got %d", got)
	}
}

func TestVerificationApprovalBonusAndCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "referrer", 0, true)
	f.seed(t, "newbie", 0, false)

	if _, err := f.accounts.Update(ctx, "newbie", func(a *account.Account) error {
		a.ReferredBy = "CODEreferrer"
		return nil
	}); err != nil {
		t.Fatalf("link referrer: %v", err)
	}

	req, err := f.svc.SubmitVerification(ctx, "newbie", "01900000000", "TX999")
	if err != nil {
		t.Fatalf("submit verification: %v", err)
	}

	a, _ := f.accounts.Get(ctx, "newbie")
	if a.VerificationStatus != account.VerificationPending {
		t.Fatalf("expected pending verification, got %s", a.VerificationStatus)
	}

	if _, err := f.svc.Resolve(ctx, req.ID, StatusApproved); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	a, _ = f.accounts.Get(ctx, "newbie")
	if a.VerificationStatus != account.VerificationApproved {
		t.Fatalf("expected approved, got %s", a.VerificationStatus)
	}
	if a.Balance != 20 {
		t.Fatalf("expected user bonus 20, got %d", a.Balance)
	}

	ref, _ := f.accounts.Get(ctx, "referrer")
	if ref.Balance != 100 {
		t.Fatalf("expected referrer bonus 100, got %d", ref.Balance)
	}
	if ref.ReferralCount != 1 {
		t.Fatalf("expected referral count 1, got %d", ref.ReferralCount)
	}
}

func TestVerificationRejectionAllowsResubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "u1", 0, false)

	req, err := f.svc.SubmitVerification(ctx, "u1", "01900000000", "TX1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.svc.SubmitVerification(ctx, "u1", "01900000000", "TX2"); err == nil {
		t.Fatalf("second submission while pending should fail")
	}

	if _, err := f.svc.Resolve(ctx, req.ID, StatusRejected); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	a, _ := f.accounts.Get(ctx, "u1")
	if a.VerificationStatus != account.VerificationRejected {
		t.Fatalf("expected rejected, got %s", a.VerificationStatus)
	}
	if a.Balance != 0 {
		t.Fatalf("rejection must not pay the bonus, got %d", a.Balance)
	}

	if _, err := f.svc.SubmitVerification(ctx, "u1", "01900000000", "TX3"); err != nil {
		t.Fatalf("resubmission after rejection: %v", err)
	}
}

func TestVerificationAlreadyApproved(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "u1", 0, true)

	if _, err := f.svc.SubmitVerification(context.Background(), "u1", "01900000000", "TX1"); err == nil {
		t.Fatalf("verified account must not resubmit")
	}
}

func TestResolveRetryCompletesReferralCascade(t *testing.T) {
	f, faults := newFaultyFixture(t)
	ctx := context.Background()
	f.seed(t, "referrer", 0, true)
	f.seed(t, "newbie", 0, false)

	if _, err := f.accounts.Update(ctx, "newbie", func(a *account.Account) error {
		a.ReferredBy = "CODEreferrer"
		return nil
	}); err != nil {
		t.Fatalf("link referrer: %v", err)
	}

	req, err := f.svc.SubmitVerification(ctx, "newbie", "01900000000", "TX999")
	if err != nil {
		t.Fatalf("submit verification: %v", err)
	}

	// The referrer's credit fails once, after the decision committed.
	faults.arm("referrer", 1)
	if _, err := f.svc.Resolve(ctx, req.ID, StatusApproved); !errors.Is(err, account.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable, got %v", err)
	}
	if got := f.balance(t, "referrer"); got != 0 {
		t.Fatalf("failed cascade must not credit, got %d", got)
	}

	resolved, err := f.svc.Resolve(ctx, req.ID, StatusApproved)
	if err != nil {
		t.Fatalf("retry after settlement failure: %v", err)
	}
	if resolved.SettledAt == nil {
		t.Fatalf("retry must stamp the settlement")
	}

	ref, _ := f.accounts.Get(ctx, "referrer")
	if ref.Balance != 100 {
		t.Fatalf("expected referrer bonus 100 after retry, got %d", ref.Balance)
	}
	if ref.ReferralCount != 1 {
		t.Fatalf("expected referral count 1, got %d", ref.ReferralCount)
	}

	// A third call hits the settled request and stops.
	if _, err := f.svc.Resolve(ctx, req.ID, StatusApproved); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected already resolved, got %v", err)
	}
	if got := f.balance(t, "referrer"); got != 100 {
		t.Fatalf("referrer bonus must be paid once, got %d", got)
	}
}

func TestResolveRetryReleasesWithdrawalHold(t *testing.T) {
	f, faults := newFaultyFixture(t)
	ctx := context.Background()
	f.seed(t, "u1", 1000, true)

	req, err := f.svc.CreateWithdrawal(ctx, "u1", 500, "bkash", "01700000000")
	if err != nil {
		t.Fatalf("create withdrawal: %v", err)
	}

	faults.arm("u1", 1)
	if _, err := f.svc.Resolve(ctx, req.ID, StatusRejected); !errors.Is(err, account.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable, got %v", err)
	}

	// The opposite decision cannot hijack the pending settlement.
	if _, err := f.svc.Resolve(ctx, req.ID, StatusApproved); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected already resolved for conflicting decision, got %v", err)
	}
	if got := f.balance(t, "u1"); got != 0 {
		t.Fatalf("hold must stay until the retry lands, got %d", got)
	}

	resolved, err := f.svc.Resolve(ctx, req.ID, StatusRejected)
	if err != nil {
		t.Fatalf("retry after settlement failure: %v", err)
	}
	if resolved.SettledAt == nil {
		t.Fatalf("retry must stamp the settlement")
	}
	if got := f.balance(t, "u1"); got != 1000 {
		t.Fatalf("retry should release the hold, got %d", got)
	}

	if _, err := f.svc.Resolve(ctx, req.ID, StatusRejected); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected already resolved, got %v", err)
	}
	if got := f.balance(t, "u1"); got != 1000 {
		t.Fatalf("hold must be released exactly once, got %d", got)
	}
}

func TestRestrictedAccountCannotCreateRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "u1", 10_000, true)

	if _, err := f.accounts.Update(ctx, "u1", func(a *account.Account) error {
		a.Status = account.StatusBlocked
		a.RestrictionReason = "fraud review"
		return nil
	}); err != nil {
		t.Fatalf("restrict: %v", err)
	}

	if _, err := f.svc.CreateWithdrawal(ctx, "u1", 500, "bkash", "01700000000"); !errors.Is(err, account.ErrRestricted) {
		t.Fatalf("expected restricted, got %v", err)
	}
	if _, err := f.svc.CreateDeposit(ctx, "u1", 100, "nagad", "01800000000", "TX1"); !errors.Is(err, account.ErrRestricted) {
		t.Fatalf("expected restricted, got %v", err)
	}
}
