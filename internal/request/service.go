package request

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/earnmaster/engine/internal/account"
	"github.com/earnmaster/engine/internal/ledger"
	"github.com/earnmaster/engine/internal/notification"
	"github.com/earnmaster/engine/internal/referral"
	"github.com/earnmaster/engine/internal/settings"
)

// Service drives the pending/approved/rejected lifecycle for withdrawal,
// deposit and verification requests. Rate and fee values are snapshotted
// into the request at creation; resolution never re-reads settings.
type Service struct {
	store     Store
	accounts  account.Store
	ledger    *ledger.Service
	settings  settings.Source
	referrals *referral.Service
	notifier  notification.Notifier
	logger    *slog.Logger

	// locks serializes resolution per request id so a settlement retry
	// cannot race a still-running first settlement in this process.
	locks sync.Map
}

// NewService constructs the request lifecycle service.
func NewService(store Store, accounts account.Store, led *ledger.Service, src settings.Source,
	referrals *referral.Service, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		accounts:  accounts,
		ledger:    led,
		settings:  src,
		referrals: referrals,
		notifier:  notifier,
		logger:    logger,
	}
}

func (s *Service) eligible(ctx context.Context, accountID string) (account.Account, error) {
	acct, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return account.Account{}, err
	}
	if acct.RestrictedAt(time.Now().UTC()) {
		return account.Account{}, account.ErrRestricted
	}
	if acct.Frozen() {
		return account.Account{}, account.ErrFrozen
	}
	return acct, nil
}

// CreateWithdrawal places a hold for the converted points and persists a
// PENDING withdrawal. The hold makes a second concurrent request unable
// to double-spend the same balance.
func (s *Service) CreateWithdrawal(ctx context.Context, accountID string, amount float64, method, accountNumber string) (Request, error) {
	acct, err := s.eligible(ctx, accountID)
	if err != nil {
		return Request{}, err
	}
	if !acct.Verified() {
		return Request{}, account.ErrNotVerified
	}
	if strings.TrimSpace(method) == "" || strings.TrimSpace(accountNumber) == "" {
		return Request{}, fmt.Errorf("payout method and account number are required")
	}

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return Request{}, err
	}
	if amount < cfg.MinWithdrawal {
		return Request{}, fmt.Errorf("minimum withdrawal is %.2f", cfg.MinWithdrawal)
	}

	points := ledger.ConvertInverse(amount, cfg.ConversionRate)
	if points <= 0 {
		return Request{}, fmt.Errorf("amount too small to convert")
	}
	fee, payout := ledger.WithdrawalFee(amount, cfg.WithdrawalFeePercent)

	id := uuid.NewString()
	if _, err := s.ledger.Debit(ctx, accountID, points, ledger.EntryWithdraw,
		fmt.Sprintf("hold for withdrawal %s", id)); err != nil {
		return Request{}, err
	}

	req := Request{
		ID:        id,
		Kind:      KindWithdrawal,
		AccountID: accountID,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
		Withdrawal: &Withdrawal{
			Amount:         amount,
			FeePercent:     cfg.WithdrawalFeePercent,
			FeeAmount:      fee,
			PayoutAmount:   payout,
			ConversionRate: cfg.ConversionRate,
			PointsHeld:     points,
			Method:         method,
			AccountNumber:  accountNumber,
		},
	}
	if err := s.store.Create(ctx, req); err != nil {
		// The hold committed but the request did not; release it.
		if _, relErr := s.ledger.Credit(ctx, accountID, points, ledger.EntryWithdraw,
			fmt.Sprintf("hold released, withdrawal %s not persisted", id)); relErr != nil {
			s.logger.Error("withdrawal hold release failed",
				slog.String("account_id", accountID),
				slog.String("request_id", id),
				slog.Any("error", relErr))
		}
		return Request{}, err
	}
	return req, nil
}

// CreateDeposit persists a PENDING deposit. No funds move until approval.
func (s *Service) CreateDeposit(ctx context.Context, accountID string, amount float64, method, senderNumber, transactionID string) (Request, error) {
	if _, err := s.eligible(ctx, accountID); err != nil {
		return Request{}, err
	}
	if amount <= 0 {
		return Request{}, fmt.Errorf("deposit amount must be positive")
	}
	if strings.TrimSpace(method) == "" || strings.TrimSpace(senderNumber) == "" || strings.TrimSpace(transactionID) == "" {
		return Request{}, fmt.Errorf("method, sender number and transaction id are required")
	}

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return Request{}, err
	}

	req := Request{
		ID:        uuid.NewString(),
		Kind:      KindDeposit,
		AccountID: accountID,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
		Deposit: &Deposit{
			Amount:         amount,
			ConversionRate: cfg.ConversionRate,
			Method:         method,
			SenderNumber:   senderNumber,
			TransactionID:  transactionID,
		},
	}
	if err := s.store.Create(ctx, req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// SubmitVerification moves the account to PENDING verification and
// persists the request. Resubmission is allowed after a rejection.
func (s *Service) SubmitVerification(ctx context.Context, accountID, paymentNumber, transactionID string) (Request, error) {
	if _, err := s.eligible(ctx, accountID); err != nil {
		return Request{}, err
	}
	if strings.TrimSpace(paymentNumber) == "" || strings.TrimSpace(transactionID) == "" {
		return Request{}, fmt.Errorf("payment number and transaction id are required")
	}

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return Request{}, err
	}

	var previous account.VerificationStatus
	if _, err := s.accounts.Update(ctx, accountID, func(a *account.Account) error {
		switch a.VerificationStatus {
		case account.VerificationPending:
			return fmt.Errorf("verification already pending")
		case account.VerificationApproved:
			return fmt.Errorf("account already verified")
		}
		previous = a.VerificationStatus
		a.VerificationStatus = account.VerificationPending
		return nil
	}); err != nil {
		return Request{}, err
	}

	req := Request{
		ID:        uuid.NewString(),
		Kind:      KindVerification,
		AccountID: accountID,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
		Verification: &Verification{
			PaymentNumber: paymentNumber,
			TransactionID: transactionID,
			UserBonus:     cfg.ReferralRewardUser,
			ReferrerBonus: cfg.ReferralRewardReferrer,
		},
	}
	if err := s.store.Create(ctx, req); err != nil {
		if _, revErr := s.accounts.Update(ctx, accountID, func(a *account.Account) error {
			if a.VerificationStatus == account.VerificationPending {
				a.VerificationStatus = previous
			}
			return nil
		}); revErr != nil {
			s.logger.Error("verification status revert failed",
				slog.String("account_id", accountID), slog.Any("error", revErr))
		}
		return Request{}, err
	}
	return req, nil
}

// Resolve applies an administrative decision. The store transition is an
// atomic PENDING guard, so a concurrent second resolution fails with
// ErrAlreadyResolved before any balance effect.
//
// The decision commits before the ledger side. When settlement fails
// (storage outage, frozen account) the request stays terminal with a
// nil SettledAt, and calling Resolve again with the same decision
// re-runs the settlement instead of failing, so a credit, hold release
// or referral cascade is never stranded. A repeat call after a
// completed settlement still fails with ErrAlreadyResolved.
func (s *Service) Resolve(ctx context.Context, id string, decision Status) (Request, error) {
	if decision != StatusApproved && decision != StatusRejected {
		return Request{}, fmt.Errorf("decision must be %s or %s", StatusApproved, StatusRejected)
	}

	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	resolved, err := s.store.Resolve(ctx, id, decision)
	if err != nil {
		if !errors.Is(err, ErrAlreadyResolved) {
			return Request{}, err
		}
		prior, getErr := s.store.Get(ctx, id)
		if getErr != nil {
			return Request{}, getErr
		}
		if prior.SettledAt != nil || prior.Status != decision {
			return Request{}, ErrAlreadyResolved
		}
		resolved = prior
	}

	if err := s.settle(ctx, resolved); err != nil {
		// The decision is committed but the ledger side is not; the
		// caller retries Resolve with the same decision to finish it.
		return resolved, err
	}

	marked, err := s.store.MarkSettled(ctx, resolved.ID)
	if err != nil {
		// The ledger effects are in; a lost marker only means the next
		// retry re-runs an already-applied settlement.
		s.logger.Warn("settlement marker failed",
			slog.String("request_id", resolved.ID), slog.Any("error", err))
	} else {
		resolved = marked
		s.locks.Delete(id)
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindRequestResolved,
			Destination: resolved.AccountID,
			Body:        fmt.Sprintf("%s request %s", strings.ToLower(string(resolved.Kind)), strings.ToLower(string(decision))),
		})
	}
	return resolved, nil
}

func (s *Service) settle(ctx context.Context, r Request) error {
	switch r.Kind {
	case KindWithdrawal:
		if r.Status == StatusRejected {
			// Release the hold taken at creation; approval pays out
			// externally and keeps the debit.
			_, err := s.ledger.Credit(ctx, r.AccountID, r.Withdrawal.PointsHeld, ledger.EntryWithdraw,
				fmt.Sprintf("hold released for rejected withdrawal %s", r.ID))
			return err
		}
		return nil

	case KindDeposit:
		if r.Status == StatusApproved {
			points := ledger.ConvertInverse(r.Deposit.Amount, r.Deposit.ConversionRate)
			_, err := s.ledger.Credit(ctx, r.AccountID, points, ledger.EntryDeposit,
				fmt.Sprintf("deposit %s approved", r.ID))
			return err
		}
		return nil

	case KindVerification:
		if r.Status == StatusRejected {
			_, err := s.accounts.Update(ctx, r.AccountID, func(a *account.Account) error {
				if a.VerificationStatus == account.VerificationPending {
					a.VerificationStatus = account.VerificationRejected
				}
				return nil
			})
			return err
		}

		updated, err := s.accounts.Update(ctx, r.AccountID, func(a *account.Account) error {
			a.VerificationStatus = account.VerificationApproved
			return nil
		})
		if err != nil {
			return err
		}
		if r.Verification.UserBonus > 0 {
			if _, err := s.ledger.Credit(ctx, r.AccountID, r.Verification.UserBonus,
				ledger.EntryVerificationBonus, "verification bonus"); err != nil {
				return err
			}
		}
		return s.referrals.Cascade(ctx, updated, r.Verification.ReferrerBonus)

	default:
		return fmt.Errorf("unknown request kind %q", r.Kind)
	}
}

// Get fetches a request.
func (s *Service) Get(ctx context.Context, id string) (Request, error) {
	return s.store.Get(ctx, id)
}

// ListByAccount returns an account's requests of the given kind.
func (s *Service) ListByAccount(ctx context.Context, accountID string, kind Kind) ([]Request, error) {
	return s.store.ListByAccount(ctx, accountID, kind)
}

// ListPending returns the admin queue for the given kind.
func (s *Service) ListPending(ctx context.Context, kind Kind) ([]Request, error) {
	return s.store.ListPending(ctx, kind)
}
