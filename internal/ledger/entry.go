package ledger

import (
	"context"
	"time"
)

// EntryType records the business reason for a balance mutation.
type EntryType string

const (
	EntryEarn              EntryType = "EARN"
	EntryConvert           EntryType = "CONVERT"
	EntryWithdraw          EntryType = "WITHDRAW"
	EntryReferral          EntryType = "REFERRAL"
	EntryDeposit           EntryType = "DEPOSIT"
	EntryVerificationBonus EntryType = "VERIFICATION_BONUS"
	EntryAdFreePurchase    EntryType = "ADFREE_PURCHASE"
	EntryAdjustment        EntryType = "ADJUSTMENT"
)

// Entry is one line of an account's transaction history. Points carries
// the signed mutation: positive for credits, negative for debits.
type Entry struct {
	ID          string
	AccountID   string
	Type        EntryType
	Points      int64
	Description string
	CreatedAt   time.Time
}

// EntryStore persists the transaction history.
type EntryStore interface {
	Append(ctx context.Context, e Entry) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]Entry, error)
}
