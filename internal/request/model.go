package request

import (
	"errors"
	"time"
)

// Kind discriminates the request union.
type Kind string

const (
	KindWithdrawal   Kind = "WITHDRAWAL"
	KindDeposit      Kind = "DEPOSIT"
	KindVerification Kind = "VERIFICATION"
)

// Status is the lifecycle state. APPROVED and REJECTED are terminal:
// once stored, no further transition is permitted.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

var (
	// ErrNotFound indicates the request does not exist.
	ErrNotFound = errors.New("request not found")

	// ErrAlreadyResolved indicates the request already reached a terminal
	// state; the resolution attempt had no side effects.
	ErrAlreadyResolved = errors.New("request already resolved")
)

// Withdrawal carries the payout parameters snapshotted at creation time.
// The hold in points was already debited when the request was persisted.
type Withdrawal struct {
	Amount         float64 `json:"amount"`
	FeePercent     float64 `json:"fee_percent"`
	FeeAmount      float64 `json:"fee_amount"`
	PayoutAmount   float64 `json:"payout_amount"`
	ConversionRate float64 `json:"conversion_rate"`
	PointsHeld     int64   `json:"points_held"`
	Method         string  `json:"method"`
	AccountNumber  string  `json:"account_number"`
}

// Deposit carries the top-up parameters and the rate snapshot used when
// the deposit is approved.
type Deposit struct {
	Amount         float64 `json:"amount"`
	ConversionRate float64 `json:"conversion_rate"`
	Method         string  `json:"method"`
	SenderNumber   string  `json:"sender_number"`
	TransactionID  string  `json:"transaction_id"`
}

// Verification carries the submitted payment reference plus the bonus
// amounts snapshotted at submission.
type Verification struct {
	PaymentNumber string `json:"payment_number"`
	TransactionID string `json:"transaction_id"`
	UserBonus     int64  `json:"user_bonus"`
	ReferrerBonus int64  `json:"referrer_bonus"`
}

// Request is the tagged union shared by all three kinds. Exactly one of
// the detail pointers matching Kind is non-nil.
//
// SettledAt records that the ledger side of the resolution completed.
// A terminal request with a nil SettledAt is awaiting a settlement
// retry: the decision committed but a credit, release or cascade did
// not, and Resolve may be called again with the same decision to finish
// it.
type Request struct {
	ID         string
	Kind       Kind
	AccountID  string
	Status     Status
	CreatedAt  time.Time
	ResolvedAt *time.Time
	SettledAt  *time.Time

	Withdrawal   *Withdrawal
	Deposit      *Deposit
	Verification *Verification
}
