package account

import "time"

// Status is the restriction state of an account.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusBlocked Status = "BLOCKED"
	StatusBanned  Status = "BANNED"
)

// VerificationStatus tracks identity verification progress. It only
// advances PENDING -> APPROVED/REJECTED and never regresses, except that
// a rejected account may resubmit.
type VerificationStatus string

const (
	VerificationNotApplied VerificationStatus = "NOT_APPLIED"
	VerificationPending    VerificationStatus = "PENDING"
	VerificationApproved   VerificationStatus = "APPROVED"
	VerificationRejected   VerificationStatus = "REJECTED"
)

// Account is the per-user ledger record: points balance, verification and
// restriction state, referral linkage and the deletion schedule.
type Account struct {
	ID                  string
	Name                string
	Email               string
	Phone               string
	Status              Status
	RestrictionReason   string
	RestrictedUntil     *time.Time
	DeletionScheduledAt *time.Time
	VerificationStatus  VerificationStatus
	AdFree              bool
	Balance             int64
	ReferralCode        string
	ReferredBy          string
	ReferralCount       int64
	TotalEarned         int64
	CreatedAt           time.Time

	// Version is the optimistic concurrency token managed by the store.
	Version int64
}

// Verified reports whether identity verification has been approved.
func (a *Account) Verified() bool {
	return a.VerificationStatus == VerificationApproved
}

// RestrictedAt reports whether the account is blocked or banned at the
// given instant. An expired timed restriction no longer restricts even if
// the sweep has not reverted the stored status yet.
func (a *Account) RestrictedAt(now time.Time) bool {
	if a.Status == StatusActive {
		return false
	}
	if a.RestrictedUntil != nil && !now.Before(*a.RestrictedUntil) {
		return false
	}
	return true
}

// Frozen reports whether the balance is locked by a scheduled deletion.
func (a *Account) Frozen() bool {
	return a.DeletionScheduledAt != nil
}
