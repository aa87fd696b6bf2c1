package account

import "errors"

var (
	// ErrNotFound indicates the account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrDuplicateAccount indicates the account id or referral code is taken.
	ErrDuplicateAccount = errors.New("account already exists")

	// ErrRestricted indicates the operation is blocked by a block or ban.
	ErrRestricted = errors.New("account restricted")

	// ErrFrozen indicates the balance is locked while deletion is scheduled.
	ErrFrozen = errors.New("account frozen pending deletion")

	// ErrNotVerified indicates the operation requires an approved verification.
	ErrNotVerified = errors.New("account not verified")

	// ErrStorageUnavailable wraps transient store failures. Callers may
	// retry with backoff; it is never swallowed.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
