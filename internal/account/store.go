package account

import "context"

// Store persists accounts. Update is the single mutation primitive: the
// mutate callback runs against the current record and the result commits
// atomically, so balance arithmetic is never a separate read and write.
type Store interface {
	Create(ctx context.Context, a Account) error
	Get(ctx context.Context, id string) (Account, error)
	GetByReferralCode(ctx context.Context, code string) (Account, error)
	// Update applies mutate to the stored account under an atomic
	// read-modify-write. An error returned by mutate aborts the update
	// without side effects and is returned verbatim.
	Update(ctx context.Context, id string, mutate func(*Account) error) (Account, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Account, error)
}
