package request

import "context"

// Store persists requests. Resolve is the only mutation after Create and
// must be an atomic compare-and-swap guarded by the stored status being
// PENDING, so two administrators can never both resolve one request.
type Store interface {
	Create(ctx context.Context, r Request) error
	Get(ctx context.Context, id string) (Request, error)
	// Resolve transitions PENDING -> decision and stamps ResolvedAt.
	// Returns ErrAlreadyResolved when the stored status is terminal and
	// ErrNotFound for unknown ids; neither has side effects.
	Resolve(ctx context.Context, id string, decision Status) (Request, error)
	// MarkSettled stamps SettledAt on a terminal request. Stamping an
	// already-settled request is a no-op; the stored record is returned
	// either way.
	MarkSettled(ctx context.Context, id string) (Request, error)
	ListByAccount(ctx context.Context, accountID string, kind Kind) ([]Request, error)
	ListPending(ctx context.Context, kind Kind) ([]Request, error)
}
