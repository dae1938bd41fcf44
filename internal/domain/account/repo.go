package account

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for accounts. Implementations must
// make Create atomic with the role derivation (never count-then-insert) and
// the Consume* operations atomic read-check-clear so a pending code can be
// spent at most once.
type Repository interface {
	// Create inserts the account, deriving its role from the number of
	// accounts that already exist. Returns ErrDuplicate when the username
	// or email is taken.
	Create(ctx context.Context, a *Account) error

	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// FindEarliestAdmin returns the admin account with the smallest
	// creation timestamp, or ErrNotFound when no admin exists. It backs
	// the global-admin-PIN fallback and must stay an explicit query.
	FindEarliestAdmin(ctx context.Context) (*Account, error)

	Count(ctx context.Context) (int, error)
	List(ctx context.Context, limit, offset int) ([]*Account, int, error)

	// UpdateRole changes the account's role. Moving an account off admin
	// clears its PIN hash and any pending PIN-reset code.
	UpdateRole(ctx context.Context, id uuid.UUID, role Role) error

	SetPinHash(ctx context.Context, id uuid.UUID, hash string) error
	Delete(ctx context.Context, id uuid.UUID) error

	// StoreCode writes the code and its expiry for the given flow,
	// overwriting any pending code for that flow.
	StoreCode(ctx context.Context, id uuid.UUID, flow CodeFlow, code string, expiresAt time.Time) error

	// ConsumeVerificationCode atomically checks the pending verification
	// code against the submission and the expiry against now, and on match
	// clears the pair and marks the account verified. Returns false when
	// the code is wrong, expired, or already consumed.
	ConsumeVerificationCode(ctx context.Context, id uuid.UUID, code string, now time.Time) (bool, error)

	// ConsumePasswordResetCode is the same atomic check-and-clear for the
	// password-reset flow; on match it also installs the new password hash.
	ConsumePasswordResetCode(ctx context.Context, id uuid.UUID, code, newPasswordHash string, now time.Time) (bool, error)

	// ConsumePinResetCode is the same atomic check-and-clear for the
	// PIN-reset flow; on match it also installs the new PIN hash.
	ConsumePinResetCode(ctx context.Context, id uuid.UUID, code, newPinHash string, now time.Time) (bool, error)
}
