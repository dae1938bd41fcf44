package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepo creates the PostgreSQL-backed account repository.
func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const accountCols = `id, username, email, password_hash, role, is_verified,
	verification_code, verification_expires_at,
	password_reset_code, password_reset_expires_at,
	pin_hash, pin_reset_code, pin_reset_expires_at,
	created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(
		&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Role, &a.IsVerified,
		&a.VerificationCode, &a.VerificationExpiresAt,
		&a.PasswordResetCode, &a.PasswordResetExpiresAt,
		&a.PinHash, &a.PinResetCode, &a.PinResetExpiresAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts the account inside one transaction that also derives the
// role from the current account count. The table lock serializes concurrent
// registrations so the first-two-admins rule holds under races.
func (r *repoPG) Create(ctx context.Context, a *Account) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin account create: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `LOCK TABLE account IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("lock account table: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM account`).Scan(&count); err != nil {
		return fmt.Errorf("count accounts: %w", err)
	}

	a.ID = uuid.New()
	a.Role = RoleGuest
	if count < bootstrapAdminSeats {
		a.Role = RoleAdmin
	}
	a.IsVerified = false

	err = tx.QueryRow(ctx, `
		INSERT INTO account (id, username, email, password_hash, role, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		a.ID, a.Username, a.Email, a.PasswordHash, a.Role, a.IsVerified,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountCols+` FROM account WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountCols+` FROM account WHERE email = $1`, email))
}

func (r *repoPG) GetByUsername(ctx context.Context, username string) (*Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountCols+` FROM account WHERE username = $1`, username))
}

func (r *repoPG) FindEarliestAdmin(ctx context.Context) (*Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountCols+` FROM account
		 WHERE role = 'admin'
		 ORDER BY created_at ASC, id ASC
		 LIMIT 1`))
}

func (r *repoPG) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM account`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return count, nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Account, int, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+accountCols+` FROM account ORDER BY created_at ASC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, total, nil
}

// UpdateRole changes the role. A demotion away from admin also drops the PIN
// hash and any pending PIN-reset code so non-admin accounts never carry a PIN.
func (r *repoPG) UpdateRole(ctx context.Context, id uuid.UUID, role Role) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE account SET
			role = $2,
			pin_hash = CASE WHEN $2 = 'admin' THEN pin_hash ELSE NULL END,
			pin_reset_code = CASE WHEN $2 = 'admin' THEN pin_reset_code ELSE NULL END,
			pin_reset_expires_at = CASE WHEN $2 = 'admin' THEN pin_reset_expires_at ELSE NULL END,
			updated_at = NOW()
		WHERE id = $1`,
		id, role)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) SetPinHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE account SET pin_hash = $2, updated_at = NOW() WHERE id = $1`,
		id, hash)
	if err != nil {
		return fmt.Errorf("set pin hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM account WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// codeColumns maps a flow to its code/expiry column pair. The pair is always
// written and cleared together.
func codeColumns(flow CodeFlow) (codeCol, expiryCol string, err error) {
	switch flow {
	case FlowEmailVerification:
		return "verification_code", "verification_expires_at", nil
	case FlowPasswordReset:
		return "password_reset_code", "password_reset_expires_at", nil
	case FlowPinReset:
		return "pin_reset_code", "pin_reset_expires_at", nil
	}
	return "", "", fmt.Errorf("unknown code flow %q", flow)
}

func (r *repoPG) StoreCode(ctx context.Context, id uuid.UUID, flow CodeFlow, code string, expiresAt time.Time) error {
	codeCol, expiryCol, err := codeColumns(flow)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE account SET %s = $2, %s = $3, updated_at = NOW() WHERE id = $1`,
		codeCol, expiryCol),
		id, code, expiresAt)
	if err != nil {
		return fmt.Errorf("store %s code: %w", flow, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// The Consume* statements bundle the match check, the expiry check, the
// clearing of the code pair, and the flow's success mutation into a single
// UPDATE, so at most one concurrent validator can spend a given code.

func (r *repoPG) ConsumeVerificationCode(ctx context.Context, id uuid.UUID, code string, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE account SET
			is_verified = TRUE,
			verification_code = NULL,
			verification_expires_at = NULL,
			updated_at = NOW()
		WHERE id = $1 AND verification_code = $2 AND verification_expires_at > $3`,
		id, code, now)
	if err != nil {
		return false, fmt.Errorf("consume verification code: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) ConsumePasswordResetCode(ctx context.Context, id uuid.UUID, code, newPasswordHash string, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE account SET
			password_hash = $4,
			password_reset_code = NULL,
			password_reset_expires_at = NULL,
			updated_at = NOW()
		WHERE id = $1 AND password_reset_code = $2 AND password_reset_expires_at > $3`,
		id, code, now, newPasswordHash)
	if err != nil {
		return false, fmt.Errorf("consume password reset code: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) ConsumePinResetCode(ctx context.Context, id uuid.UUID, code, newPinHash string, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE account SET
			pin_hash = $4,
			pin_reset_code = NULL,
			pin_reset_expires_at = NULL,
			updated_at = NOW()
		WHERE id = $1 AND pin_reset_code = $2 AND pin_reset_expires_at > $3`,
		id, code, now, newPinHash)
	if err != nil {
		return false, fmt.Errorf("consume pin reset code: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
