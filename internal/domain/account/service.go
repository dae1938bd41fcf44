package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Notifier delivers a one-time code to an address. Delivery mechanics are
// not this package's concern.
type Notifier interface {
	SendCode(ctx context.Context, recipient, code, purpose string) error
}

// TokenIssuer signs a bearer token carrying a snapshot of the account's
// role and verification state.
type TokenIssuer interface {
	Issue(accountID uuid.UUID, role string, verified bool) (string, error)
}

const minPasswordLength = 8

type Service struct {
	accounts Repository
	tokens   TokenIssuer
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(accounts Repository, tokens TokenIssuer, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		accounts: accounts,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// NormalizeEmail lowercases and trims an email address. Emails are stored
// and looked up in this form only.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified account, issues a verification code, and
// returns the account with a freshly signed token. The first two accounts
// ever created become admins.
func (s *Service) Register(ctx context.Context, username, email, password string) (*Account, string, error) {
	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)

	if username == "" || email == "" {
		return nil, "", fmt.Errorf("%w: username and email are required", ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return nil, "", fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	a := &Account{Username: username, Email: email, PasswordHash: hash}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, "", err
	}

	// Verification delivery failure does not undo the registration; the
	// caller can resend.
	if err := s.issueAndSendCode(ctx, a, FlowEmailVerification); err != nil {
		s.logger.Warn().Err(err).Str("account_id", a.ID.String()).
			Msg("verification code delivery failed at registration")
	}

	token, err := s.tokens.Issue(a.ID, string(a.Role), a.IsVerified)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return a, token, nil
}

// Login authenticates by email and password and returns a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*Account, string, error) {
	a, err := s.accounts.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if !CheckPassword(password, a.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(a.ID, string(a.Role), a.IsVerified)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return a, token, nil
}

// VerifyEmail consumes a pending verification code. On success the account
// is verified exactly once and a token carrying the new snapshot is issued.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (*Account, string, error) {
	a, err := s.accounts.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, "", err
	}

	ok, err := s.accounts.ConsumeVerificationCode(ctx, a.ID, code, s.now())
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrInvalidOrExpiredCode
	}

	a.IsVerified = true
	a.VerificationCode = nil
	a.VerificationExpiresAt = nil

	token, err := s.tokens.Issue(a.ID, string(a.Role), a.IsVerified)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return a, token, nil
}

// ResendVerification issues a fresh verification code, overwriting any
// pending one. Fails when the account is already verified.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	a, err := s.accounts.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if a.IsVerified {
		return fmt.Errorf("%w: account already verified", ErrInvalidInput)
	}
	return s.issueAndSendCode(ctx, a, FlowEmailVerification)
}

// RequestPasswordReset issues a password-reset code when the email belongs
// to an account. The caller always sees the same outcome whether or not the
// account exists; the real cause is only logged.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	a, err := s.accounts.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		s.logger.Info().Err(err).Msg("password reset requested for unknown email")
		return nil
	}
	if err := s.issueAndSendCode(ctx, a, FlowPasswordReset); err != nil {
		s.logger.Warn().Err(err).Str("account_id", a.ID.String()).
			Msg("password reset code issuance failed")
	}
	return nil
}

// ResetPassword consumes a pending password-reset code and installs the new
// password in the same atomic step, then issues a fresh token.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) (*Account, string, error) {
	if len(newPassword) < minPasswordLength {
		return nil, "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	a, err := s.accounts.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, "", ErrInvalidOrExpiredCode
	}
	if err != nil {
		return nil, "", err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	ok, err := s.accounts.ConsumePasswordResetCode(ctx, a.ID, code, hash, s.now())
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrInvalidOrExpiredCode
	}

	a.PasswordHash = hash
	a.PasswordResetCode = nil
	a.PasswordResetExpiresAt = nil

	token, err := s.tokens.Issue(a.ID, string(a.Role), a.IsVerified)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return a, token, nil
}

// SetPin configures the actor's destructive-action PIN. Only admins may hold
// a PIN, it must be exactly four digits, and once set it is only replaced
// through the PIN-reset flow.
func (s *Service) SetPin(ctx context.Context, actorID uuid.UUID, pin string) error {
	a, err := s.accounts.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if a.Role != RoleAdmin {
		return ErrForbidden
	}
	if !ValidPin(pin) {
		return fmt.Errorf("%w: pin must be exactly 4 digits", ErrInvalidInput)
	}
	if a.HasPin() {
		return ErrPinAlreadySet
	}

	hash, err := HashPin(pin)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	return s.accounts.SetPinHash(ctx, a.ID, hash)
}

// RequestPinReset issues a PIN-reset code when the email belongs to an admin
// account. Like RequestPasswordReset, the caller-visible outcome never
// reveals whether the subject exists or holds the admin role.
func (s *Service) RequestPinReset(ctx context.Context, email string) error {
	a, err := s.accounts.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		s.logger.Info().Err(err).Msg("pin reset requested for unknown email")
		return nil
	}
	if a.Role != RoleAdmin {
		s.logger.Info().Str("account_id", a.ID.String()).
			Msg("pin reset requested for non-admin account")
		return nil
	}
	if err := s.issueAndSendCode(ctx, a, FlowPinReset); err != nil {
		s.logger.Warn().Err(err).Str("account_id", a.ID.String()).
			Msg("pin reset code issuance failed")
	}
	return nil
}

// ResetPin consumes a pending PIN-reset code and installs the new PIN hash
// in the same atomic step.
func (s *Service) ResetPin(ctx context.Context, email, code, newPin string) error {
	if !ValidPin(newPin) {
		return fmt.Errorf("%w: pin must be exactly 4 digits", ErrInvalidInput)
	}

	a, err := s.accounts.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidOrExpiredCode
	}
	if err != nil {
		return err
	}
	if a.Role != RoleAdmin {
		return ErrInvalidOrExpiredCode
	}

	hash, err := HashPin(newPin)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}

	ok, err := s.accounts.ConsumePinResetCode(ctx, a.ID, code, hash, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidOrExpiredCode
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.accounts.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Account, int, error) {
	return s.accounts.List(ctx, limit, offset)
}

// UpdateRole edits an account's role. This is the only way an account
// becomes a doctor; demotions away from admin drop the PIN.
func (s *Service) UpdateRole(ctx context.Context, id uuid.UUID, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	return s.accounts.UpdateRole(ctx, id, role)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.accounts.Delete(ctx, id)
}

// FindEarliestAdmin exposes the fallback-authority query.
func (s *Service) FindEarliestAdmin(ctx context.Context) (*Account, error) {
	return s.accounts.FindEarliestAdmin(ctx)
}

// issueAndSendCode generates a code, stores it with the flow's expiry
// window (overwriting any pending code for that flow), and hands it to the
// notification channel.
func (s *Service) issueAndSendCode(ctx context.Context, a *Account, flow CodeFlow) error {
	code, err := NewCode()
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(flow.Window())
	if err := s.accounts.StoreCode(ctx, a.ID, flow, code, expiresAt); err != nil {
		return err
	}
	if err := s.notifier.SendCode(ctx, a.Email, code, string(flow)); err != nil {
		return fmt.Errorf("send %s code: %w", flow, err)
	}
	return nil
}
