package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const authContextKey contextKey = "auth_context"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotVerified  = errors.New("email not verified")
)

// AuthContext is the immutable per-request identity derived from a validated
// bearer token. It is built once by Authenticate and threaded explicitly
// through every later check; nothing re-reads the token or the store.
type AuthContext struct {
	AccountID uuid.UUID
	Role      string
	Verified  bool
}

// CheckVerified fails unless the token snapshot says the email is verified.
func (a AuthContext) CheckVerified() error {
	if !a.Verified {
		return ErrNotVerified
	}
	return nil
}

// CheckRole fails unless the snapshot role is one of the allowed roles.
func (a AuthContext) CheckRole(allowed ...string) error {
	for _, role := range allowed {
		if a.Role == role {
			return nil
		}
	}
	return ErrForbidden
}

// WithAuthContext returns a context carrying the AuthContext.
func WithAuthContext(ctx context.Context, a AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, a)
}

// FromContext extracts the AuthContext set by Authenticate.
func FromContext(ctx context.Context) (AuthContext, bool) {
	a, ok := ctx.Value(authContextKey).(AuthContext)
	return a, ok
}

// AccountSource answers whether an account still exists. A token whose
// subject has been deleted is rejected even if the signature is valid.
type AccountSource interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Authenticate validates the Authorization header and installs an
// AuthContext on the request context. Missing, malformed, expired, or
// orphaned tokens all fail with 401.
func Authenticate(tokens *TokenIssuer, accounts AccountSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			claims, err := tokens.Parse(header)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			id, err := claims.AccountID()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := c.Request().Context()
			exists, err := accounts.Exists(ctx, id)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "account lookup failed")
			}
			if !exists {
				return echo.NewHTTPError(http.StatusUnauthorized, "account no longer exists")
			}

			ac := AuthContext{AccountID: id, Role: claims.Role, Verified: claims.Verified}
			c.SetRequest(c.Request().WithContext(WithAuthContext(ctx, ac)))
			return next(c)
		}
	}
}

// RequireVerified rejects requests whose token snapshot is unverified.
func RequireVerified() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac, ok := FromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing auth context")
			}
			if err := ac.CheckVerified(); err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "email verification required")
			}
			return next(c)
		}
	}
}

// RequireRole rejects requests whose snapshot role is not in the allowed set.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac, ok := FromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing auth context")
			}
			if err := ac.CheckRole(roles...); err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}
