package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPinRequired      = errors.New("pin required")
	ErrPinNotConfigured = errors.New("admin pin not configured")
	ErrInvalidPin       = errors.New("invalid pin")
)

// PinHeader carries the secondary-factor PIN on destructive requests.
const PinHeader = "X-Admin-Pin"

// PinDirectory resolves PIN hashes for the destructive-action policy. A nil
// result means no PIN is configured for that slot.
type PinDirectory interface {
	// PinHash returns the account's own PIN hash.
	PinHash(ctx context.Context, accountID uuid.UUID) (*string, error)
	// EarliestAdminPinHash returns the global admin PIN: the PIN hash of
	// the earliest-created admin account.
	EarliestAdminPinHash(ctx context.Context) (*string, error)
}

// DestructiveGate decides whether an actor may perform an irreversible
// deletion. It is a pure predicate: it never mutates state and must be
// evaluated immediately before the protected deletion.
type DestructiveGate struct {
	pins PinDirectory
}

func NewDestructiveGate(pins PinDirectory) *DestructiveGate {
	return &DestructiveGate{pins: pins}
}

// Authorize checks the supplied PIN against the actor's own PIN for admins,
// or the global admin PIN for everyone else. The non-admin fallback is kept
// even though current routes only reach this gate with admin actors.
func (g *DestructiveGate) Authorize(ctx context.Context, actor AuthContext, suppliedPin string) error {
	if suppliedPin == "" {
		return ErrPinRequired
	}

	var hash *string
	var err error
	if actor.Role == "admin" {
		hash, err = g.pins.PinHash(ctx, actor.AccountID)
	} else {
		hash, err = g.pins.EarliestAdminPinHash(ctx)
	}
	if err != nil {
		return err
	}
	if hash == nil || *hash == "" {
		return ErrPinNotConfigured
	}

	if bcrypt.CompareHashAndPassword([]byte(*hash), []byte(suppliedPin)) != nil {
		return ErrInvalidPin
	}
	return nil
}

// RequirePin gates a route on the destructive-action policy, reading the
// PIN from the X-Admin-Pin header.
func RequirePin(gate *DestructiveGate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac, ok := FromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing auth context")
			}

			err := gate.Authorize(c.Request().Context(), ac, c.Request().Header.Get(PinHeader))
			switch {
			case err == nil:
				return next(c)
			case errors.Is(err, ErrPinRequired):
				return echo.NewHTTPError(http.StatusBadRequest, "pin required")
			case errors.Is(err, ErrPinNotConfigured):
				return echo.NewHTTPError(http.StatusForbidden, "admin pin not configured")
			case errors.Is(err, ErrInvalidPin):
				return echo.NewHTTPError(http.StatusForbidden, "invalid pin")
			default:
				return echo.NewHTTPError(http.StatusInternalServerError, "pin check failed")
			}
		}
	}
}
