package account

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medreport/medreport/internal/platform/auth"
	"github.com/medreport/medreport/pkg/pagination"
)

// codeSentMessage is the single response body for the existence-probing
// reset-request endpoints. It must not vary with the internal outcome.
const codeSentMessage = "a code has been sent if the account qualifies"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the auth flows and account management endpoints.
// authn is the Authenticate middleware; gate enforces the destructive-action
// PIN policy on deletions. Extra middleware in authMW (rate limiting) is
// applied to the credential endpoints only.
func (h *Handler) RegisterRoutes(api *echo.Group, authn echo.MiddlewareFunc, gate *auth.DestructiveGate, authMW ...echo.MiddlewareFunc) {
	a := api.Group("/auth", authMW...)
	a.POST("/register", h.Register)
	a.POST("/login", h.Login)
	a.POST("/verify-email", h.VerifyEmail)
	a.POST("/resend-verification", h.ResendVerification)
	a.POST("/forgot-password", h.ForgotPassword)
	a.POST("/reset-password", h.ResetPassword)
	a.POST("/forgot-pin", h.ForgotPin)
	a.POST("/reset-pin", h.ResetPin)
	a.POST("/pin", h.SetPin, authn)

	acc := api.Group("/accounts", authn, auth.RequireVerified())
	acc.GET("", h.List, auth.RequireRole(string(RoleAdmin)))
	acc.GET("/:id", h.Get)
	acc.PUT("/:id/role", h.UpdateRole, auth.RequireRole(string(RoleAdmin)))
	acc.DELETE("/:id", h.Delete, auth.RequireRole(string(RoleAdmin)), auth.RequirePin(gate))
}

// httpError maps domain sentinels to HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, ErrDuplicate.Error())
	case errors.Is(err, ErrPinAlreadySet):
		return echo.NewHTTPError(http.StatusConflict, ErrPinAlreadySet.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error())
	case errors.Is(err, ErrInvalidOrExpiredCode):
		return echo.NewHTTPError(http.StatusBadRequest, ErrInvalidOrExpiredCode.Error())
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, ErrForbidden.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

type authResponse struct {
	Token   string   `json:"token"`
	Account *Account `json:"account"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, token, err := h.svc.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, authResponse{Token: token, Account: a})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, token, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, authResponse{Token: token, Account: a})
}

type codeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *Handler) VerifyEmail(c echo.Context) error {
	var req codeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, token, err := h.svc.VerifyEmail(c.Request().Context(), req.Email, req.Code)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, authResponse{Token: token, Account: a})
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) ResendVerification(c echo.Context) error {
	var req emailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.ResendVerification(c.Request().Context(), req.Email); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "verification code sent"})
}

func (h *Handler) ForgotPassword(c echo.Context) error {
	var req emailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": codeSentMessage})
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, token, err := h.svc.ResetPassword(c.Request().Context(), req.Email, req.Code, req.NewPassword)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, authResponse{Token: token, Account: a})
}

type setPinRequest struct {
	Pin string `json:"pin"`
}

func (h *Handler) SetPin(c echo.Context) error {
	ac, ok := auth.FromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing auth context")
	}
	var req setPinRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.SetPin(c.Request().Context(), ac.AccountID, req.Pin); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "pin configured"})
}

func (h *Handler) ForgotPin(c echo.Context) error {
	var req emailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.RequestPinReset(c.Request().Context(), req.Email); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": codeSentMessage})
}

type resetPinRequest struct {
	Email  string `json:"email"`
	Code   string `json:"code"`
	NewPin string `json:"new_pin"`
}

func (h *Handler) ResetPin(c echo.Context) error {
	var req resetPinRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.ResetPin(c.Request().Context(), req.Email, req.Code, req.NewPin); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "pin updated"})
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	accounts, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(accounts, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

type updateRoleRequest struct {
	Role Role `json:"role"`
}

func (h *Handler) UpdateRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.UpdateRole(c.Request().Context(), id, req.Role); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "role updated"})
}

// Delete is the destructive operation. Authorization (admin role + PIN gate)
// happens in middleware immediately before this handler runs.
func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
