package account

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *testEnv, *echo.Echo) {
	env := newTestEnv()
	return NewHandler(env.svc), env, echo.New()
}

func postJSON(e *echo.Echo, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_Register(t *testing.T) {
	h, _, e := newTestHandler()

	c, rec := postJSON(e, "/api/auth/register", `{"username":"alice","email":"alice@example.com","password":"password123"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var resp authResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Token == "" {
		t.Error("expected a token in the response")
	}
	if resp.Account == nil || resp.Account.Username != "alice" {
		t.Errorf("unexpected account payload: %+v", resp.Account)
	}
}

func TestHandler_Register_BadInput(t *testing.T) {
	h, _, e := newTestHandler()

	c, _ := postJSON(e, "/api/auth/register", `{"username":"alice","email":"alice@example.com","password":"short"}`)
	err := h.Register(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 HTTPError, got %v", err)
	}
}

func TestHandler_Register_Duplicate(t *testing.T) {
	h, env, e := newTestHandler()
	env.register(t, "alice", "alice@example.com")

	c, _ := postJSON(e, "/api/auth/register", `{"username":"alice","email":"other@example.com","password":"password123"}`)
	err := h.Register(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409 HTTPError, got %v", err)
	}
}

func TestHandler_Login_WrongPassword(t *testing.T) {
	h, env, e := newTestHandler()
	env.register(t, "alice", "alice@example.com")

	c, _ := postJSON(e, "/api/auth/login", `{"email":"alice@example.com","password":"nope-nope"}`)
	err := h.Login(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 HTTPError, got %v", err)
	}
}

func TestHandler_VerifyEmail_BadCode(t *testing.T) {
	h, env, e := newTestHandler()
	env.register(t, "alice", "alice@example.com")

	c, _ := postJSON(e, "/api/auth/verify-email", `{"email":"alice@example.com","code":"000000"}`)
	err := h.VerifyEmail(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 HTTPError, got %v", err)
	}
}

// The forgot-password response must be byte-identical whether or not the
// email belongs to an account.
func TestHandler_ForgotPassword_NoExistenceLeak(t *testing.T) {
	h, env, e := newTestHandler()
	env.register(t, "alice", "alice@example.com")

	cKnown, recKnown := postJSON(e, "/api/auth/forgot-password", `{"email":"alice@example.com"}`)
	if err := h.ForgotPassword(cKnown); err != nil {
		t.Fatalf("known email: %v", err)
	}
	cUnknown, recUnknown := postJSON(e, "/api/auth/forgot-password", `{"email":"nobody@example.com"}`)
	if err := h.ForgotPassword(cUnknown); err != nil {
		t.Fatalf("unknown email: %v", err)
	}

	if recKnown.Code != recUnknown.Code {
		t.Errorf("status codes differ: %d vs %d", recKnown.Code, recUnknown.Code)
	}
	if recKnown.Body.String() != recUnknown.Body.String() {
		t.Errorf("bodies differ: %q vs %q", recKnown.Body.String(), recUnknown.Body.String())
	}
}

func TestHandler_ForgotPin_NoExistenceLeak(t *testing.T) {
	h, env, e := newTestHandler()
	env.register(t, "alice", "alice@example.com")
	env.register(t, "bob", "bob@example.com")
	env.register(t, "carol", "carol@example.com")

	bodies := make([]string, 0, 3)
	for _, email := range []string{
		"alice@example.com",  // admin
		"carol@example.com",  // guest
		"nobody@example.com", // unknown
	} {
		c, rec := postJSON(e, "/api/auth/forgot-pin", `{"email":"`+email+`"}`)
		if err := h.ForgotPin(c); err != nil {
			t.Fatalf("forgot pin for %s: %v", email, err)
		}
		bodies = append(bodies, rec.Body.String())
	}
	if bodies[0] != bodies[1] || bodies[1] != bodies[2] {
		t.Errorf("forgot-pin responses differ: %q %q %q", bodies[0], bodies[1], bodies[2])
	}
}

func TestHandler_Get(t *testing.T) {
	h, env, e := newTestHandler()
	a := env.register(t, "alice", "alice@example.com")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password_hash") {
		t.Error("response must not expose the password hash")
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.Get(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404 HTTPError, got %v", err)
	}
}

func TestHandler_UpdateRole(t *testing.T) {
	h, env, e := newTestHandler()
	env.register(t, "alice", "alice@example.com")
	env.register(t, "bob", "bob@example.com")
	guest := env.register(t, "carol", "carol@example.com")

	c, rec := postJSON(e, "/", `{"role":"doctor"}`)
	c.SetParamNames("id")
	c.SetParamValues(guest.ID.String())

	if err := h.UpdateRole(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_Delete(t *testing.T) {
	h, env, e := newTestHandler()
	a := env.register(t, "alice", "alice@example.com")

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}
