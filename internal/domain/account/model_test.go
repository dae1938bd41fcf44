package account

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleDoctor, RoleGuest} {
		if !r.Valid() {
			t.Errorf("%s should be a valid role", r)
		}
	}
	for _, r := range []Role{"", "superuser", "Admin"} {
		if r.Valid() {
			t.Errorf("%q should not be a valid role", r)
		}
	}
}

func TestHasPin(t *testing.T) {
	a := &Account{}
	if a.HasPin() {
		t.Error("no hash means no pin")
	}
	empty := ""
	a.PinHash = &empty
	if a.HasPin() {
		t.Error("empty hash means no pin")
	}
	hash := "$2a$06$something"
	a.PinHash = &hash
	if !a.HasPin() {
		t.Error("expected pin to be configured")
	}
}

func TestAccountJSONHidesSecrets(t *testing.T) {
	code := "123456"
	hash := "$2a$12$secret"
	a := &Account{
		Username:          "alice",
		Email:             "alice@example.com",
		PasswordHash:      hash,
		VerificationCode:  &code,
		PasswordResetCode: &code,
		PinResetCode:      &code,
		PinHash:           &hash,
	}

	out, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(out)
	if strings.Contains(body, "123456") || strings.Contains(body, "secret") {
		t.Errorf("serialized account leaks secrets: %s", body)
	}
	if !strings.Contains(body, "alice@example.com") {
		t.Errorf("serialized account missing public fields: %s", body)
	}
}
