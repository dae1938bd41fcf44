package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

var testSecret = []byte("test-secret-key-for-unit-tests-only")

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret)
	id := uuid.New()

	signed, err := issuer.Issue(id, "admin", true)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.Parse(signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	gotID, err := claims.AccountID()
	if err != nil {
		t.Fatalf("account id: %v", err)
	}
	if gotID != id {
		t.Errorf("subject = %s, want %s", gotID, id)
	}
	if claims.Role != "admin" {
		t.Errorf("role = %s, want admin", claims.Role)
	}
	if !claims.Verified {
		t.Error("verified flag lost in round trip")
	}
}

func TestParse_BearerPrefix(t *testing.T) {
	issuer := NewTokenIssuer(testSecret)
	signed, err := issuer.Issue(uuid.New(), "guest", false)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for _, header := range []string{
		signed,
		"Bearer " + signed,
		"bearer " + signed,
		"  Bearer " + signed + "  ",
	} {
		if _, err := issuer.Parse(header); err != nil {
			t.Errorf("Parse(%q...) failed: %v", header[:12], err)
		}
	}
}

func TestParse_Garbage(t *testing.T) {
	issuer := NewTokenIssuer(testSecret)

	for _, raw := range []string{"", "Bearer ", "not-a-token", "Bearer not.a.token"} {
		if _, err := issuer.Parse(raw); err == nil {
			t.Errorf("Parse(%q) should fail", raw)
		}
	}
}

func TestParse_WrongSecret(t *testing.T) {
	issuer := NewTokenIssuer(testSecret)
	other := NewTokenIssuer([]byte("a-completely-different-signing-key"))

	signed, err := issuer.Issue(uuid.New(), "admin", true)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.Parse(signed); err == nil {
		t.Error("token signed with a different secret should be rejected")
	}
}

func TestParse_Expired(t *testing.T) {
	issuer := NewTokenIssuer(testSecret)
	signed, err := issuer.Issue(uuid.New(), "guest", false)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Still valid just inside the 24h window.
	issuer.now = func() time.Time { return time.Now().Add(23 * time.Hour) }
	if _, err := issuer.Parse(signed); err != nil {
		t.Errorf("token at +23h should still parse: %v", err)
	}

	// Rejected past it.
	issuer.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	if _, err := issuer.Parse(signed); err == nil {
		t.Error("token at +25h should be rejected")
	}
}

// Claims are a snapshot: a token issued before a role change keeps carrying
// the old role until a new one is issued.
func TestClaimsAreSnapshot(t *testing.T) {
	issuer := NewTokenIssuer(testSecret)
	id := uuid.New()

	before, err := issuer.Issue(id, "guest", false)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	after, err := issuer.Issue(id, "doctor", true)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	oldClaims, err := issuer.Parse(before)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	newClaims, err := issuer.Parse(after)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if oldClaims.Role != "guest" || oldClaims.Verified {
		t.Errorf("old token mutated: role=%s verified=%v", oldClaims.Role, oldClaims.Verified)
	}
	if newClaims.Role != "doctor" || !newClaims.Verified {
		t.Errorf("new token wrong: role=%s verified=%v", newClaims.Role, newClaims.Verified)
	}
}
