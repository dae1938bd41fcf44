package account

import (
	"testing"
	"time"
)

func TestNewCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := NewCode()
		if err != nil {
			t.Fatalf("generate code: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q is not six characters", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains a non-digit", code)
			}
		}
		if code[0] == '0' {
			t.Fatalf("code %q has a leading zero", code)
		}
	}
}

func TestFlowWindows(t *testing.T) {
	if got := FlowEmailVerification.Window(); got != 10*time.Minute {
		t.Errorf("verification window = %v, want 10m", got)
	}
	if got := FlowPasswordReset.Window(); got != 10*time.Minute {
		t.Errorf("password reset window = %v, want 10m", got)
	}
	if got := FlowPinReset.Window(); got != 30*time.Minute {
		t.Errorf("pin reset window = %v, want 30m", got)
	}
}
