package account

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// CodeFlow identifies which one-time-code flow a code belongs to. Each
// account holds at most one pending code per flow; issuing a new code
// overwrites the pending one.
type CodeFlow string

const (
	FlowEmailVerification CodeFlow = "email_verification"
	FlowPasswordReset     CodeFlow = "password_reset"
	FlowPinReset          CodeFlow = "pin_reset"
)

// Window returns how long a freshly issued code for this flow stays valid.
func (f CodeFlow) Window() time.Duration {
	switch f {
	case FlowPinReset:
		return 30 * time.Minute
	default:
		return 10 * time.Minute
	}
}

// codeSpan covers [100000, 999999]: always six digits, never a leading
// zero, so rendered codes are fixed width.
const (
	codeMin  = 100000
	codeSpan = 900000
)

// NewCode returns a uniformly random six-digit one-time code.
func NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
