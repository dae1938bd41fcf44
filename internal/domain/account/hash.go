package account

import (
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

const (
	// passwordHashCost is the bcrypt cost for account passwords.
	passwordHashCost = 12
	// pinHashCost is deliberately cheaper than the password cost. A
	// four-digit PIN has so little entropy that a slow hash buys nothing,
	// and the gate is evaluated on every destructive request.
	pinHashCost = 6
)

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

// ValidPin reports whether pin is exactly four ASCII digits.
func ValidPin(pin string) bool {
	return pinPattern.MatchString(pin)
}

// HashPassword hashes a plaintext password at password-grade cost.
func HashPassword(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword compares a plaintext password against a stored hash.
func CheckPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// HashPin hashes a destructive-action PIN at PIN-grade cost.
func HashPin(pin string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pin), pinHashCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// ComparePin compares a candidate PIN against a stored hash.
func ComparePin(candidate, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}
