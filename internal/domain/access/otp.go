package access

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// OTP codes are 6 decimal digits, hashed with bcrypt before storage.
// The plaintext exists only in the email that delivers it.
const (
	otpLength     = 6
	otpBcryptCost = 12
)

// GenerateOTP produces a random 6-digit numeric code and its bcrypt hash.
// Leading zeros are preserved.
func GenerateOTP() (code string, hash string, err error) {
	max := big.NewInt(1)
	for i := 0; i < otpLength; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate OTP: %w", err)
	}

	code = fmt.Sprintf("%0*d", otpLength, n)

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(code), otpBcryptCost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash OTP: %w", err)
	}

	return code, string(hashBytes), nil
}

// VerifyOTP checks a candidate code against a stored bcrypt hash.
// The candidate is validated for shape first so malformed input fails
// without touching bcrypt; the shape check itself is constant-time over
// the full candidate so the rejection reveals nothing about position.
func VerifyOTP(hash, candidate string) bool {
	if !isWellFormedOTP(candidate) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

// isWellFormedOTP scans every byte of the candidate rather than returning
// on the first bad character, and checks length via subtle comparison.
func isWellFormedOTP(candidate string) bool {
	lengthOK := subtle.ConstantTimeEq(int32(len(candidate)), otpLength) == 1

	digitsOK := 1
	for i := 0; i < len(candidate); i++ {
		c := candidate[i]
		isDigit := 0
		if c >= '0' && c <= '9' {
			isDigit = 1
		}
		digitsOK &= isDigit
	}

	return lengthOK && digitsOK == 1
}
