package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// OTPDigits is the length of a trip start code.
const OTPDigits = 6

var otpSpace = big.NewInt(1_000_000)

// GenerateOTP returns a uniformly random, zero-padded six digit code.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", OTPDigits, n.Int64()), nil
}
