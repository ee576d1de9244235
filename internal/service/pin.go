package service

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode"
)

const boardingPinLength = 4

// generateBoardingPin returns a fresh random numeric PIN.
func generateBoardingPin() (string, error) {
	var b strings.Builder
	for i := 0; i < boardingPinLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// validPinFormat reports whether the candidate is a well-formed PIN.
func validPinFormat(pin string) bool {
	if len(pin) != boardingPinLength {
		return false
	}
	for _, r := range pin {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
