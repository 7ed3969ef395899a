package utils

import (
	"crypto/rand"
	"math/big"
)

// RandomCode returns an n-digit numeric verification code.
func RandomCode(n int) string {
	digits := make([]byte, n)
	for i := range digits {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken.
			panic(err)
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits)
}
