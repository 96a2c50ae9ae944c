// Package codes generates discount codes for vouchers and promotions that
// are created without an explicit code.
package codes

import "math/rand/v2"

// Generator produces a fresh discount code on every call.
type Generator func() string

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Alphanumeric returns a Generator producing uppercase alphanumeric codes of
// the given length.
func Alphanumeric(length int) Generator {
	return func() string {
		b := make([]byte, length)
		for i := range b {
			b[i] = alphabet[rand.IntN(len(alphabet))]
		}
		return string(b)
	}
}
