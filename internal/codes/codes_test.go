package codes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlphanumeric(t *testing.T) {
	gen := Alphanumeric(8)

	seen := make(map[string]struct{})
	for range 100 {
		code := gen()
		assert.Len(t, code, 8)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(alphabet, r), "unexpected rune %q", r)
		}
		seen[code] = struct{}{}
	}

	// 100 draws from a 36^8 space colliding down to a handful would mean a
	// broken generator.
	assert.Greater(t, len(seen), 90)
}
