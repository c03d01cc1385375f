package scene

import (
	"strconv"
	"strings"
	"unicode"
)

// maxSeedDigits keeps the parsed seed inside int64.
const maxSeedDigits = 18

// Seed derives the sketch seed from the digits of the operation id.
// Non-digits are ignored; an id without digits (or whose digits are all
// zero) seeds with 1. Very long digit runs keep their trailing digits.
func (op Operation) Seed() int64 {
	return SeedFromID(op.ID)
}

// SeedFromID is Seed for a bare id string.
func SeedFromID(id string) int64 {
	var b strings.Builder
	for _, r := range id {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > maxSeedDigits {
		digits = digits[len(digits)-maxSeedDigits:]
	}

	seed, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || seed == 0 {
		return 1
	}
	return seed
}
