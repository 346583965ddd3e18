package links

import (
	"crypto/rand"
	"regexp"
	"strings"
)

const base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var customSlugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,64}$`)

// reservedSlugs are first path segments the HTTP edge routes itself. A link
// under one of them would never be reached through /{slug}.
var reservedSlugs = map[string]struct{}{
	"api":     {},
	"s":       {},
	"health":  {},
	"metrics": {},
}

// IsReservedSlug matches case-insensitively so look-alike slugs stay unusable
// too.
func IsReservedSlug(slug string) bool {
	_, ok := reservedSlugs[strings.ToLower(slug)]
	return ok
}

// ValidCustomSlug reports whether an owner-chosen slug is acceptable.
func ValidCustomSlug(slug string) bool {
	return customSlugPattern.MatchString(slug) && !IsReservedSlug(slug)
}

type CryptoSlugger struct{}

func NewCryptoSlugger() *CryptoSlugger { return &CryptoSlugger{} }

// Generate draws length base62 characters, rejecting bytes that would bias
// the distribution toward the start of the alphabet.
func (s *CryptoSlugger) Generate(length int) (string, error) {
	if length <= 0 {
		length = 6
	}

	const limit = 256 - 256%len(base62Alphabet)

	out := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, base62Alphabet[int(b)%len(base62Alphabet)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
