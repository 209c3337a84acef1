package vault

import (
	"regexp"
	"strings"
)

const hexDigits = "0123456789ABCDEF"

// EncodePath percent-encodes every byte of p other than ASCII letters, digits and the
// characters '_', '.', '-' and '/'. Segment separators survive, everything else that could
// be read as URL syntax (':', '@', '%', ' ', '?', '#', ...) does not.
func EncodePath(p string) string {
	var b strings.Builder
	b.Grow(len(p))

	for i := 0; i < len(p); i++ {
		c := p[i]
		if shouldKeep(c) {
			b.WriteByte(c)
			continue
		}

		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}

	return b.String()
}

func shouldKeep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '_', c == '.', c == '-', c == '/':
		return true
	}

	return false
}

// JoinPath joins prefix and p with exactly one separator between them. Leading separators
// are dropped since every path is relative to the API version root.
func JoinPath(prefix, p string) string {
	prefix = strings.Trim(prefix, "/")
	p = strings.TrimLeft(p, "/")

	if prefix == "" {
		return p
	}

	if p == "" {
		return prefix
	}

	return prefix + "/" + p
}

// Token locations that carry the token id in the path.
var tokenInPath = regexp.MustCompile(`(auth/token/(?:renew|revoke-orphan|revoke))/[^\s"'?#]+`)

// RedactTokens hides the token id in any token location found in s, so paths and URLs can be
// logged.
func RedactTokens(s string) string {
	return tokenInPath.ReplaceAllString(s, "$1/<redacted>")
}
