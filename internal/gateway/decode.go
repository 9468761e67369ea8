package gateway

import (
	"net/url"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// DecodeServletPath recovers the operator-intended UTF-8 path from a
// path that a fronting web layer may have percent-decoded using
// ISO-8859-1. The string is encoded back to its single-byte form and
// the resulting bytes are reinterpreted as UTF-8.
//
// The correction is a no-op for ASCII-only input, so applying it to an
// already-correct path is safe. It never fails: runes with no
// ISO-8859-1 mapping and byte sequences that are not valid UTF-8
// degrade to replacement characters.
func DecodeServletPath(path string) string {
	if isASCII(path) {
		return path
	}

	encoder := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder())
	raw, err := encoder.String(path)
	if err != nil {
		return path
	}
	return strings.ToValidUTF8(raw, "�")
}

// unescapePath percent-decodes the path. A malformed escape sequence
// is the caller's decode-failure rejection, not a panic.
func unescapePath(path string) (string, error) {
	if !strings.ContainsRune(path, '%') {
		return path, nil
	}
	return url.PathUnescape(path)
}

// isASCII reports whether s contains only 7-bit ASCII bytes.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
