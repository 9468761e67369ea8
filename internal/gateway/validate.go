package gateway

import (
	"strings"

	"github.com/regdata/rdapgw/internal/rdap"
)

// RejectionReason identifies the single rule a rejected request
// violated. Used as a metrics label and mapped to a human-readable
// description in the error body.
type RejectionReason string

// The closed set of rejection reasons.
const (
	ReasonEmptyPath     RejectionReason = "empty_path"
	ReasonDecodeFailure RejectionReason = "decode_failure"
	ReasonBackslash     RejectionReason = "backslash"
	ReasonDoubledSlash  RejectionReason = "doubled_slash"
	ReasonInvalidSpace  RejectionReason = "invalid_space"
	ReasonInvalidChar   RejectionReason = "non_printable_char"
	ReasonMissingPrefix RejectionReason = "missing_prefix"
	ReasonTrailingSlash RejectionReason = "trailing_slash"
	ReasonTrailingDot   RejectionReason = "trailing_dot"
	ReasonMediaType     RejectionReason = "media_type_mismatch"
)

// rejectionDescriptions maps each reason to the description attached
// to the RDAP error body.
var rejectionDescriptions = map[RejectionReason]string{
	ReasonEmptyPath:     "request path is empty",
	ReasonDecodeFailure: "request path contains a malformed escape sequence",
	ReasonBackslash:     "request path contains a backslash",
	ReasonDoubledSlash:  "request path contains a doubled slash",
	ReasonInvalidSpace:  "request path contains invalid space usage",
	ReasonInvalidChar:   "request path contains a non-printable character",
	ReasonMissingPrefix: "request path does not start with " + rdap.URLPrefix,
	ReasonTrailingSlash: "request path ends with a slash",
	ReasonTrailingDot:   "request path ends with a dot segment",
	ReasonMediaType:     "accept header does not allow " + rdap.ContentTypeRDAP,
}

// Rejection is the terminal result of a failed validation. Exactly one
// reason is reported per request.
type Rejection struct {
	Reason RejectionReason
}

// Description returns the human-readable description for the error
// body.
func (r *Rejection) Description() string {
	return rejectionDescriptions[r.Reason]
}

func reject(reason RejectionReason) *Rejection {
	return &Rejection{Reason: reason}
}

// Validator applies the ordered URI validation rules. It is stateless
// and safe for concurrent use.
type Validator struct {
	// BasePath is an application-level base prefix stripped from the
	// raw path before validation. Empty when the gateway is mounted at
	// the server root.
	BasePath string
}

// pathRule pairs a rejection reason with the pure predicate that
// detects it on the decoded path.
type pathRule struct {
	reason   RejectionReason
	violates func(decoded string) bool
}

// pathRules are evaluated strictly in order with first-match-wins
// semantics. Several rules can be true for one malformed input; the
// order below is the contract and must not be reordered.
var pathRules = []pathRule{
	{ReasonBackslash, containsBackslash},
	{ReasonDoubledSlash, containsDoubledSlash},
	{ReasonInvalidSpace, containsInvalidSpace},
	{ReasonInvalidChar, pathContainsInvalidChar},
	{ReasonMissingPrefix, missingRequiredPrefix},
	{ReasonTrailingSlash, disallowedTrailingSlash},
	{ReasonTrailingDot, disallowedTrailingDot},
}

// Validate checks the raw request path against the ordered rule set.
// On success it returns the percent-decoded path used for routing; on
// failure it returns the first violated rule. It never panics and
// never blocks.
func (v *Validator) Validate(rawPath string) (string, *Rejection) {
	if strings.TrimSpace(rawPath) == "" || rawPath == "/" {
		return "", reject(ReasonEmptyPath)
	}

	uri := rawPath
	if v.BasePath != "" {
		uri = strings.TrimPrefix(rawPath, v.BasePath)
		if strings.TrimSpace(uri) == "" {
			return "", reject(ReasonEmptyPath)
		}
	}

	decoded, err := unescapePath(uri)
	if err != nil {
		return "", reject(ReasonDecodeFailure)
	}

	for _, rule := range pathRules {
		if rule.violates(decoded) {
			return "", reject(rule.reason)
		}
	}

	return decoded, nil
}

func containsBackslash(decoded string) bool {
	return strings.Contains(decoded, `\`)
}

func containsDoubledSlash(decoded string) bool {
	return strings.Contains(decoded, "//")
}

// containsInvalidSpace reports a space immediately following a slash
// or a trailing space. Entity lookup paths are exempt; their lookup
// keys may legitimately contain spaces.
func containsInvalidSpace(decoded string) bool {
	if strings.HasPrefix(decoded, rdap.EntityPathPrefix) {
		return false
	}
	return strings.Contains(decoded, "/ ") || strings.HasSuffix(decoded, " ")
}

// pathContainsInvalidChar scans everything before the final path
// segment for characters outside printable ASCII. The final segment is
// the lookup key and may contain non-ASCII identifiers.
func pathContainsInvalidChar(decoded string) bool {
	beforeLast := decoded
	if i := strings.LastIndexByte(decoded, '/'); i >= 0 {
		beforeLast = decoded[:i]
	}
	for _, r := range beforeLast {
		if r < 0x20 || r > 0x7e {
			return true
		}
	}
	return false
}

// missingRequiredPrefix requires every non-root path to start, after
// its single leading slash, with the well-known prefix followed by a
// slash.
func missingRequiredPrefix(decoded string) bool {
	if decoded == "/" {
		return false
	}
	if !strings.HasPrefix(decoded, "/") {
		return true
	}
	return !strings.HasPrefix(decoded[1:], rdap.URLPrefix+"/")
}

// disallowedTrailingSlash rejects trailing slashes except on the bare
// prefix path itself.
func disallowedTrailingSlash(decoded string) bool {
	if decoded == "/" {
		return false
	}
	if decoded[1:] == rdap.URLPrefix+"/" {
		return false
	}
	return strings.HasSuffix(decoded, "/")
}

func disallowedTrailingDot(decoded string) bool {
	return strings.HasSuffix(decoded, "/.")
}
