package rdap

import "strings"

// Protocol constants.
const (
	// URLPrefix is the well-known RDAP URL prefix, without leading or
	// trailing slash.
	URLPrefix = ".well-known/rdap"

	// EntityPathPrefix is the entity lookup sub-route. Entity lookup
	// paths are exempt from the invalid-space validation rule.
	EntityPathPrefix = "/" + URLPrefix + "/entity/"

	// ContentTypeRDAP is the RDAP JSON media type.
	ContentTypeRDAP = "application/rdap+json"

	// ContentTypeJSON is the generic JSON media type, accepted as an
	// alias for the RDAP media type.
	ContentTypeJSON = "application/json"
)

// StatusTooManyConnections is the non-standard HTTP status historically
// used by RDAP servers to signal that the concurrent connection limit
// has been reached.
const StatusTooManyConnections = 509

// AcceptsRDAP reports whether the Accept header value indicates the
// RDAP JSON media type. An empty header is treated as acceptable, as
// are the JSON alias and wildcard ranges.
func AcceptsRDAP(accept string) bool {
	if strings.TrimSpace(accept) == "" {
		return true
	}
	for _, part := range strings.Split(accept, ",") {
		mediaType := part
		if i := strings.IndexByte(part, ';'); i >= 0 {
			mediaType = part[:i]
		}
		mediaType = strings.ToLower(strings.TrimSpace(mediaType))
		switch mediaType {
		case ContentTypeRDAP, ContentTypeJSON, "application/*", "*/*":
			return true
		}
	}
	return false
}
