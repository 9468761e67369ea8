package rdap

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the RDAP structured error body returned for every
// gateway-produced rejection.
type ErrorResponse struct {
	RDAPConformance []string `json:"rdapConformance,omitempty"`
	Lang            string   `json:"lang,omitempty"`
	ErrorCode       int      `json:"errorCode"`
	Title           string   `json:"title,omitempty"`
	Description     []string `json:"description,omitempty"`
}

// NewBadRequest builds a 400 error response.
func NewBadRequest(description ...string) *ErrorResponse {
	if len(description) == 0 {
		description = []string{"BAD REQUEST"}
	}
	return &ErrorResponse{
		Lang:        "en",
		ErrorCode:   http.StatusBadRequest,
		Title:       "BAD REQUEST",
		Description: description,
	}
}

// NewTooManyConnections builds a 509 error response signalling that the
// concurrent connection limit has been reached.
func NewTooManyConnections() *ErrorResponse {
	return &ErrorResponse{
		Lang:        "en",
		ErrorCode:   StatusTooManyConnections,
		Title:       "CONNECTION LIMIT EXCEEDED",
		Description: []string{"exceed max concurrent connections"},
	}
}

// NewInternalError builds a 500 error response.
func NewInternalError() *ErrorResponse {
	return &ErrorResponse{
		Lang:        "en",
		ErrorCode:   http.StatusInternalServerError,
		Title:       "INTERNAL SERVER ERROR",
		Description: []string{"INTERNAL SERVER ERROR"},
	}
}

// NewNotImplemented builds a 501 error response for operations the
// server does not provide.
func NewNotImplemented() *ErrorResponse {
	return &ErrorResponse{
		Lang:        "en",
		ErrorCode:   http.StatusNotImplemented,
		Title:       "NOT IMPLEMENTED",
		Description: []string{"NOT IMPLEMENTED"},
	}
}

// WithConformance attaches the conformance list to the response body
// and returns the response for chaining.
func (e *ErrorResponse) WithConformance(conformance []string) *ErrorResponse {
	e.RDAPConformance = conformance
	return e
}

// WriteError writes the error response to w with the RDAP media type.
// The HTTP status is taken from the errorCode field.
func WriteError(w http.ResponseWriter, resp *ErrorResponse) {
	w.Header().Set("Content-Type", ContentTypeRDAP)
	w.WriteHeader(resp.ErrorCode)
	_ = json.NewEncoder(w).Encode(resp)
}
