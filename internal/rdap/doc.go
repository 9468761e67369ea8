// Package rdap defines the wire-level surface of the RDAP protocol the
// gateway speaks: the well-known URL prefix, the RDAP JSON media type,
// and the structured error response envelope attached to every
// gateway-produced rejection.
package rdap
