// Package gateway implements the request admission and validation
// pipeline that fronts the RDAP query service.
//
// Each request passes through three stages before reaching the
// downstream handler:
//
//  1. Path decoding: the raw path is corrected for a possible
//     single-byte-charset pre-decode by the fronting web layer and
//     percent-decoded.
//  2. URI validation: an ordered list of syntactic rules is applied to
//     the decoded path; the first violated rule determines the single
//     rejection reason reported.
//  3. Admission: a shared atomic counter gates the number of requests
//     executing concurrently. Admission is decided instantly; there is
//     no queue. Every admitted request releases its slot on every exit
//     path, including downstream panics.
package gateway
