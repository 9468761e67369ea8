// Package middleware provides the HTTP middleware surrounding the
// gateway pipeline: panic recovery, request ID injection and request
// logging.
//
// Middleware functions follow the standard Go pattern:
//
//	handler := middleware.Recovery(logger, conf)(
//	    middleware.RequestID()(
//	        middleware.Logging(logger)(pipeline.Middleware()(downstream)),
//	    ),
//	)
package middleware
