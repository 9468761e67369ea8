package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/regdata/rdapgw/internal/observability"
	"github.com/regdata/rdapgw/internal/rdap"
	"github.com/regdata/rdapgw/internal/rdap/conformance"
)

// Recovery returns a middleware that recovers from downstream panics
// and writes an RDAP 500 error body. It sits outside the admission
// pipeline so that a panicking handler has already released its
// admission slot by the time the panic reaches this middleware.
func Recovery(logger observability.Logger, conf *conformance.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.WithContext(r.Context()).Error("panic recovered",
						observability.String("path", r.URL.Path),
						observability.String("method", r.Method),
						observability.Any("error", err),
						observability.String("stack", string(debug.Stack())),
					)

					observability.GetGatewayMetrics().IncPanicsRecovered()

					resp := rdap.NewInternalError()
					if conf != nil {
						resp.WithConformance(conf.List())
					}
					rdap.WriteError(w, resp)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
