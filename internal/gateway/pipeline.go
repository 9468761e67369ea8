package gateway

import (
	"net/http"

	"github.com/regdata/rdapgw/internal/observability"
	"github.com/regdata/rdapgw/internal/rdap"
	"github.com/regdata/rdapgw/internal/rdap/conformance"
)

// Pipeline orchestrates path decoding, URI validation and admission
// control in front of the downstream query handler. Any stage failure
// is terminal for the request and produces an RDAP error body; the
// downstream handler is only invoked for validated, admitted requests.
type Pipeline struct {
	validator   *Validator
	admission   *AdmissionController
	conformance *conformance.Provider
	logger      observability.Logger
	charsetFix  bool
}

// PipelineOption is a functional option for configuring the pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger observability.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithBasePath sets an application-level base prefix stripped from raw
// paths before validation.
func WithBasePath(basePath string) PipelineOption {
	return func(p *Pipeline) {
		p.validator.BasePath = basePath
	}
}

// WithServletCharsetCorrection enables DecodeServletPath on the path
// forwarded downstream, for deployments where a fronting web layer
// percent-decodes with ISO-8859-1 before the gateway sees the request.
// Leave disabled when the gateway terminates HTTP itself: the unescaped
// path is already correct UTF-8 and the correction would corrupt
// non-ASCII lookup keys.
func WithServletCharsetCorrection() PipelineOption {
	return func(p *Pipeline) {
		p.charsetFix = true
	}
}

// NewPipeline creates a pipeline gating requests with the given
// admission controller and attaching the given conformance list to
// every error body.
func NewPipeline(
	admission *AdmissionController,
	conf *conformance.Provider,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		validator:   &Validator{},
		admission:   admission,
		conformance: conf,
		logger:      observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Admission exposes the admission controller for runtime limit
// updates.
func (p *Pipeline) Admission() *AdmissionController {
	return p.admission
}

// Middleware returns the pipeline as standard http middleware.
func (p *Pipeline) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p.serve(w, r, next)
		})
	}
}

func (p *Pipeline) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	metrics := observability.GetGatewayMetrics()

	decoded, rej := p.validator.Validate(r.URL.EscapedPath())
	if rej == nil && !rdap.AcceptsRDAP(r.Header.Get("Accept")) {
		rej = reject(ReasonMediaType)
	}
	if rej != nil {
		p.logger.WithContext(r.Context()).Debug("request rejected",
			observability.String("path", r.URL.Path),
			observability.String("reason", string(rej.Reason)),
		)
		metrics.IncURIRejected(string(rej.Reason))
		p.writeError(w, rdap.NewBadRequest(rej.Description()))
		return
	}

	if !p.admission.TryAdmit() {
		// Expected under load, not an application error.
		p.logger.WithContext(r.Context()).Debug("admission rejected",
			observability.String("path", r.URL.Path),
			observability.Int64("current", p.admission.Current()),
			observability.Int64("max", p.admission.Max()),
		)
		metrics.IncAdmissionRejected()
		w.Header().Set("Retry-After", "1")
		p.writeError(w, rdap.NewTooManyConnections())
		return
	}

	metrics.SetAdmissionInFlight(p.admission.Current())

	// Release must run on every exit path that consumed the slot,
	// including a downstream panic unwinding through here.
	defer func() {
		p.admission.Release()
		metrics.SetAdmissionInFlight(p.admission.Current())
	}()

	forward := decoded
	if p.charsetFix {
		forward = DecodeServletPath(forward)
	}
	routed := r.Clone(r.Context())
	routed.URL.Path = forward
	routed.URL.RawPath = ""

	next.ServeHTTP(w, routed)
}

func (p *Pipeline) writeError(w http.ResponseWriter, resp *rdap.ErrorResponse) {
	if p.conformance != nil {
		resp.WithConformance(p.conformance.List())
	}
	rdap.WriteError(w, resp)
}
