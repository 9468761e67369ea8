package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GatewayMetrics holds Prometheus metrics for the admission and
// validation pipeline.
type GatewayMetrics struct {
	requestsTotal *prometheus.CounterVec

	uriRejectedTotal *prometheus.CounterVec

	admissionRejectedTotal prometheus.Counter
	admissionInFlight      prometheus.Gauge

	panicsRecovered prometheus.Counter

	conformanceListSize prometheus.Gauge
}

var (
	gatewayMetrics     *GatewayMetrics
	gatewayMetricsOnce sync.Once
)

// GetGatewayMetrics returns the singleton gateway metrics instance.
func GetGatewayMetrics() *GatewayMetrics {
	gatewayMetricsOnce.Do(func() {
		gatewayMetrics = newGatewayMetrics()
	})
	return gatewayMetrics
}

func newGatewayMetrics() *GatewayMetrics {
	return &GatewayMetrics{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rdapgw",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help: "Total number of requests seen " +
					"by the gateway by method and status",
			},
			[]string{"method", "status"},
		),
		uriRejectedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rdapgw",
				Subsystem: "gateway",
				Name:      "uri_rejected_total",
				Help: "Total number of requests " +
					"rejected by URI validation by reason",
			},
			[]string{"reason"},
		),
		admissionRejectedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rdapgw",
				Subsystem: "gateway",
				Name:      "admission_rejected_total",
				Help: "Total number of requests " +
					"rejected by the admission controller",
			},
		),
		admissionInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "rdapgw",
				Subsystem: "gateway",
				Name:      "admission_in_flight",
				Help: "Number of admitted requests " +
					"currently executing",
			},
		),
		panicsRecovered: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rdapgw",
				Subsystem: "gateway",
				Name:      "panics_recovered_total",
				Help: "Total number of panics " +
					"recovered from downstream handlers",
			},
		),
		conformanceListSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "rdapgw",
				Subsystem: "gateway",
				Name:      "conformance_list_size",
				Help: "Number of conformance " +
					"identifiers loaded at startup",
			},
		),
	}
}

// IncRequest records a completed request with its method and status.
func (m *GatewayMetrics) IncRequest(method, status string) {
	m.requestsTotal.WithLabelValues(method, status).Inc()
}

// IncURIRejected records a URI validation rejection by reason.
func (m *GatewayMetrics) IncURIRejected(reason string) {
	m.uriRejectedTotal.WithLabelValues(reason).Inc()
}

// IncAdmissionRejected records an admission rejection.
func (m *GatewayMetrics) IncAdmissionRejected() {
	m.admissionRejectedTotal.Inc()
}

// SetAdmissionInFlight records the current number of admitted requests.
func (m *GatewayMetrics) SetAdmissionInFlight(n int64) {
	m.admissionInFlight.Set(float64(n))
}

// IncPanicsRecovered records a recovered downstream panic.
func (m *GatewayMetrics) IncPanicsRecovered() {
	m.panicsRecovered.Inc()
}

// SetConformanceListSize records the size of the loaded conformance list.
func (m *GatewayMetrics) SetConformanceListSize(n int) {
	m.conformanceListSize.Set(float64(n))
}
