package circuit

import "github.com/prometheus/client_golang/prometheus"

var (
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current breaker state: 0=closed,1=half_open,2=open",
		},
		[]string{"service"},
	)
	BreakerFailureRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_failure_rate_percent",
			Help: "Sliding-window failure rate per guarded service",
		},
		[]string{"service"},
	)
	BreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests seen by each breaker, by outcome",
		},
		[]string{"service", "status"},
	)
	BreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Count of breaker state transitions",
		},
		[]string{"service", "from", "to"},
	)
)

// Request outcome labels.
const (
	statusSuccess  = "success"
	statusFailure  = "failure"
	statusRejected = "rejected"
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerFailureRate, BreakerRequests, BreakerTransitions)
}
