package awsauth

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	clientCacheTotal  *prometheus.CounterVec
	sessionCacheTotal *prometheus.CounterVec
	assumeRoleTotal   *prometheus.CounterVec

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered bool
)

// InitMetrics initializes all Prometheus metrics.
// This should be called once at startup if metrics are enabled; recording is
// a no-op until then.
func InitMetrics() {
	metricsOnce.Do(func() {
		clientCacheTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "awsops_client_cache_requests_total",
				Help: "Client cache lookups by service and outcome",
			},
			[]string{"service", "outcome"},
		)

		sessionCacheTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "awsops_session_cache_requests_total",
				Help: "Profile session registry lookups by outcome",
			},
			[]string{"outcome"},
		)

		assumeRoleTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "awsops_assume_role_total",
				Help: "STS AssumeRole calls by result",
			},
			[]string{"result"},
		)

		metricsRegistered = true
	})
}

func recordClientCache(service, outcome string) {
	if !metricsRegistered || clientCacheTotal == nil {
		return
	}
	clientCacheTotal.WithLabelValues(service, outcome).Inc()
}

func recordSessionCache(outcome string) {
	if !metricsRegistered || sessionCacheTotal == nil {
		return
	}
	sessionCacheTotal.WithLabelValues(outcome).Inc()
}

func recordAssumeRole(result string) {
	if !metricsRegistered || assumeRoleTotal == nil {
		return
	}
	assumeRoleTotal.WithLabelValues(result).Inc()
}
