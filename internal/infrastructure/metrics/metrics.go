package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderRequestsTotal tracks outbound provider API calls by outcome.
	ProviderRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dnsbridge_provider_requests_total",
		Help: "Total number of provider API requests",
	}, []string{"provider", "operation", "outcome"})

	// ProviderRequestDuration tracks provider API latency.
	ProviderRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dnsbridge_provider_request_duration_seconds",
		Help:    "Histogram of provider API request duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "operation"})

	// ProviderRetriesTotal counts transient-error retries in the HTTP helper.
	ProviderRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dnsbridge_provider_retries_total",
		Help: "Total number of retried provider API requests",
	}, []string{"provider"})

	// RegistryAccounts tracks the number of live provider instances.
	RegistryAccounts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dnsbridge_registry_accounts",
		Help: "Number of accounts with a registered provider instance",
	})

	// DomainCacheOperations tracks domain cache hits and misses.
	DomainCacheOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dnsbridge_domain_cache_operations_total",
		Help: "Total number of domain cache hits and misses",
	}, []string{"backend", "result"})
)
