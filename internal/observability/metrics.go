package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderCallsTotal tracks outbound provider API calls
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainscreen_provider_calls_total",
			Help: "Total number of provider API calls",
		},
		[]string{"provider", "endpoint"},
	)

	// ProviderErrorsTotal tracks provider API errors by status class
	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainscreen_provider_errors_total",
			Help: "Total number of provider API errors",
		},
		[]string{"provider", "kind"},
	)

	// ProviderCallLatency tracks provider call latency
	ProviderCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chainscreen_provider_call_latency_seconds",
			Help:    "Provider API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "endpoint"},
	)

	// SwapsClassified tracks DEX swaps reconstructed per protocol
	SwapsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainscreen_swaps_classified_total",
			Help: "Total number of DEX swaps classified",
		},
		[]string{"protocol"},
	)

	// ScreeningFlagsRaised tracks screening flags per category and severity
	ScreeningFlagsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainscreen_screening_flags_total",
			Help: "Total number of screening flags raised",
		},
		[]string{"category", "severity"},
	)
)
