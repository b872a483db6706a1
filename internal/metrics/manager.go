package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests        *prometheus.CounterVec
	CounterReconciled      *prometheus.CounterVec
	CounterQuarantined     *prometheus.CounterVec
	CounterGatewayFailures *prometheus.CounterVec
	CounterRealtimePushes  prometheus.Counter

	// gauges
	GaugeSessions        prometheus.Gauge
	GaugeRealtimeClients prometheus.Gauge

	// histograms
	HistRequestDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("tracker", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("tracker", "test_server", reg), reg
}

// SetupPrometheus creates a registry with the runtime and process collectors.
func SetupPrometheus() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterReconciled := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "reconciled_records",
		Help:      "Records applied to session stores, by table, source and outcome",
	}, []string{"table", "source", "outcome"})
	counterQuarantined := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "quarantined_rows",
		Help:      "Rows dropped at the mapping boundary because they failed validation",
	}, []string{"table"})
	counterGatewayFailures := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "gateway_failures",
		Help:      "Failed gateway calls, by table and operation",
	}, []string{"table", "op"})
	counterRealtimePushes := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "realtime_pushes",
		Help:      "The total number of store changes pushed to websocket clients",
	})

	gaugeSessions := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "open_sessions",
		Help:      "Current number of open user sessions",
	})
	gaugeRealtimeClients := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "realtime_clients",
		Help:      "Current number of connected websocket clients",
	})

	histReqDuration := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 60},
			Name:      "request_duration_seconds",
			Help:      "Total duration of requests in seconds",
		},
	)

	return &Manager{
		CounterRequests:        counterRequests,
		CounterReconciled:      counterReconciled,
		CounterQuarantined:     counterQuarantined,
		CounterGatewayFailures: counterGatewayFailures,
		CounterRealtimePushes:  counterRealtimePushes,
		GaugeSessions:          gaugeSessions,
		GaugeRealtimeClients:   gaugeRealtimeClients,
		HistRequestDuration:    histReqDuration,
	}
}
