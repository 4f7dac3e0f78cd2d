package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphview_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphview_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "path"},
	)

	rpcRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphview_grpc_requests_total",
			Help: "Total number of unary gRPC calls handled",
		},
		[]string{"method", "code"},
	)

	subgraphNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "graphview_subgraph_nodes",
		Help:    "Number of nodes returned per subgraph extraction",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	subgraphLinks = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "graphview_subgraph_links",
		Help:    "Number of links returned per subgraph extraction",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	graphReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphview_graph_reloads_total",
			Help: "Snapshot reloads by trigger",
		},
		[]string{"reason"},
	)

	reloadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "graphview_graph_reload_failures_total",
		Help: "Snapshot reloads that failed to read the store",
	})

	graphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "graphview_graph_nodes",
		Help: "Nodes in the current snapshot",
	})

	graphLinks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "graphview_graph_links",
		Help: "Links in the current snapshot",
	})
)
