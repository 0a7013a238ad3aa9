package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appid_gateway_requests_total",
			Help: "Requests handled by the gateway.",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "appid_gateway_request_duration_seconds",
			Help:    "Time spent handling gateway requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// InstrumentClient wraps the transport of client with counters and latency
// histograms for the calls made to App ID. client is not modified.
func InstrumentClient(client *http.Client, reg prometheus.Registerer) (*http.Client, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appid_upstream_requests_total",
		Help: "Requests sent to App ID.",
	}, []string{"code", "method"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "appid_upstream_request_duration_seconds",
		Help:    "Latency of requests sent to App ID.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	for _, c := range []prometheus.Collector{requests, duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	next := client.Transport
	if next == nil {
		next = http.DefaultTransport
	}

	instrumented := *client
	instrumented.Transport = promhttp.InstrumentRoundTripperCounter(requests,
		promhttp.InstrumentRoundTripperDuration(duration, next))

	return &instrumented, nil
}
