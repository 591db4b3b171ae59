package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the marketplace collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "market",
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "market",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests handled.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "market",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"method", "route"})

	eventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "market",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Events handed to the Kafka writer, by topic and result.",
	}, []string{"topic", "result"})

	eventsConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "market",
		Subsystem: "events",
		Name:      "consumed_total",
		Help:      "Events processed by consumers, by topic and result.",
	}, []string{"topic", "result"})
)

func init() {
	Registry.MustRegister(httpInFlight, httpRequests, httpDuration, eventsPublished, eventsConsumed)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency labelled by chi route
// pattern, so path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func EventPublished(topic string, ok bool) {
	eventsPublished.WithLabelValues(topic, result(ok)).Inc()
}

func EventConsumed(topic string, ok bool) {
	eventsConsumed.WithLabelValues(topic, result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
