package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Pinger is anything /readyz should check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterOptions struct {
	Log            logrus.FieldLogger
	AllowedOrigins []string
	Ready          map[string]Pinger
}

func NewRouter(opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(opts.Log), metrics.Middleware, middleware.Recoverer)
	r.Use(cors(opts.AllowedOrigins))
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{}
		code := http.StatusOK
		for name, p := range opts.Ready {
			if err := p.Ping(ctx); err != nil {
				opts.Log.WithError(err).WithField("dependency", name).Warn("readiness check failed")
				status[name] = "down"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "up"
		}
		writeJSON(w, code, status)
	})
	r.Handle("/metrics", metrics.Handler())
	return r
}
