// Package metrics exports collection view instrumentation to Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smileynet/cubone/collection"
	"github.com/smileynet/cubone/collectionview"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "cubone"

// Options configures the collector.
type Options struct {
	Namespace string                // Metric namespace (default: DefaultNamespace).
	Registry  prometheus.Registerer // Registry (default: a fresh prometheus.Registry).
	Buckets   []float64             // Render duration buckets (default: prometheus.DefBuckets).
}

// Collector implements collectionview.Observer with Prometheus metrics.
type Collector struct {
	events       *prometheus.CounterVec
	passes       prometheus.Counter
	passErrors   prometheus.Counter
	draws        prometheus.Counter
	passDuration prometheus.Histogram

	gatherer prometheus.Gatherer
}

var _ collectionview.Observer = (*Collector)(nil)

// New registers the collection view metrics.
func New(opts Options) *Collector {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.Buckets == nil {
		opts.Buckets = prometheus.DefBuckets
	}
	var gatherer prometheus.Gatherer
	if opts.Registry == nil {
		reg := prometheus.NewRegistry()
		opts.Registry = reg
		gatherer = reg
	} else if g, ok := opts.Registry.(prometheus.Gatherer); ok {
		gatherer = g
	}

	factory := promauto.With(opts.Registry)
	return &Collector{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "events_total",
			Help:      "Collection notifications handled, by kind and whether a hook replaced the render.",
		}, []string{"kind", "hooked"}),

		passes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "render_passes_total",
			Help:      "Render passes run.",
		}),

		passErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "render_errors_total",
			Help:      "Render passes stopped by a draw error.",
		}),

		draws: factory.NewCounter(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "draws_total",
			Help:      "Views drawn across all render passes.",
		}),

		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "render_pass_duration_seconds",
			Help:      "Render pass duration in seconds.",
			Buckets:   opts.Buckets,
		}),

		gatherer: gatherer,
	}
}

// EventHandled counts one notification.
func (c *Collector) EventHandled(kind collection.Kind, hooked bool) {
	c.events.WithLabelValues(kind.String(), strconv.FormatBool(hooked)).Inc()
}

// RenderPass records one render pass.
func (c *Collector) RenderPass(drawn int, elapsed time.Duration, err error) {
	c.passes.Inc()
	c.draws.Add(float64(drawn))
	c.passDuration.Observe(elapsed.Seconds())
	if err != nil {
		c.passErrors.Inc()
	}
}

// Handler returns a router serving the metrics at /metrics.
func (c *Collector) Handler() http.Handler {
	r := chi.NewRouter()
	if c.gatherer == nil {
		r.Handle("/metrics", promhttp.Handler())
	} else {
		r.Handle("/metrics", promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Serve listens on addr and serves Handler until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics: listening on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: c.Handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}
