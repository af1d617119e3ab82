package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"videogen/internal/domain"
	"videogen/internal/jobclient"
)

const unmatched = "unmatched"

var (
	jobsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "videogen_jobs_submitted_total",
			Help: "Total number of generation jobs accepted by the service.",
		},
	)

	pollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videogen_polls_total",
			Help: "Total number of status observations by reported state.",
		},
		[]string{"state"},
	)

	outcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videogen_outcomes_total",
			Help: "Total number of finished waits by outcome kind.",
		},
		[]string{"kind"},
	)

	jobWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videogen_job_wait_seconds",
			Help:    "Time from submission until a terminal outcome.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	artifactBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videogen_artifact_bytes",
			Help:    "Size of retrieved artifacts in bytes.",
			Buckets: prometheus.ExponentialBuckets(64<<10, 4, 8),
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videogen_http_requests_total",
			Help: "Total number of HTTP requests served.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videogen_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(jobsSubmitted)
	prometheus.MustRegister(pollsTotal)
	prometheus.MustRegister(outcomesTotal)
	prometheus.MustRegister(jobWait)
	prometheus.MustRegister(artifactBytes)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
}

// Observer records job lifecycle events into the package collectors.
type Observer struct{}

func (Observer) JobSubmitted(domain.JobHandle, domain.GenerationRequest) {
	jobsSubmitted.Inc()
}

func (Observer) StatusObserved(status domain.JobStatus) {
	pollsTotal.WithLabelValues(string(status.State)).Inc()
}

func (Observer) JobFinished(_ domain.JobHandle, outcome domain.Outcome, err error, waited time.Duration, _ int) {
	kind := string(outcome.Kind)
	if kind == "" {
		kind = domain.ClassifyError(err)
	}
	outcomesTotal.WithLabelValues(kind).Inc()
	jobWait.Observe(waited.Seconds())
}

func (Observer) ArtifactRetrieved(_ domain.JobHandle, artifact *domain.Artifact, err error) {
	if err != nil {
		outcomesTotal.WithLabelValues(domain.ClassifyError(err)).Inc()
		return
	}
	artifactBytes.Observe(float64(len(artifact.Data)))
}

var _ jobclient.Observer = Observer{}

// Middleware records request count and duration for every HTTP request,
// labelled by chi route pattern to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		path := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return unmatched
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
