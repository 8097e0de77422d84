package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paperboard",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "paperboard",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	Interactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paperboard",
		Name:      "interactions_total",
		Help:      "Like, retweet and bookmark toggles by kind and resulting state.",
	}, []string{"kind", "state"})

	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "paperboard",
		Name:      "posts_created_total",
		Help:      "Posts and replies created.",
	})

	PapersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "paperboard",
		Name:      "papers_created_total",
		Help:      "Past papers added to the directory.",
	})

	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paperboard",
		Name:      "uploads_total",
		Help:      "Files stored in object storage by kind.",
	}, []string{"kind"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "paperboard",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})
)

// State renders a toggle result as a label value.
func State(active bool) string {
	if active {
		return "on"
	}
	return "off"
}
