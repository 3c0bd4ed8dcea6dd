// Package metrics holds the prometheus collectors of the catalog server.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slushbook_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	ModerationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slushbook_moderation_transitions_total",
			Help: "Moderation events by outcome",
		},
		[]string{"event", "outcome"}, // outcome: "ok", "invalid", "forbidden", "error"
	)

	RecipesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slushbook_recipes_created_total",
			Help: "Recipes created, by creator role",
		},
		[]string{"role"},
	)

	GuestQuotaRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slushbook_guest_quota_rejections_total",
			Help: "Create attempts refused by the guest quota",
		},
	)

	MissingTranslations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slushbook_missing_translations_total",
			Help: "Recipes skipped in listings for lack of any usable translation",
		},
	)

	TranslationJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slushbook_translation_jobs_total",
			Help: "Translation jobs by result",
		},
		[]string{"result"}, // "enqueued", "written", "skipped", "failed"
	)

	GeoLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slushbook_geo_lookups_total",
			Help: "Geolocation lookups by source",
		},
		[]string{"source"}, // "private", "upstream", "fallback"
	)
)

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
