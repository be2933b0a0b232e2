package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DraftsSaved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_drafts_saved_total",
		Help: "Draft saves by outcome (created, updated).",
	}, []string{"outcome"})

	ChecklistsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maintenance_checklists_submitted_total",
		Help: "Completed checklists appended.",
	})

	CustomersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_customers_total",
		Help: "Customer create requests by outcome (created, exists).",
	}, []string{"outcome"})

	ReportsExported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_reports_exported_total",
		Help: "Exports by format (pdf, xlsx).",
	}, []string{"format"})

	PhotosUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maintenance_photos_uploaded_total",
		Help: "Photos stored.",
	})

	DroppedFields = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maintenance_dropped_fields_total",
		Help: "Checklist fields discarded because the sheet has no column for them.",
	})

	TempFilesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maintenance_temp_files_swept_total",
		Help: "Orphaned temp files removed by the sweeper.",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maintenance_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Metrics records request latency per matched route.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		requestDuration.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
		return err
	}
}
