package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchImagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barloc_batch_images_total",
			Help: "Total number of images processed in batch mode",
		},
		[]string{"status"}, // status: success, error
	)

	batchRegionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "barloc_batch_regions_total",
			Help: "Total number of candidate regions found in batch mode",
		},
	)

	batchImageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "barloc_batch_image_duration_seconds",
			Help:    "Per-image processing duration in batch mode",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)
)
