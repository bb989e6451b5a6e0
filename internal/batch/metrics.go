package batch

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	filesTotal      *prometheus.CounterVec
	fileDuration    *prometheus.HistogramVec
	batchesTotal    *prometheus.CounterVec
	activeBatch     prometheus.Gauge
	bytesSavedTotal prometheus.Counter
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	m := &metrics{
		filesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagemin_batch_files_total",
			Help: "Files processed by the batch runner by output format and status.",
		}, []string{"format", "status"}),
		fileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "imagemin_batch_file_duration_seconds",
			Help:    "Compression duration for each file in a batch.",
			Buckets: prometheus.DefBuckets,
		}, []string{"format", "status"}),
		batchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagemin_batches_total",
			Help: "Batches run by final outcome.",
		}, []string{"outcome"}),
		activeBatch: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "imagemin_batch_active",
			Help: "1 while a batch is running.",
		}),
		bytesSavedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imagemin_bytes_saved_total",
			Help: "Bytes saved across successfully compressed files.",
		}),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.filesTotal,
			m.fileDuration,
			m.batchesTotal,
			m.activeBatch,
			m.bytesSavedTotal,
		)
	}
	return m
}
