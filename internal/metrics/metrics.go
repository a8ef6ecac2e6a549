package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FieldRecordsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "majindogo_field_records_ingested_total",
			Help: "Total raw field records loaded from the survey database",
		},
	)

	WeatherMessagesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "majindogo_weather_messages_ingested_total",
			Help: "Total weather station messages ingested",
		},
		[]string{"station"},
	)

	CSVFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "majindogo_csv_fetches_total",
			Help: "Total remote CSV fetches",
		},
		[]string{"source", "status"},
	)

	CSVFetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "majindogo_csv_fetch_latency_seconds",
			Help:    "Remote CSV fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	RecordsCleaned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "majindogo_records_cleaned_total",
			Help: "Total records emitted by the cleaner",
		},
	)

	RecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "majindogo_records_dropped_total",
			Help: "Total records dropped by the cleaner",
		},
		[]string{"reason"},
	)

	ValuesClipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "majindogo_values_clipped_total",
			Help: "Total out-of-range values clipped to domain bounds",
		},
		[]string{"field"},
	)

	ValuesImputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "majindogo_values_imputed_total",
			Help: "Total missing values imputed from group means",
		},
		[]string{"field"},
	)
)
