package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskroute_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deskroute_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Pipeline metrics
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskroute_messages_processed_total",
			Help: "Total inbound messages processed",
		},
		[]string{"channel", "outcome"}, // outcome: "ok", "duplicate", "dead_letter"
	)

	ProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deskroute_processing_duration_seconds",
			Help:    "End-to-end inbound message processing time",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"channel"},
	)

	Escalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskroute_escalations_total",
			Help: "Total escalations raised",
		},
		[]string{"channel", "priority"},
	)

	TicketsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskroute_tickets_created_total",
			Help: "Total tickets created",
		},
		[]string{"category"},
	)

	SentimentScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deskroute_sentiment_score",
			Help:    "Per-message sentiment score",
			Buckets: []float64{0, .1, .2, .3, .4, .5, .6, .7, .8, .9, 1},
		},
	)

	DeadLettered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskroute_dead_lettered_total",
			Help: "Total events routed to the dead-letter topic",
		},
		[]string{"reason"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskroute_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskroute_blocked_requests_total",
			Help: "Total blocked requests",
		},
		[]string{"reason"},
	)

	// Infrastructure metrics
	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deskroute_redis_latency_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)

	PostgresLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deskroute_postgres_latency_seconds",
			Help:    "PostgreSQL query latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1},
		},
	)

	KafkaPublishLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deskroute_kafka_publish_latency_seconds",
			Help:    "Kafka publish latency per topic",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"topic"},
	)
)
