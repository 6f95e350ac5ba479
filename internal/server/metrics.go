package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linkgraph",
		Subsystem: "index",
		Name:      "rebuilds_total",
		Help:      "Link index rebuilds by result",
	}, []string{"result"})

	rebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "linkgraph",
		Subsystem: "index",
		Name:      "rebuild_duration_seconds",
		Help:      "Time to rebuild and write the link index",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	// pagesParsed counts pages by how the last rebuild obtained them:
	// parsed, cached, failed or draft.
	pagesParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linkgraph",
		Subsystem: "index",
		Name:      "pages_total",
		Help:      "Pages seen by rebuilds, by outcome",
	}, []string{"outcome"})

	indexPages = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "linkgraph",
		Subsystem: "index",
		Name:      "pages",
		Help:      "Pages in the current link index",
	})

	indexLinks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "linkgraph",
		Subsystem: "index",
		Name:      "links",
		Help:      "Links in the current link index",
	})

	liveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "linkgraph",
		Subsystem: "live",
		Name:      "sessions",
		Help:      "Connected live reload sessions",
	})

	liveDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "linkgraph",
		Subsystem: "live",
		Name:      "dropped_messages_total",
		Help:      "Messages dropped because a session's buffer was full",
	})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linkgraph",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "API requests by route and status code",
	}, []string{"route", "code"})
)
