package server

import (
	"github.com/mit-pdos/vrcore/e"
	"github.com/mit-pdos/vrcore/replica"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vr_requests_total",
			Help: "Client requests handled, by outcome.",
		},
		[]string{"result"},
	)

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vr_request_duration_seconds",
		Help:    "Time spent admitting and executing one client request.",
		Buckets: prometheus.DefBuckets,
	})

	viewNumber = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vr_view_number",
		Help: "Current view number.",
	})
	opNumber = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vr_op_number",
		Help: "Op-number of the most recently admitted request.",
	})
	commitNumber = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vr_commit_number",
		Help: "Op-number of the most recently committed request.",
	})
)

func observe(err e.Error, s replica.Summary) {
	requestsTotal.WithLabelValues(e.String(err)).Inc()
	viewNumber.Set(float64(s.ViewNumber))
	opNumber.Set(float64(s.OpNumber))
	commitNumber.Set(float64(s.CommitNumber))
}
