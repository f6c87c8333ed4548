package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PastesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cyberpaste_pastes_created_total",
		Help: "Number of pastes created",
	})
	PastesViewed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cyberpaste_pastes_viewed_total",
		Help: "Number of paste views served",
	})
	PastesExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cyberpaste_pastes_expired_total",
		Help: "Number of pastes removed because their TTL ran out",
	})
	ActivePastes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cyberpaste_active_pastes",
		Help: "Number of live pastes at the last count",
	})
)
