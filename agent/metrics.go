package agent

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"auto_tweet_agent/failure"
)

const (
	stageGenerate = "generate"
	stagePublish  = "publish"

	outcomePublished = "published"
	outcomeFailed    = "failed"
)

// Metrics counts publish runs and times pipeline stages. A nil *Metrics is a no-op.
type Metrics struct {
	runsTotal     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_runs_total",
				Help: "Publish runs by trigger, outcome and failure kind",
			},
			[]string{"trigger", "outcome", "kind"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_stage_duration_seconds",
				Help:    "Duration of generate and publish calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}
	reg.MustRegister(m.runsTotal, m.stageDuration)
	return m
}

func (m *Metrics) recordRun(trigger Trigger, outcome string, kind failure.Kind) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(string(trigger), outcome, string(kind)).Inc()
}

func (m *Metrics) observeStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
