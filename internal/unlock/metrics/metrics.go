package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the unlock context's Prometheus metrics. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	UnlocksTotal        *prometheus.CounterVec
	PersistenceFailures prometheus.Counter
	ActiveObservers     prometheus.Gauge
	ChallengeFailures   *prometheus.CounterVec
	LockoutsTotal       prometheus.Counter
	SessionsSwept       prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UnlocksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultline_unlocks_total",
			Help: "Entities newly added to an unlock set",
		}, []string{"kind"}),
		PersistenceFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "vaultline_unlock_persistence_failures_total",
			Help: "Unlock set reads or writes that failed in the preference store",
		}),
		ActiveObservers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vaultline_unlock_observers",
			Help: "Current number of unlock set subscriptions",
		}),
		ChallengeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultline_challenge_failures_total",
			Help: "Failed challenge verifications by step",
		}, []string{"step"}),
		LockoutsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "vaultline_challenge_lockouts_total",
			Help: "Challenges locked after too many failed attempts",
		}),
		SessionsSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "vaultline_challenge_sessions_swept_total",
			Help: "Expired challenge sessions removed by the sweeper",
		}),
	}
}

func (m *Metrics) IncrementUnlocks(kind string) {
	if m == nil {
		return
	}
	m.UnlocksTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementPersistenceFailures() {
	if m == nil {
		return
	}
	m.PersistenceFailures.Inc()
}

func (m *Metrics) ObserverAdded() {
	if m == nil {
		return
	}
	m.ActiveObservers.Inc()
}

func (m *Metrics) ObserverRemoved() {
	if m == nil {
		return
	}
	m.ActiveObservers.Dec()
}

func (m *Metrics) IncrementChallengeFailures(step string) {
	if m == nil {
		return
	}
	m.ChallengeFailures.WithLabelValues(step).Inc()
}

func (m *Metrics) IncrementLockouts() {
	if m == nil {
		return
	}
	m.LockoutsTotal.Inc()
}

func (m *Metrics) AddSessionsSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsSwept.Add(float64(n))
}
