package optimistic

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts controller transitions. Counters work unregistered; pass a
// registerer to expose them.
type Metrics struct {
	Speculations prometheus.Counter
	Coalesced    prometheus.Counter
	FollowUps    prometheus.Counter
	Reconciled   prometheus.Counter
	RolledBack   prometheus.Counter
	Discarded    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "discuss",
			Subsystem: "optimistic",
			Name:      name,
			Help:      help,
		})
	}
	m := &Metrics{
		Speculations: counter("speculations_total", "Toggles that started a speculative phase."),
		Coalesced:    counter("coalesced_clicks_total", "Clicks merged into an in-flight toggle."),
		FollowUps:    counter("follow_up_requests_total", "Extra requests sent to converge a coalesced intent."),
		Reconciled:   counter("reconciled_total", "Speculative phases settled by the server."),
		RolledBack:   counter("rolled_back_total", "Speculative phases rolled back after a failure."),
		Discarded:    counter("discarded_refreshes_total", "Stale refreshes dropped by the race guard."),
	}
	if reg != nil {
		reg.MustRegister(m.Speculations, m.Coalesced, m.FollowUps, m.Reconciled, m.RolledBack, m.Discarded)
	}
	return m
}
