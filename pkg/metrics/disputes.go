package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DisputeMetrics tracks workflow throughput counters.
type DisputeMetrics struct {
	created        *prometheus.CounterVec
	resolved       *prometheus.CounterVec
	escalations    prometheus.Counter
	votes          prometheus.Counter
	assignMisses   prometheus.Counter
	resolutionTime prometheus.Histogram
}

// NewDisputeMetrics registers the dispute workflow metrics on the provided registerer.
func NewDisputeMetrics(reg prometheus.Registerer) *DisputeMetrics {
	if reg == nil {
		return &DisputeMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "disputes_created_total",
		Help: "Disputes created, labeled by severity.",
	}, []string{"severity"})
	resolved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "disputes_resolved_total",
		Help: "Disputes resolved, labeled by resolution type.",
	}, []string{"resolution_type"})
	escalations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispute_escalations_total",
		Help: "Escalations performed.",
	})
	votes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispute_votes_total",
		Help: "Votes cast on escalated disputes.",
	})
	assignMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispute_assignment_misses_total",
		Help: "Assignment attempts that found no eligible moderator.",
	})
	resolutionTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispute_resolution_seconds",
		Help:    "Time from creation to resolution in seconds.",
		Buckets: prometheus.ExponentialBuckets(60, 4, 10),
	})
	reg.MustRegister(created, resolved, escalations, votes, assignMisses, resolutionTime)
	return &DisputeMetrics{
		created:        created,
		resolved:       resolved,
		escalations:    escalations,
		votes:          votes,
		assignMisses:   assignMisses,
		resolutionTime: resolutionTime,
	}
}

// IncCreated counts a created dispute by severity.
func (d *DisputeMetrics) IncCreated(severity string) {
	if d == nil || d.created == nil {
		return
	}
	d.created.WithLabelValues(normalizeLabel(severity)).Inc()
}

// IncResolved counts a resolution by type.
func (d *DisputeMetrics) IncResolved(resolutionType string) {
	if d == nil || d.resolved == nil {
		return
	}
	d.resolved.WithLabelValues(normalizeLabel(resolutionType)).Inc()
}

// IncEscalation counts one escalation.
func (d *DisputeMetrics) IncEscalation() {
	if d == nil || d.escalations == nil {
		return
	}
	d.escalations.Inc()
}

// IncVote counts one cast vote.
func (d *DisputeMetrics) IncVote() {
	if d == nil || d.votes == nil {
		return
	}
	d.votes.Inc()
}

// IncAssignmentMiss counts an assignment attempt with no eligible moderator.
func (d *DisputeMetrics) IncAssignmentMiss() {
	if d == nil || d.assignMisses == nil {
		return
	}
	d.assignMisses.Inc()
}

// ObserveResolutionTime records how long a dispute took to resolve.
func (d *DisputeMetrics) ObserveResolutionTime(elapsed time.Duration) {
	if d == nil || d.resolutionTime == nil {
		return
	}
	d.resolutionTime.Observe(elapsed.Seconds())
}
