package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		transitionsTotal,
		transitionRejectionsTotal,
		stepCompletionsTotal,
		certificationsTotal,
		jobsByState,
	)
}

var (
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Applied job transitions by target state and action.",
		},
		[]string{"to", "action"},
	)

	transitionRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_transition_rejections_total",
			Help: "Rejected operations by action and error kind.",
		},
		[]string{"action", "reason"},
	)

	stepCompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_step_completions_total",
			Help: "Recorded step completions by job state.",
		},
		[]string{"state"},
	)

	certificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_certifications_total",
			Help: "Certified units by final grade.",
		},
		[]string{"grade"},
	)

	jobsByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "workflow_jobs",
			Help: "Current number of jobs per state.",
		},
		[]string{"state"},
	)
)

func IncTransition(to, action string) {
	transitionsTotal.WithLabelValues(norm(to), norm(action)).Inc()
}

func IncTransitionRejected(action, reason string) {
	transitionRejectionsTotal.WithLabelValues(norm(action), norm(reason)).Inc()
}

func IncStepCompletion(state string) {
	stepCompletionsTotal.WithLabelValues(norm(state)).Inc()
}

func IncCertification(grade string) {
	certificationsTotal.WithLabelValues(norm(grade)).Inc()
}

// SetJobsByState overwrites the gauge; states missing from counts are reported as 0.
func SetJobsByState(states []string, counts map[string]int) {
	for _, s := range states {
		jobsByState.WithLabelValues(norm(s)).Set(float64(counts[s]))
	}
}
