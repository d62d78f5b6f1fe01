package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EscrowMetrics counts order transitions, optimistic retries and sweep items.
type EscrowMetrics struct {
	transitions *prometheus.CounterVec
	retries     *prometheus.CounterVec
	sweepItems  *prometheus.CounterVec
}

// NewEscrowMetrics registers the escrow metrics on the provided registerer.
func NewEscrowMetrics(reg prometheus.Registerer) *EscrowMetrics {
	if reg == nil {
		return &EscrowMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_order_transitions_total",
		Help: "Order transitions by event and outcome.",
	}, []string{"event", "outcome"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_tx_retries_total",
		Help: "Optimistic transaction retries by operation.",
	}, []string{"op"})
	sweepItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_sweep_items_total",
		Help: "Orders visited by sweeps by job and result.",
	}, []string{"job", "result"})
	reg.MustRegister(transitions, retries, sweepItems)
	return &EscrowMetrics{
		transitions: transitions,
		retries:     retries,
		sweepItems:  sweepItems,
	}
}

// IncTransition counts one transition attempt. outcome is applied, noop or an error code.
func (m *EscrowMetrics) IncTransition(event, outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(event), normalizeLabel(outcome)).Inc()
}

func (m *EscrowMetrics) IncRetry(op string) {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.WithLabelValues(normalizeLabel(op)).Inc()
}

func (m *EscrowMetrics) IncSweepItem(job, result string) {
	if m == nil || m.sweepItems == nil {
		return
	}
	m.sweepItems.WithLabelValues(normalizeLabel(job), normalizeLabel(result)).Inc()
}
