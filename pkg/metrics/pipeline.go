package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics tracks fulfillment pipeline outcomes.
type PipelineMetrics struct {
	ordersCompleted prometheus.Counter
	ordersFailed    *prometheus.CounterVec
	payoutFailures  prometheus.Counter
	dispatchRetries prometheus.Counter
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	ordersCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fulfillment_orders_completed_total",
		Help: "Orders resolved as completed.",
	})
	ordersFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_orders_failed_total",
		Help: "Orders resolved as failed, by error code.",
	}, []string{"code"})
	payoutFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fulfillment_payout_failures_total",
		Help: "Payout transfers that failed at the processor.",
	})
	dispatchRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fulfillment_dispatch_retries_total",
		Help: "Supplier dispatch attempts retried after transient failures.",
	})
	reg.MustRegister(ordersCompleted, ordersFailed, payoutFailures, dispatchRetries)
	return &PipelineMetrics{
		ordersCompleted: ordersCompleted,
		ordersFailed:    ordersFailed,
		payoutFailures:  payoutFailures,
		dispatchRetries: dispatchRetries,
	}
}

func (m *PipelineMetrics) IncOrderCompleted() {
	if m == nil || m.ordersCompleted == nil {
		return
	}
	m.ordersCompleted.Inc()
}

func (m *PipelineMetrics) IncOrderFailed(code string) {
	if m == nil || m.ordersFailed == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	m.ordersFailed.WithLabelValues(code).Inc()
}

func (m *PipelineMetrics) IncPayoutFailure() {
	if m == nil || m.payoutFailures == nil {
		return
	}
	m.payoutFailures.Inc()
}

func (m *PipelineMetrics) IncDispatchRetry() {
	if m == nil || m.dispatchRetries == nil {
		return
	}
	m.dispatchRetries.Inc()
}
