package metrics

import (
	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "eventqueue"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	puts      *prom.CounterVec
	removed   prom.Counter
	stored    prom.Gauge
	batches   *prom.CounterVec
	delivered prom.Counter
}

// NewPrometheusRecorder creates the queue metrics and registers them on reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	r := &PrometheusRecorder{
		puts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "events_put_total",
			Help:      "Events appended to the store by outcome",
		}, []string{"result"}),
		removed: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "events_removed_total",
			Help:      "Events removed after delivery",
		}),
		stored: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "stored_events",
			Help:      "Events currently held by the store",
		}),
		batches: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "batches_delivered_total",
			Help:      "Delivery batches by outcome",
		}, []string{"result"}),
		delivered: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "events_delivered_total",
			Help:      "Events published to the delivery topic",
		}),
	}

	reg.MustRegister(r.puts, r.removed, r.stored, r.batches, r.delivered)

	return r
}

func (r *PrometheusRecorder) IncPut(result ResultLabel) {
	if r == nil {
		return
	}

	r.puts.WithLabelValues(string(result)).Inc()
}

func (r *PrometheusRecorder) AddRemoved(n int) {
	if r == nil {
		return
	}

	r.removed.Add(float64(n))
}

func (r *PrometheusRecorder) SetStored(n int) {
	if r == nil {
		return
	}

	r.stored.Set(float64(n))
}

func (r *PrometheusRecorder) IncBatch(result ResultLabel) {
	if r == nil {
		return
	}

	r.batches.WithLabelValues(string(result)).Inc()
}

func (r *PrometheusRecorder) AddDelivered(n int) {
	if r == nil {
		return
	}

	r.delivered.Add(float64(n))
}

// Compile-time check.
var _ Recorder = (*PrometheusRecorder)(nil)
