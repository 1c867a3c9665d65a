// Package metric exports allocator activity to Prometheus.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/sysmem"
)

var _ sysmem.MetricsObserver = (*PrometheusObserver)(nil)

// PrometheusObserver implements sysmem.MetricsObserver.
type PrometheusObserver struct {
	opLatency    *prometheus.HistogramVec
	allocBytes   *prometheus.CounterVec
	reclaims     *prometheus.CounterVec
	reclaimBytes *prometheus.CounterVec
	backpressure *prometheus.CounterVec
	usedBytes    prometheus.Gauge
	usageRatio   prometheus.Gauge
}

// NewPrometheusObserver creates the collectors and registers them with reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewPrometheusObserver(reg prometheus.Registerer, namespace string) (*PrometheusObserver, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &PrometheusObserver{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of create and resize operations",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"op", "kind", "status"}),
		allocBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocated_bytes_total",
			Help:      "Bytes handed out by create calls",
		}, []string{"kind"}),
		reclaims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reclaims_total",
			Help:      "Reclaimed resources",
		}, []string{"kind", "mode", "status"}),
		reclaimBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reclaimed_bytes_total",
			Help:      "Bytes returned to the pool by reclamation",
		}, []string{"kind"}),
		backpressure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backpressure_waits_total",
			Help:      "Cool-down waits caused by a full pool",
		}, []string{"kind", "outcome"}),
		usedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "used_bytes",
			Help:      "Bytes accounted to live resources",
		}),
		usageRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "usage_ratio",
			Help:      "Used bytes as a ratio of capacity (0.0-1.0)",
		}),
	}

	for _, c := range []prometheus.Collector{
		o.opLatency, o.allocBytes, o.reclaims, o.reclaimBytes,
		o.backpressure, o.usedBytes, o.usageRatio,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return o, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// OnAllocate implements sysmem.MetricsObserver.
func (o *PrometheusObserver) OnAllocate(kind sysmem.ResourceKind, size int64, d time.Duration, err error) {
	o.opLatency.WithLabelValues("create", string(kind), status(err)).Observe(d.Seconds())
	if err == nil {
		o.allocBytes.WithLabelValues(string(kind)).Add(float64(size))
	}
}

// OnResize implements sysmem.MetricsObserver.
func (o *PrometheusObserver) OnResize(kind sysmem.ResourceKind, _, _ int64, d time.Duration, err error) {
	o.opLatency.WithLabelValues("resize", string(kind), status(err)).Observe(d.Seconds())
}

// OnReclaim implements sysmem.MetricsObserver.
func (o *PrometheusObserver) OnReclaim(kind sysmem.ResourceKind, size int64, explicit bool, err error) {
	mode := "collected"
	if explicit {
		mode = "explicit"
	}
	o.reclaims.WithLabelValues(string(kind), mode, status(err)).Inc()
	o.reclaimBytes.WithLabelValues(string(kind)).Add(float64(size))
}

// OnBackpressure implements sysmem.MetricsObserver.
func (o *PrometheusObserver) OnBackpressure(kind sysmem.ResourceKind, _ int64, _ time.Duration, satisfied bool) {
	outcome := "exhausted"
	if satisfied {
		outcome = "recovered"
	}
	o.backpressure.WithLabelValues(string(kind), outcome).Inc()
}

// OnUsage implements sysmem.MetricsObserver.
func (o *PrometheusObserver) OnUsage(used, capacity int64) {
	o.usedBytes.Set(float64(used))
	if capacity > 0 {
		o.usageRatio.Set(float64(used) / float64(capacity))
	}
}
